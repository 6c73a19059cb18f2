package domain

import (
	"math/rand/v2"
	"sync"
)

var adjectives = []string{
	"Brave", "Calm", "Clever", "Curious", "Daring", "Eager", "Fancy", "Gentle",
	"Happy", "Jolly", "Kind", "Lively", "Lucky", "Mellow", "Nimble", "Polite",
	"Quick", "Quiet", "Shiny", "Silly", "Sleepy", "Swift", "Witty", "Zesty",
}

var animals = []string{
	"Badger", "Beaver", "Otter", "Falcon", "Fox", "Hedgehog", "Koala", "Lemur",
	"Lynx", "Moose", "Narwhal", "Owl", "Panda", "Penguin", "Puffin", "Raccoon",
	"Seal", "Sloth", "Squirrel", "Tiger", "Walrus", "Wombat", "Yak", "Zebra",
}

// NameGenerator draws display names from an adjective x animal pool.
// Names are not deduplicated.
type NameGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewNameGenerator(src rand.Source) *NameGenerator {
	return &NameGenerator{rnd: rand.New(src)}
}

// NewRandomNameGenerator seeds the generator from the runtime's random source.
func NewRandomNameGenerator() *NameGenerator {
	return NewNameGenerator(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func (g *NameGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return adjectives[g.rnd.IntN(len(adjectives))] + " " + animals[g.rnd.IntN(len(animals))]
}
