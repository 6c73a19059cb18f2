package domain

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNameGenerator_Generate_Adjective_And_Animal(t *testing.T) {
	req := require.New(t)
	gen := NewRandomNameGenerator()

	for i := 0; i < 100; i++ {
		name := gen.Generate()
		parts := strings.Split(name, " ")
		req.Len(parts, 2)
		req.Contains(adjectives, parts[0])
		req.Contains(animals, parts[1])
	}
}

func TestNameGenerator_Same_Seed_Same_Names(t *testing.T) {
	req := require.New(t)
	first := NewNameGenerator(rand.NewPCG(1, 2))
	second := NewNameGenerator(rand.NewPCG(1, 2))

	for i := 0; i < 10; i++ {
		req.Equal(first.Generate(), second.Generate())
	}
}

func TestMetadata_ForKind(t *testing.T) {
	req := require.New(t)
	full := &Metadata{Width: 10, Height: 20, Duration: 3.5, MimeType: "x/y", FileSize: 42, ThumbnailURL: "http://t"}

	// Text never keeps metadata
	req.Nil(full.ForKind(KindText))

	// Image drops audio attributes
	image := full.ForKind(KindImage)
	req.Equal(&Metadata{Width: 10, Height: 20, MimeType: "x/y", FileSize: 42, ThumbnailURL: "http://t"}, image)

	// Audio drops image attributes
	audio := full.ForKind(KindAudio)
	req.Equal(&Metadata{Duration: 3.5, MimeType: "x/y", FileSize: 42}, audio)

	// Nothing left means no metadata at all
	req.Nil((&Metadata{Duration: 1}).ForKind(KindImage))
	req.Nil((*Metadata)(nil).ForKind(KindAudio))
}
