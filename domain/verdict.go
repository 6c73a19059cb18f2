package domain

// Verdict is the outcome of moderating a text message.
type Verdict struct {
	Content       string
	CensoredWords []string
	Language      string
}

func (v Verdict) Censored() bool {
	return len(v.CensoredWords) > 0
}
