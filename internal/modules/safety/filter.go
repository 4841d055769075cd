package safety

// Verdict reports whether a generated reply may be delivered.
type Verdict struct {
	Blocked bool
	Reason  string
}

// FallbackReply replaces any reply the filter blocks.
const FallbackReply = "I want to make sure I'm supporting you in the best way possible. Could you tell me a bit more about what you're going through? If you'd like to speak with a professional, your GP can set up a Mental Health Care Plan for subsidized psychology sessions."

// ShouldBlock runs the built-in lexicon's reply filter.
func ShouldBlock(reply string) Verdict { return defaultLexicon.ShouldBlock(reply) }

// ShouldBlock checks rule families in order; the first match wins.
func (lx *Lexicon) ShouldBlock(reply string) Verdict {
	for _, rule := range lx.rules {
		for _, p := range rule.patterns {
			if p.re.MatchString(reply) {
				return Verdict{Blocked: true, Reason: rule.reason}
			}
		}
	}
	return Verdict{}
}
