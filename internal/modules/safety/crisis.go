package safety

import (
	"strings"

	types "github.com/yungbote/fred-backend/internal/domain"
)

// Assessment is the result of screening one user message.
type Assessment struct {
	IsCrisis   bool     `json:"isCrisis"`
	Severity   string   `json:"severity"`
	Indicators []string `json:"indicators"`
}

// Detect screens msg with the built-in lexicon.
func Detect(msg string) Assessment { return defaultLexicon.Detect(msg) }

// Detect is a lexical screen only. It reports every keyword and pattern hit, without de-duplication,
// and does not try to recover from phrasing it has no entry for.
func (lx *Lexicon) Detect(msg string) Assessment {
	out := Assessment{Severity: types.SeverityLow, Indicators: []string{}}
	lower := strings.ToLower(msg)
	if strings.TrimSpace(lower) == "" {
		return out
	}

	for _, kw := range lx.keywords {
		if strings.Contains(lower, kw) {
			out.Indicators = append(out.Indicators, kw)
		}
	}
	for _, p := range lx.patterns {
		if p.re.MatchString(msg) {
			out.Indicators = append(out.Indicators, p.source)
		}
	}
	out.IsCrisis = len(out.Indicators) > 0
	if !out.IsCrisis {
		return out
	}

	urgent := false
	for _, u := range lx.urgency {
		if strings.Contains(lower, u) {
			urgent = true
			break
		}
	}
	switch {
	case urgent || len(out.Indicators) >= 3:
		out.Severity = types.SeverityHigh
	case len(out.Indicators) >= 2:
		out.Severity = types.SeverityMedium
	default:
		out.Severity = types.SeverityLow
	}
	return out
}
