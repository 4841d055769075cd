package safety

const (
	// SnippetMaxRunes caps the message excerpt stored on a crisis flag.
	SnippetMaxRunes = 500

	redactedEmail = "[REDACTED_EMAIL]"
	redactedPhone = "[REDACTED_PHONE]"
)

// RedactPII masks e-mail addresses and Australian phone numbers using the built-in lexicon.
func RedactPII(text string) string { return defaultLexicon.RedactPII(text) }

// RedactPII masks e-mail addresses and phone numbers matched by the lexicon.
func (lx *Lexicon) RedactPII(text string) string {
	if lx.email != nil {
		text = lx.email.ReplaceAllString(text, redactedEmail)
	}
	for _, re := range lx.phones {
		text = re.ReplaceAllString(text, redactedPhone)
	}
	return text
}

// Snippet prepares a message for storage on a crisis flag.
func (lx *Lexicon) Snippet(text string, redact bool) string {
	if redact {
		text = lx.RedactPII(text)
	}
	return Truncate(text, SnippetMaxRunes)
}

// Truncate keeps at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
