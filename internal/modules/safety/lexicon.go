package safety

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

type lexiconFile struct {
	Crisis struct {
		Keywords []string `yaml:"keywords"`
		Patterns []string `yaml:"patterns"`
		Urgency  []string `yaml:"urgency"`
	} `yaml:"crisis"`
	ReplyFilter []struct {
		Reason   string   `yaml:"reason"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"reply_filter"`
	Redaction struct {
		Email string   `yaml:"email"`
		Phone []string `yaml:"phone"`
	} `yaml:"redaction"`
}

type pattern struct {
	source string
	re     *regexp.Regexp
}

type blockRule struct {
	reason   string
	patterns []pattern
}

// Lexicon is the compiled vocabulary shared by the detector, the reply filter and the redactor.
type Lexicon struct {
	keywords []string
	patterns []pattern
	urgency  []string

	rules []blockRule

	email  *regexp.Regexp
	phones []*regexp.Regexp
}

var defaultLexicon = mustParseLexicon(defaultLexiconYAML)

// DefaultLexicon returns the built-in vocabulary.
func DefaultLexicon() *Lexicon { return defaultLexicon }

func ParseLexicon(raw []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	lx := &Lexicon{}
	for _, k := range f.Crisis.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lx.keywords = append(lx.keywords, k)
		}
	}
	for _, u := range f.Crisis.Urgency {
		if u = strings.ToLower(strings.TrimSpace(u)); u != "" {
			lx.urgency = append(lx.urgency, u)
		}
	}
	for _, src := range f.Crisis.Patterns {
		p, err := compile(src)
		if err != nil {
			return nil, err
		}
		lx.patterns = append(lx.patterns, p)
	}
	for _, r := range f.ReplyFilter {
		rule := blockRule{reason: strings.TrimSpace(r.Reason)}
		if rule.reason == "" {
			return nil, fmt.Errorf("parse lexicon: reply_filter rule without reason")
		}
		for _, src := range r.Patterns {
			p, err := compile(src)
			if err != nil {
				return nil, err
			}
			rule.patterns = append(rule.patterns, p)
		}
		lx.rules = append(lx.rules, rule)
	}
	if s := strings.TrimSpace(f.Redaction.Email); s != "" {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("parse lexicon: email pattern: %w", err)
		}
		lx.email = re
	}
	for _, s := range f.Redaction.Phone {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("parse lexicon: phone pattern %q: %w", s, err)
		}
		lx.phones = append(lx.phones, re)
	}
	return lx, nil
}

func compile(src string) (pattern, error) {
	src = strings.TrimSpace(src)
	re, err := regexp.Compile("(?i)" + src)
	if err != nil {
		return pattern{}, fmt.Errorf("parse lexicon: pattern %q: %w", src, err)
	}
	return pattern{source: src, re: re}, nil
}

func mustParseLexicon(raw []byte) *Lexicon {
	lx, err := ParseLexicon(raw)
	if err != nil {
		panic(err)
	}
	return lx
}
