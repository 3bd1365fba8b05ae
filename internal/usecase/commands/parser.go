package commands

import (
	"slices"
	"strings"
)

// Invocation is a parsed command line.
type Invocation struct {
	Prefix string
	Name   string
	Raw    string
	Args   []string
}

// Parser recognises commands by prefix. Longer prefixes are tried first so
// that "!!" wins over "!".
type Parser struct {
	prefixes []string
}

func NewParser(prefixes []string) *Parser {
	clean := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p != "" && !slices.Contains(clean, p) {
			clean = append(clean, p)
		}
	}
	if len(clean) == 0 {
		clean = []string{"."}
	}
	slices.SortStableFunc(clean, func(a, b string) int { return len(b) - len(a) })
	return &Parser{prefixes: clean}
}

func (p *Parser) Prefixes() []string {
	return slices.Clone(p.prefixes)
}

// Primary is the prefix shown in help texts.
func (p *Parser) Primary() string {
	return p.prefixes[len(p.prefixes)-1]
}

func (p *Parser) Parse(text string) (Invocation, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Invocation{}, false
	}
	for _, prefix := range p.prefixes {
		if !strings.HasPrefix(text, prefix) {
			continue
		}
		raw := strings.TrimSpace(strings.TrimPrefix(text, prefix))
		parts := strings.Fields(raw)
		if len(parts) == 0 {
			return Invocation{}, false
		}
		return Invocation{
			Prefix: prefix,
			Name:   strings.ToLower(parts[0]),
			Raw:    raw,
			Args:   parts[1:],
		}, true
	}
	return Invocation{}, false
}
