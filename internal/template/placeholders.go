package template

import "strings"

// Placeholders maps literal tokens to replacement values. Tokens are applied in the
// order they were first set, so a token that occurs inside another token or inside an
// earlier replacement value is the caller's concern.
type Placeholders struct {
	tokens []string
	values map[string]string
}

// NewPlaceholders builds a mapping from alternating token/value arguments.
// A trailing token without a value is ignored.
func NewPlaceholders(pairs ...string) Placeholders {
	var p Placeholders
	for i := 0; i+1 < len(pairs); i += 2 {
		p.Set(pairs[i], pairs[i+1])
	}
	return p
}

// Set adds or updates a token. Updating keeps the token's original position.
func (p *Placeholders) Set(token, value string) {
	if token == "" {
		return
	}
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[token]; !ok {
		p.tokens = append(p.tokens, token)
	}
	p.values[token] = value
}

// Value returns the replacement for token.
func (p Placeholders) Value(token string) (string, bool) {
	v, ok := p.values[token]
	return v, ok
}

// Tokens returns the tokens in application order.
func (p Placeholders) Tokens() []string {
	return append([]string(nil), p.tokens...)
}

// Len returns the number of tokens.
func (p Placeholders) Len() int {
	return len(p.tokens)
}

// Apply replaces every occurrence of every token in text.
func (p Placeholders) Apply(text string) string {
	for _, token := range p.tokens {
		text = strings.ReplaceAll(text, token, p.values[token])
	}
	return text
}
