package query

import "strings"

// builder accumulates SQL text and its positional args
type builder struct {
	strings.Builder
	args []any
}

// list writes one placeholder per item and records the items as args
func (b *builder) list(items []string) {
	b.WriteString(placeholders(len(items)))
	for _, it := range items {
		b.args = append(b.args, it)
	}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
