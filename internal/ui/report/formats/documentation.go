package formats

import (
	"fmt"
	"strings"

	"pyinsight/internal/core/ports"
)

// DocumentationGenerator renders key functions as a per-function markdown
// document: code block plus explanation.
type DocumentationGenerator struct{}

func NewDocumentationGenerator() *DocumentationGenerator {
	return &DocumentationGenerator{}
}

func (d *DocumentationGenerator) Generate(title string, functions []ports.KeyFunction) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# 📄 Documentation for `%s`\n\n", title))
	if len(functions) == 0 {
		b.WriteString("*No functions to document*\n")
		return b.String()
	}
	for _, fn := range functions {
		b.WriteString(fmt.Sprintf("## 🔹 Function: `%s`\n\n", fn.QualifiedName))
		b.WriteString("```python\n")
		b.WriteString(strings.TrimRight(fn.Code, "\n"))
		b.WriteString("\n```\n\n")
		b.WriteString("**Explanation:**\n\n")
		b.WriteString(Explain(fn))
		b.WriteString("\n\n---\n\n")
	}
	return b.String()
}

// Explain prefers the docstring and falls back to the structural facts.
func Explain(fn ports.KeyFunction) string {
	if doc := strings.TrimSpace(fn.Docstring); doc != "" {
		return doc
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("`%s` in `%s` spans lines %d-%d", fn.QualifiedName, fn.Unit, fn.LineSpan.Start, fn.LineSpan.End))
	parts = append(parts, fmt.Sprintf("is called from %s and calls %s",
		plural(fn.Reasons.InDegree, "function"),
		plural(fn.Reasons.OutDegree, "function")))
	text := strings.Join(parts, " and ") + "."
	if fn.Reasons.IsEntry {
		text += " It is an entry point."
	}
	if fn.Reasons.ExternalCalls > 0 {
		text += fmt.Sprintf(" It makes %s outside the analyzed code.", plural(fn.Reasons.ExternalCalls, "call"))
	}
	if len(fn.EntryChain) > 1 {
		text += " Reached via " + "`" + strings.Join(fn.EntryChain, "` -> `") + "`."
	}
	return text
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
