package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pyinsight/internal/core/ports"
	"pyinsight/internal/ui/report/formats"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatDocs     Format = "docs"
	FormatMermaid  Format = "mermaid"
	FormatTSV      Format = "tsv"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatMarkdown, FormatDocs, FormatMermaid, FormatTSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q", raw)
	}
}

type Options struct {
	Target      string
	Version     string
	GeneratedAt time.Time
	// MaxDiagramNodes bounds the mermaid call graph; 0 draws every function.
	MaxDiagramNodes int
}

// Render turns an analysis result into the bytes for one output format.
func Render(result ports.AnalysisResult, format Format, opts Options) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return json.MarshalIndent(result, "", "  ")
	case FormatDocs:
		return []byte(formats.NewDocumentationGenerator().Generate(opts.Target, result.KeyFunctions)), nil
	case FormatMermaid:
		diagram, err := mermaid(result, opts)
		if err != nil {
			return nil, err
		}
		return []byte(diagram), nil
	case FormatTSV:
		tsv := formats.NewTSVGenerator(result)
		ranked, err := tsv.GenerateRanked()
		if err != nil {
			return nil, err
		}
		edges, err := tsv.Generate()
		if err != nil {
			return nil, err
		}
		return []byte(ranked + "\n" + edges), nil
	case FormatMarkdown:
		diagram, err := mermaid(result, opts)
		if err != nil {
			return nil, err
		}
		out, err := formats.NewMarkdownGenerator().Generate(result, formats.MarkdownReportOptions{
			Target:              opts.Target,
			Version:             opts.Version,
			GeneratedAt:         opts.GeneratedAt,
			TableOfContents:     true,
			CollapsibleSections: true,
			IncludeMermaid:      true,
			MermaidDiagram:      diagram,
		})
		if err != nil {
			return nil, err
		}
		if len(result.KeyFunctions) > 0 {
			out += "\n" + formats.NewDocumentationGenerator().Generate(opts.Target, result.KeyFunctions)
		}
		return []byte(out), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func mermaid(result ports.AnalysisResult, opts Options) (string, error) {
	gen := formats.NewMermaidGenerator(result)
	gen.SetMaxNodes(opts.MaxDiagramNodes)
	return gen.Generate()
}
