package formats

import (
	"fmt"
	"strings"

	"pyinsight/internal/core/ports"
)

const (
	mermaidInit             = "%%{init: {'theme': 'base', 'themeVariables': {'textColor': '#000000', 'primaryTextColor': '#000000', 'lineColor': '#333333'}, 'flowchart': {'nodeSpacing': 80, 'rankSpacing': 110, 'curve': 'basis'}}}%%\n"
	externalAggregateNodeID = "__external__"
)

// MermaidGenerator draws the resolved call graph as a flowchart with one
// subgraph per unit.
type MermaidGenerator struct {
	result ports.AnalysisResult
	// maxNodes keeps only the highest ranked functions; 0 draws all.
	maxNodes int
}

func NewMermaidGenerator(result ports.AnalysisResult) *MermaidGenerator {
	return &MermaidGenerator{result: result}
}

func (m *MermaidGenerator) SetMaxNodes(n int) {
	if n < 0 {
		n = 0
	}
	m.maxNodes = n
}

func (m *MermaidGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString(mermaidInit)
	b.WriteString("flowchart LR\n")

	keep := m.selectedFunctions()
	unitOrder := make([]string, 0, len(m.result.Units))
	byUnit := make(map[string][]ports.FunctionResult)
	names := make([]string, 0, len(keep))
	for _, unit := range m.result.Units {
		for _, fn := range unit.Functions {
			key := functionKey(unit.Name, fn.QualifiedName)
			if !keep[key] {
				continue
			}
			if len(byUnit[unit.Name]) == 0 {
				unitOrder = append(unitOrder, unit.Name)
			}
			byUnit[unit.Name] = append(byUnit[unit.Name], fn)
			names = append(names, key)
		}
	}

	externalByCaller := make(map[string]int)
	for _, r := range m.result.RankedFunctions {
		key := functionKey(r.Unit, r.QualifiedName)
		if keep[key] && r.Reasons.ExternalCalls > 0 {
			externalByCaller[key] = r.Reasons.ExternalCalls
		}
	}
	hasExternal := len(externalByCaller) > 0
	allNames := append([]string{}, names...)
	if hasExternal {
		allNames = append(allNames, externalAggregateNodeID)
	}
	ids := makeIDs(allNames)

	for _, unitName := range unitOrder {
		b.WriteString(fmt.Sprintf("  subgraph unit_%s[\"%s\"]\n", sanitizeID(unitName), escapeLabel(unitName)))
		for _, fn := range byUnit[unitName] {
			key := functionKey(unitName, fn.QualifiedName)
			b.WriteString(fmt.Sprintf("    %s[\"%s\\nin:%d out:%d\"]\n", ids[key], escapeLabel(fn.QualifiedName), fn.FanIn, fn.FanOut))
		}
		b.WriteString("  end\n")
	}
	if hasExternal {
		b.WriteString(fmt.Sprintf("  %s[\"External\\n(%d names)\"]\n", ids[externalAggregateNodeID], len(m.result.ExternalCalls)))
	}

	entryNames := make([]string, 0)
	for _, e := range m.result.EntryPoints {
		key := functionKey(e.Unit, e.QualifiedName)
		if keep[key] {
			entryNames = append(entryNames, key)
		}
	}
	recursiveGroup := make(map[string]int)
	recursiveNames := make([]string, 0)
	for i, group := range m.result.RecursiveGroups {
		for _, id := range group {
			recursiveGroup[id] = i + 1
			if keep[id] {
				recursiveNames = append(recursiveNames, id)
			}
		}
	}

	b.WriteString("\n")
	if len(names) > 0 {
		b.WriteString("  classDef functionNode fill:#f7fbff,stroke:#4d6480,stroke-width:1px,color:#000000;\n")
		b.WriteString("  class ")
		b.WriteString(strings.Join(toIDs(names, ids), ","))
		b.WriteString(" functionNode;\n")
	}
	if len(entryNames) > 0 {
		b.WriteString("  classDef entryNode fill:#eef7ee,stroke:#2f7d32,stroke-width:2px,color:#000000;\n")
		b.WriteString("  class ")
		b.WriteString(strings.Join(toIDs(entryNames, ids), ","))
		b.WriteString(" entryNode;\n")
	}
	if len(recursiveNames) > 0 {
		b.WriteString("  classDef recursiveNode fill:#ffecec,stroke:#cc0000,stroke-width:2px,color:#000000;\n")
		b.WriteString("  class ")
		b.WriteString(strings.Join(toIDs(recursiveNames, ids), ","))
		b.WriteString(" recursiveNode;\n")
	}
	if hasExternal {
		b.WriteString("  classDef externalNode fill:#efefef,stroke:#808080,stroke-dasharray:4 3,color:#000000;\n")
		b.WriteString(fmt.Sprintf("  class %s externalNode;\n", ids[externalAggregateNodeID]))
	}

	b.WriteString("\n")
	linkIndex := 0
	recursiveLinks := make([]int, 0)
	externalLinks := make([]int, 0)
	for _, edge := range m.result.CallEdges {
		from := functionKey(edge.CallerUnit, edge.Caller)
		to := functionKey(edge.CalleeUnit, edge.Callee)
		if !keep[from] || !keep[to] {
			continue
		}
		label := ""
		if edge.Calls > 1 {
			label = fmt.Sprintf("|x%d|", edge.Calls)
		}
		if g := recursiveGroup[from]; g > 0 && g == recursiveGroup[to] {
			recursiveLinks = append(recursiveLinks, linkIndex)
		}
		b.WriteString(fmt.Sprintf("  %s -->%s %s\n", ids[from], label, ids[to]))
		linkIndex++
	}
	for _, key := range names {
		count := externalByCaller[key]
		if count == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s -.->|ext:%d| %s\n", ids[key], count, ids[externalAggregateNodeID]))
		externalLinks = append(externalLinks, linkIndex)
		linkIndex++
	}

	if len(recursiveLinks) > 0 || len(externalLinks) > 0 {
		b.WriteString("\n")
	}
	if len(recursiveLinks) > 0 {
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#cc0000,stroke-width:3px;\n", joinInts(recursiveLinks)))
	}
	if len(externalLinks) > 0 {
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#777777,stroke-dasharray:4 3;\n", joinInts(externalLinks)))
	}

	b.WriteString("\n")
	b.WriteString("  subgraph legend_info[\"Legend\"]\n")
	b.WriteString("    legend_nodes[\"Node: qualified name\\nin=callers out=callees\"]\n")
	b.WriteString("    legend_edges[\"Edge labels: xN=call sites, ext:N=calls outside the analyzed code\"]\n")
	b.WriteString("  end\n")
	b.WriteString("  classDef legendNode fill:#fff8dc,stroke:#b8a24c,stroke-width:1px,color:#000000;\n")
	b.WriteString("  class legend_nodes,legend_edges legendNode;\n")
	return b.String(), nil
}

func (m *MermaidGenerator) selectedFunctions() map[string]bool {
	keep := make(map[string]bool)
	if m.maxNodes > 0 {
		for i, r := range m.result.RankedFunctions {
			if i >= m.maxNodes {
				break
			}
			keep[functionKey(r.Unit, r.QualifiedName)] = true
		}
		return keep
	}
	for _, unit := range m.result.Units {
		for _, fn := range unit.Functions {
			keep[functionKey(unit.Name, fn.QualifiedName)] = true
		}
	}
	return keep
}

func toIDs(names []string, ids map[string]string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, ids[name])
	}
	return out
}
