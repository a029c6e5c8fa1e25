package graph

import (
	"pyinsight/internal/engine/parser"
)

type EntryReason string

const (
	// ReasonNoCallers marks functions no analyzed function calls. Functions
	// dispatched by frameworks or test discovery land here too.
	ReasonNoCallers EntryReason = "no_callers"
	// ReasonMainGuard marks module-level functions run from, or defined in,
	// an `if __name__ == "__main__":` block.
	ReasonMainGuard EntryReason = "main_guard"
)

type EntryPoint struct {
	Function *parser.Function
	Reasons  []EntryReason
}

// DetectEntryPoints flags every function of the graph that has no caller or
// is invoked from its unit's main guard. Output follows graph insertion
// order.
func DetectEntryPoints(cg *CallGraph) []EntryPoint {
	guarded := mainGuardTargets(cg.Functions())

	var entries []EntryPoint
	for _, fn := range cg.Functions() {
		var reasons []EntryReason
		if cg.InDegree(fn) == 0 {
			reasons = append(reasons, ReasonNoCallers)
		}
		if guarded[fn] {
			reasons = append(reasons, ReasonMainGuard)
		}
		if len(reasons) > 0 {
			entries = append(entries, EntryPoint{Function: fn, Reasons: reasons})
		}
	}
	return entries
}

func mainGuardTargets(functions []*parser.Function) map[*parser.Function]bool {
	targets := make(map[*parser.Function]bool)
	moduleLevel := make(map[*parser.Unit]map[string]*parser.Function)
	for _, fn := range functions {
		if !fn.AtModuleScope() {
			continue
		}
		if fn.MainGuarded {
			targets[fn] = true
		}
		byName := moduleLevel[fn.Unit()]
		if byName == nil {
			byName = make(map[string]*parser.Function)
			moduleLevel[fn.Unit()] = byName
		}
		// Later definitions shadow earlier ones at run time.
		byName[fn.Name] = fn
	}

	for unit, byName := range moduleLevel {
		for _, call := range unit.MainGuardCalls {
			if call.Dynamic || call.Dotted() {
				continue
			}
			if fn, ok := byName[call.Name]; ok {
				targets[fn] = true
			}
		}
	}
	return targets
}

// EntrySet indexes entry points by function ID.
func EntrySet(entries []EntryPoint) map[string]bool {
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		set[e.Function.ID()] = true
	}
	return set
}
