package decision

import (
	"fmt"
	"strings"
)

// DOT renders the graph in the directed-graph textual format of spec §6
// egress: root node "rule", one node per condition colored by outcome,
// and a terminal node summarizing the result.
func (g *Graph) DOT() []byte {
	var b strings.Builder

	b.WriteString("digraph CorrelationGraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=rounded];\n")

	fmt.Fprintf(&b, "  rule [label=%q, style=\"rounded,filled\", fillcolor=lightblue];\n",
		fmt.Sprintf("%s\\n%s", g.RuleID, g.RuleName))

	prev := "rule"
	for _, cr := range g.ConditionsEvaluated {
		node := fmt.Sprintf("cond%d", cr.Index+1)
		color := "lightcoral"
		if cr.Matched {
			color = "lightgreen"
		}
		fmt.Fprintf(&b, "  %s [label=%q, style=\"rounded,filled\", fillcolor=%s];\n",
			node, fmt.Sprintf("Condition %d\\n%s", cr.Index+1, cr.Type), color)
		fmt.Fprintf(&b, "  %s -> %s;\n", prev, node)
		prev = node
	}

	if g.Matched {
		b.WriteString("  result [shape=ellipse, style=filled, fillcolor=green, label=\"MATCHED\\nAlert Generated\"];\n")
	} else {
		b.WriteString("  result [shape=ellipse, style=filled, fillcolor=red, label=\"NO MATCH\"];\n")
	}
	fmt.Fprintf(&b, "  %s -> result;\n", prev)

	b.WriteString("}\n")
	return []byte(b.String())
}
