package bytecode

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble returns a human-readable listing of the whole program.
// Nodes appear in sorted order; labels are annotated at their target
// instruction.
func Disassemble(p *Program) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; Strand Bytecode v%d\n", ProgramVersion))
	sb.WriteString(fmt.Sprintf("; Nodes: %d  Strings: %d  Initial values: %d\n\n",
		len(p.Nodes), len(p.Strings), len(p.InitialValues)))

	for _, name := range sortedKeys(p.Nodes) {
		sb.WriteString(DisassembleNode(p.Nodes[name]))
		sb.WriteString("\n")
	}

	if len(p.InitialValues) > 0 {
		sb.WriteString("; Initial values:\n")
		for _, name := range sortedKeys(p.InitialValues) {
			sb.WriteString(fmt.Sprintf(";   %s = %s\n", name, p.InitialValues[name]))
		}
	}

	return sb.String()
}

// DisassembleNode returns a listing for a single node.
func DisassembleNode(n *Node) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; === %s ===\n", n.Name))
	if len(n.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("; Tags: %s\n", strings.Join(n.Tags, ", ")))
	}

	// Invert the label map so targets can be annotated in order.
	labelsAt := make(map[int][]string)
	for label, target := range n.Labels {
		labelsAt[target] = append(labelsAt[target], label)
	}
	for _, labels := range labelsAt {
		sort.Strings(labels)
	}

	for i, in := range n.Instructions {
		for _, label := range labelsAt[i] {
			sb.WriteString(fmt.Sprintf("%s:\n", label))
		}
		sb.WriteString(fmt.Sprintf("  %04d  %-15s", i, in.Op.String()))
		for j, v := range in.Operands {
			if j > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(" " + truncateOperand(v))
		}
		sb.WriteString("\n")
	}
	for _, label := range labelsAt[len(n.Instructions)] {
		sb.WriteString(fmt.Sprintf("%s:\n", label))
	}

	return sb.String()
}

func truncateOperand(v Value) string {
	display := v.String()
	if len(display) > 40 {
		display = display[:37] + "..."
	}
	return strings.NewReplacer("\n", "\\n", "\t", "\\t").Replace(display)
}
