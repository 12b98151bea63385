package trace

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// Step is one recent opcode dispatch, captured as a label (step index and
// opcode mnemonic) and the rendered value of every named variable at that
// point in the search.
type Step struct {
	Label  string
	Values map[string]string // variable name -> rendered value, "?" if unbound
}

// RenderFrame renders a short history of recent opcode dispatches as a
// table: one row per variable in varNames, one column per entry of steps,
// so a reader can see how each variable's binding evolved across the most
// recent handful of opcodes — the same register-frame-over-time view
// `-frames` gives the demo CLI.
func RenderFrame(w io.Writer, varNames []string, steps []Step) {
	headers := make([]string, len(steps)+1)
	headers[0] = "var"
	for i, s := range steps {
		headers[i+1] = s.Label
	}

	alignment := make([]tw.Align, len(headers))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(headers)

	for _, name := range varNames {
		row := make([]string, len(steps)+1)
		row[0] = name
		for i, s := range steps {
			v, ok := s.Values[name]
			if !ok {
				v = "?"
			}
			row[i+1] = v
		}
		table.Append(row)
	}
	table.Render()
}
