package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/forPelevin/podclip/internal/types"
)

func clipStatus(c types.ManifestClip) string {
	switch {
	case c.Error != "":
		return "failed"
	case c.Uploaded:
		return "uploaded"
	default:
		return "skipped"
	}
}

// writeSummary prints one row per clip. Nothing is printed for an empty run.
func writeSummary(w io.Writer, m types.Manifest) {
	if len(m.Clips) == 0 {
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Start", "End", "Key", "Cues", "Frames", "Status"})
	for _, c := range m.Clips {
		tw.AppendRow(table.Row{
			c.Index,
			fmt.Sprintf("%.2f", c.StartSec),
			fmt.Sprintf("%.2f", c.EndSec),
			c.Key,
			c.Cues,
			c.Frames,
			clipStatus(c),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	tw.Render()
}
