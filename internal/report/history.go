package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/nrser/drt/internal/history"
)

// RenderHistory prints past runs, newest first, for the -H flag.
func RenderHistory(w io.Writer, runs []*history.Run) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"when", "Δt", passStyle.Sprint("passed"), failStyle.Sprint("failed"), "%"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})

	for _, run := range runs {
		when := run.StartedAt.Local().Format("2006-01-02 15:04:05")
		if run.FailFast {
			when += faintStyle.Sprint(" (fast)")
		}

		table.Append([]string{
			when,
			FormatDuration(run.Duration),
			fmt.Sprintf("%d", run.Passed),
			fmt.Sprintf("%d", run.Failed),
			Percent(run.Passed, run.Attempted),
		})
	}

	table.Render()
}
