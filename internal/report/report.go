// Package report renders run results for the terminal: the summary
// table, per-example failure reports, and the optional header panel.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/nrser/drt/internal/runner"
)

var (
	passStyle  = color.New(color.FgGreen, color.Bold)
	failStyle  = color.New(color.FgRed, color.Bold)
	faintStyle = color.New(color.FgHiBlack)
	boldStyle  = color.New(color.Bold)
)

// FormatDuration renders Δt with a unit that keeps two decimals readable.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.2f µs", float64(d.Nanoseconds())/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.2f ms", float64(d.Nanoseconds())/1e6)
	default:
		return fmt.Sprintf("%.2f s", d.Seconds())
	}
}

// Percent renders the pass rate: "-" when nothing ran, green at 100%,
// red otherwise.
func Percent(passed, attempted int) string {
	if attempted == 0 {
		return faintStyle.Sprint("-")
	}

	number := int(float64(passed)/float64(attempted)*100 + 0.5)
	s := fmt.Sprintf("%d%%", number)

	if number == 100 {
		return passStyle.Sprint(s)
	}
	return failStyle.Sprint(s)
}

// RenderTable prints the results table, sorted by name, with a summary
// row at the bottom.
func RenderTable(w io.Writer, results []*runner.TargetResult) {
	sorted := make([]*runner.TargetResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"test", "Δt", passStyle.Sprint("passed"), failStyle.Sprint("failed"), "%"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})

	for _, r := range sorted {
		if r.Err != nil {
			table.Append([]string{
				r.Name,
				FormatDuration(r.Duration),
				"-",
				"-",
				failStyle.Sprint("error"),
			})
			continue
		}

		table.Append([]string{
			r.Name,
			FormatDuration(r.Duration),
			fmt.Sprintf("%d", r.Passed()),
			fmt.Sprintf("%d", r.Failed),
			Percent(r.Passed(), r.Attempted),
		})
	}

	totals := runner.Sum(results)
	table.SetFooter([]string{
		boldStyle.Sprint("Total"),
		FormatDuration(totals.Duration),
		fmt.Sprintf("%d", totals.Passed),
		fmt.Sprintf("%d", totals.Failed),
		Percent(totals.Passed, totals.Attempted),
	})

	table.Render()
}

const failureRule = "**********************************************************************"

// RenderFailures prints a doctest-style report for every failed example
// and every collection error.
func RenderFailures(w io.Writer, results []*runner.TargetResult) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintln(w, failureRule)
			fmt.Fprintf(w, "Error collecting %s:\n    %v\n", r.Name, r.Err)
		}

		for _, f := range r.Failures {
			fmt.Fprintln(w, failureRule)
			fmt.Fprintf(w, "File %q, line %d\n", f.Filename, f.Line)
			fmt.Fprintln(w, "Failed example:")
			writeIndented(w, f.Source)

			if f.Want == "" {
				fmt.Fprintln(w, "Expected nothing")
			} else {
				fmt.Fprintln(w, "Expected:")
				writeIndented(w, f.Want)
			}

			if f.Exc != "" {
				fmt.Fprintln(w, "Exception raised:")
				writeIndented(w, f.Exc)
			} else if f.Got == "" {
				fmt.Fprintln(w, "Got nothing")
			} else {
				fmt.Fprintln(w, "Got:")
				writeIndented(w, f.Got)
			}
		}
	}
}

func writeIndented(w io.Writer, block string) {
	for _, line := range strings.Split(strings.TrimRight(block, "\n"), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
}
