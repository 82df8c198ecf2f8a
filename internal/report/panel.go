package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

const panelTitle = "+++ Dr. Testerson +++"

var (
	titleStyle = color.New(color.Bold)
	leadStyle  = color.New(color.Italic)
)

// RenderPanel prints the ostentatious header box listing the targets,
// shown with -p before any test runs.
func RenderPanel(w io.Writer, targets []string, cwd string) {
	lead := "Dr. T! These files need your help!"

	items := make([]string, len(targets))
	for i, target := range targets {
		items[i] = target
		if !filepath.IsAbs(target) {
			continue
		}
		if rel, err := filepath.Rel(cwd, target); err == nil && !strings.HasPrefix(rel, "..") {
			items[i] = rel
		}
	}

	width := utf8.RuneCountInString(lead)
	for _, item := range items {
		if n := utf8.RuneCountInString(item) + 4; n > width {
			width = n
		}
	}
	if n := utf8.RuneCountInString(panelTitle) + 2; n > width {
		width = n
	}

	fmt.Fprintln(w, buildBorder("┏", "┓", panelTitle, width))
	fmt.Fprintf(w, "┃ %s%s ┃\n", leadStyle.Sprint(lead), pad(width-utf8.RuneCountInString(lead)))

	for i, item := range items {
		branch := "├── "
		if i == len(items)-1 {
			branch = "└── "
		}
		line := branch + item
		fmt.Fprintf(w, "┃ %s%s ┃\n", line, pad(width-utf8.RuneCountInString(line)))
	}

	fmt.Fprintln(w, buildBorder("┗", "┛", "", width))
}

func buildBorder(left, right, title string, width int) string {
	inner := width + 2
	if title == "" {
		return left + strings.Repeat("━", inner) + right
	}

	styled := titleStyle.Sprint(title)
	remaining := inner - utf8.RuneCountInString(title) - 2
	before := remaining / 2
	after := remaining - before
	return left + strings.Repeat("━", before) + " " + styled + " " + strings.Repeat("━", after) + right
}

func pad(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}
