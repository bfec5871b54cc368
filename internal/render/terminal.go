package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
)

var (
	titleStyle = pterm.NewStyle(pterm.FgCyan, pterm.Bold)
	labelStyle = pterm.NewStyle(pterm.FgLightCyan)
	dimStyle   = pterm.NewStyle(pterm.FgGray)
)

// Terminal writes cards as pterm boxes.
func Terminal(w io.Writer, cards []Card) {
	if len(cards) == 0 {
		fmt.Fprintln(w, dimStyle.Sprint("No results."))
		return
	}
	for i, c := range cards {
		title := titleStyle.Sprintf("%d. %s", i+1, c.Badge)
		if c.Badge == "Original" {
			title = titleStyle.Sprint(c.Badge)
		}
		box := pterm.DefaultBox.WithTitle(title).WithPadding(1).Sprint(cardBody(c))
		fmt.Fprintln(w, box)
	}
}

func cardBody(c Card) string {
	var lines []string
	for _, b := range c.Blocks {
		if b.Label == "" {
			lines = append(lines, pterm.Bold.Sprint(b.Value))
			continue
		}
		lines = append(lines, labelStyle.Sprint(b.Label+": ")+b.Value)
	}
	if c.Score != "" {
		lines = append(lines, labelStyle.Sprint("Score: ")+c.Score)
	}
	if c.Lyrics != "" {
		lines = append(lines, dimStyle.Sprint(c.Lyrics+"..."))
	}
	if c.Elapsed != "" {
		lines = append(lines, labelStyle.Sprint("Time: ")+c.Elapsed)
	}
	if c.IDLine != "" {
		lines = append(lines, labelStyle.Sprint("Track ID: ")+c.IDLine)
	}
	return strings.Join(lines, "\n")
}

// TerminalTable writes t as a pterm table.
func TerminalTable(w io.Writer, t Table) error {
	if len(t.Rows) == 0 {
		fmt.Fprintln(w, dimStyle.Sprint("No rows."))
		return nil
	}
	data := pterm.TableData{t.Columns}
	data = append(data, t.Rows...)
	out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	fmt.Fprintln(w, out)
	return nil
}
