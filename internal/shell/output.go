package shell

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"fmasearch/internal/render"
	"fmasearch/internal/session"
)

// Print writes res the way the terminal shows it: reference card, results,
// then the status line and notices.
func Print(w io.Writer, res session.Result, showSQL bool) error {
	if res.Reference != nil {
		render.Terminal(w, []render.Card{*res.Reference})
	}

	switch {
	case res.Table != nil:
		if err := render.TerminalTable(w, *res.Table); err != nil {
			return err
		}
		if showSQL && res.SQL != "" {
			fmt.Fprint(w, pterm.FgGray.Sprintln("SQL: "+res.SQL))
		}
	case len(res.Cards) > 0:
		render.Terminal(w, res.Cards)
	}

	for _, n := range res.Notices {
		fmt.Fprint(w, pterm.Warning.Sprintln(n))
	}
	if res.Status != "" {
		fmt.Fprint(w, pterm.Info.Sprintln(res.Status))
	}
	return nil
}

// PrintError writes the status line for a failed action.
func PrintError(w io.Writer, res session.Result, err error) {
	msg := res.Status
	if msg == "" {
		msg = session.Describe(err)
	}
	fmt.Fprint(w, pterm.Error.Sprintln(msg))
}
