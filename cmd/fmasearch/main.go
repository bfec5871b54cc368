package main

import (
	"errors"
	"fmt"
	"os"

	"fmasearch/internal/search"
)

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	a.teardown()
	if err != nil {
		// Action errors were already printed as a status line.
		var e *search.E
		if !errors.As(err, &e) {
			fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		}
		os.Exit(1)
	}
}
