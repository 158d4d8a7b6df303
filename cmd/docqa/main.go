// Command docqa uploads PDF documents and asks questions about them from the terminal.
package main

import (
	"fmt"
	"os"

	docqa "github.com/JohnPlummer/jp-go-docqa"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Request failures were already shown with their display copy.
		if _, ok := docqa.AsFailure(err); !ok {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
