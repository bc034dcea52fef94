// Command translate runs offline translations and inspects the local model
// library from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/nupi-ai/plugin-translate-local/internal/config"
)

func main() {
	cmd := newRootCmd(config.Loader{})
	cmd.SetIn(os.Stdin)
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
