package main

import (
	"context"
	"fmt"
	"os"

	"github.com/civicdesk/rollcall/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "rollcall:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
