package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"binembed/internal/cli"
)

// main canonicalizes all CLI inputs into a CLIInvocation before any pipeline
// logic is invoked.
func main() {
	inv, err := cli.ParseInvocation(os.Args[1:])
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			fmt.Fprint(os.Stdout, cli.Usage())
			os.Exit(cli.ExitSuccess)
		}
		var invErr *cli.InvocationError
		if errors.As(err, &invErr) {
			fmt.Fprintln(os.Stderr, invErr.Message)
			fmt.Fprint(os.Stderr, cli.Usage())
			os.Exit(invErr.ExitCode)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitInternalError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	result, execErr := cli.Execute(ctx, inv)
	stop()
	if execErr != nil {
		fmt.Fprintln(os.Stderr, execErr)
	}
	os.Exit(result.ExitCode)
}
