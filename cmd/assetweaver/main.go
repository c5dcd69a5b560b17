package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"assetweaver/internal/cli"
	"assetweaver/internal/logging"
)

func main() {
	logging.ConfigureRuntime()

	args := os.Args[1:]
	if wd, err := os.Getwd(); err == nil {
		args = cli.WithWorkDir(args, wd)
	}
	inv, err := cli.ParseInvocation(args)
	if err != nil {
		var invErr *cli.InvocationError
		if errors.As(err, &invErr) {
			fmt.Fprintln(os.Stderr, invErr.Message)
			fmt.Fprintln(os.Stderr, "usage: assetweaver [--workdir dir] [--config file] [--trace file] [--list] [task ...]")
			os.Exit(invErr.ExitCode)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitInternalError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	result, execErr := cli.Execute(ctx, inv)
	stop()

	if result.Listing != "" {
		fmt.Fprint(os.Stdout, result.Listing)
	}
	if execErr != nil {
		fmt.Fprintln(os.Stderr, execErr)
	}
	os.Exit(result.ExitCode)
}
