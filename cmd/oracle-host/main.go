// Command oracle-host runs oracle contracts against the chain extension.
//
// Usage:
//
//	oracle-host run    [-config file] [-env file] [-contract file] [-export name] [-input hex]
//	oracle-host serve  [-config file] [-env file]
//	oracle-host schema
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

const usage = `usage: oracle-host <command> [flags]

commands:
  run     load a contract, call its entry point and print the result
  serve   run the price feeder and the HTTP API
  schema  print the configuration JSON schema
`

// run dispatches a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "run":
		err = runContract(ctx, args[1:], stdout, stderr)
	case "serve":
		err = serve(ctx, args[1:], stderr)
	case "schema":
		err = printSchema(stdout)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "oracle-host %s: %v\n", args[0], err)
		return 1
	}
	return 0
}
