// Command mydraw inspects, creates and exports .mydraw drawing files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

type runnable interface{ Run() error }

// UsageError reports bad arguments to a subcommand.
type UsageError struct {
	fs  *flag.FlagSet
	msg string
}

func (e *UsageError) Error() string { return e.msg }

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage: mydraw <command> [flags]

commands:
  info <file.mydraw>                 print the shapes a drawing holds
  export [flags] <file.mydraw>       render a drawing to png, pdf or a thumbnail
  sample [-o file.mydraw]            write a drawing with one shape of every kind
  discover [-timeout 2s]             list mydraw servers on the local network`)
}

func parse(args []string, stdout io.Writer) (runnable, error) {
	if len(args) == 0 {
		return nil, &UsageError{msg: "missing command"}
	}
	rest := args[1:]
	switch args[0] {
	case "info":
		return parseInfoCmd(rest, stdout)
	case "export":
		return parseExportCmd(rest, stdout)
	case "sample":
		return parseSampleCmd(rest, stdout)
	case "discover":
		return parseDiscoverCmd(rest, stdout)
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil, nil
	}
	return nil, &UsageError{msg: fmt.Sprintf("unknown command %q", args[0])}
}

func main() {
	cmd, err := parse(os.Args[1:], os.Stdout)
	if err == nil && cmd != nil {
		err = cmd.Run()
	}
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return
	}

	fmt.Fprintf(os.Stderr, "mydraw: %v\n", err)
	var ue *UsageError
	if errors.As(err, &ue) {
		if ue.fs != nil {
			ue.fs.Usage()
		} else {
			usage(os.Stderr)
		}
		os.Exit(2)
	}
	os.Exit(1)
}
