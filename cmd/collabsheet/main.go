// Command collabsheet is a minimal console front end for the engine
// package: it wires Connect to command-line flags and drives the session
// from stdin, since the grid/menus/dialogs UI shell is explicitly out of
// scope (spec.md §1's Non-goals). Its RunApp/HandleExitError split mirrors
// the teacher's App.go entrypoint shape.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/berejant/collabsheet/contracts"
	"github.com/berejant/collabsheet/engine"
)

// ExitCodeMainError is returned to the OS when RunApp fails.
const ExitCodeMainError = 1

func main() {
	os.Exit(HandleExitError(os.Stderr, RunApp(os.Args[1:], os.Stdin, os.Stdout)))
}

// RunApp parses flags, connects, and drives the session from in until it
// reaches EOF or the user types "leave".
func RunApp(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("collabsheet", flag.ContinueOnError)
	host := fs.String("host", "localhost", "spreadsheet server host")
	port := fs.Int("port", engine.DefaultPort, "spreadsheet server port")
	file := fs.String("file", "", "spreadsheet file name")
	password := fs.String("password", "", "spreadsheet password")
	createNew := fs.Bool("create", false, "create a new spreadsheet instead of joining")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("collabsheet: -file is required")
	}

	e, err := engine.Connect(engine.Config{
		Host:      *host,
		Port:      *port,
		File:      *file,
		Password:  *password,
		CreateNew: *createNew,
	})
	if err != nil {
		return err
	}

	e.Subscribe(func(event contracts.Event) { printEvent(out, event) })

	return runCommandLoop(e, in, out)
}

func runCommandLoop(e *engine.Engine, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "undo":
			if err := e.Undo(); err != nil {
				fmt.Fprintln(out, "undo:", err)
			}
		case line == "save":
			if err := e.Save(); err != nil {
				fmt.Fprintln(out, "save:", err)
			}
		case line == "leave":
			return e.Leave()
		default:
			cell, content, ok := strings.Cut(line, "=")
			if !ok {
				fmt.Fprintln(out, "unrecognized command:", line)
				continue
			}
			if err := e.Change(strings.TrimSpace(cell), content); err != nil {
				fmt.Fprintln(out, "change:", err)
			}
		}
	}
	return scanner.Err()
}

func printEvent(out io.Writer, event contracts.Event) {
	switch event.Kind {
	case contracts.EventJoined:
		fmt.Fprintln(out, "joined")
	case contracts.EventUpdated:
		fmt.Fprintln(out, "updated:", event.Cells)
	case contracts.EventFailed:
		fmt.Fprintln(out, "failed:", strings.Join(event.Lines, " | "))
	case contracts.EventUndoEnd:
		fmt.Fprintln(out, "undo stack empty")
	case contracts.EventConnectionClosed:
		fmt.Fprintln(out, "connection closed")
	case contracts.EventSocketError:
		fmt.Fprintln(out, "socket error:", event.Reason)
	case contracts.EventGenericError:
		fmt.Fprintln(out, "server error")
	}
}

// HandleExitError prints err to errStream, if non-nil, and returns the
// process exit code.
func HandleExitError(errStream io.Writer, err error) int {
	if err != nil {
		fmt.Fprintln(errStream, err)
		return ExitCodeMainError
	}
	return 0
}
