// cmd/api/main.go
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// command is a subcommand of the api binary. It returns the exit code.
type command func(args []string) int

var commands = map[string]command{
	"serve": serve,
	"token": issueToken,
}

// main dispatches to a subcommand; with none, or with flags only, it serves.
func main() {
	name, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}

	run, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q, expected one of: %s\n", name, commandNames())
		os.Exit(2)
	}
	os.Exit(run(args))
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
