// pattern: Functional Core
package cli

import (
	"fmt"
	"io"
	"os"
)

// Command represents a single CLI command with its metadata and handler.
type Command struct {
	Name    string
	Summary string
	Usage   string
	Run     func(args []string) error
}

// App represents the top-level CLI application.
type App struct {
	commands map[string]*Command
	order    []string
	version  string
}

// NewApp creates a new CLI application with the given version.
func NewApp(version string) *App {
	return &App{
		commands: make(map[string]*Command),
		version:  version,
	}
}

// AddCommand registers a top-level command. Registration order is the
// help display order.
func (a *App) AddCommand(cmd *Command) {
	a.commands[cmd.Name] = cmd
	a.order = append(a.order, cmd.Name)
}

// Execute dispatches the CLI arguments to the appropriate command.
func (a *App) Execute(args []string) {
	if len(args) == 0 {
		a.PrintHelp(os.Stderr)
		os.Exit(1)
	}

	cmdName := args[0]

	if cmdName == "version" || cmdName == "--version" {
		fmt.Printf("qdpi %s\n", a.version)
		return
	}
	if cmdName == "help" || cmdName == "--help" || cmdName == "-h" {
		a.PrintHelp(os.Stdout)
		return
	}

	cmd, ok := a.commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmdName)
		a.PrintHelp(os.Stderr)
		os.Exit(1)
	}

	// Check for help flags before running
	for _, arg := range args[1:] {
		if arg == "--help" || arg == "-h" {
			fmt.Fprintf(os.Stderr, "%s\n", cmd.Usage)
			return
		}
	}

	// Commands handle their own error reporting and exit codes.
	_ = cmd.Run(args[1:])
}

// PrintHelp prints the top-level help text.
func (a *App) PrintHelp(w io.Writer) {
	fmt.Fprintf(w, "Usage: qdpi <command> [options]\n\n")
	fmt.Fprintf(w, "Manage multi-repository development environments backed by git worktrees.\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, name := range a.order {
		cmd := a.commands[name]
		fmt.Fprintf(w, "  %-10s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintf(w, "\nUse \"qdpi <command> --help\" for command details.\n")
}
