// pattern: Imperative Shell
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"qdpi/internal/config"
	"qdpi/internal/instance"
)

func deleteCommand(configPath string) *Command {
	return &Command{
		Name:    "delete",
		Summary: "Delete one or more environments",
		Usage:   "Usage: qdpi delete <name> [<name> ...] [--force] [-y]",
		Run: func(args []string) error {
			fs := flag.NewFlagSet("delete", flag.ContinueOnError)
			force := fs.BoolP("force", "f", false, "delete even if there are unpushed changes")
			yes := fs.BoolP("yes", "y", false, "skip confirmation prompt")
			if err := fs.Parse(args); err != nil {
				fail(nil, "%v", err)
			}
			if fs.NArg() < 1 {
				fmt.Fprintln(os.Stderr, "Usage: qdpi delete <name> [<name> ...] [--force] [-y]")
				os.Exit(1)
			}

			ctx, err := newCmdContext(configPath)
			if err != nil {
				fail(nil, "%v", err)
			}
			defer ctx.Close()
			styles := ctx.styles

			fl, err := instance.Lock(config.DataDir())
			if err != nil {
				fail(styles, "%v", err)
			}
			defer instance.Unlock(fl)

			failed := false
			for _, name := range fs.Args() {
				if !*yes && !confirmDelete(styles, name) {
					fmt.Println("Aborted.")
					continue
				}

				if err := ctx.manager.Delete(name, *force); err != nil {
					fmt.Fprintf(os.Stderr, "%s %v\n", styles.Error(fmt.Sprintf("Error deleting %q:", name)), err)
					failed = true
					continue
				}
				fmt.Println(styles.Success(fmt.Sprintf("Deleted environment %q", name)))
			}

			if failed {
				os.Exit(1)
			}
			return nil
		},
	}
}

// confirmDelete asks on stdin before removing an environment.
func confirmDelete(styles *Styles, name string) bool {
	fmt.Printf("Delete environment %q? [y/N] ", name)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
