// pattern: Imperative Shell
package cli

import (
	"fmt"

	flag "github.com/spf13/pflag"

	"qdpi/internal/config"
)

// BuildApp constructs the CLI application with all commands registered.
// configPath overrides config discovery when set.
func BuildApp(version, configPath string) *App {
	app := NewApp(version)
	app.AddCommand(initCommand())
	app.AddCommand(createCommand(configPath))
	app.AddCommand(reviewCommand(configPath))
	app.AddCommand(listCommand(configPath))
	app.AddCommand(infoCommand(configPath))
	app.AddCommand(deleteCommand(configPath))
	app.AddCommand(pathCommand(configPath))
	app.AddCommand(configCommand(configPath))
	return app
}

func initCommand() *Command {
	return &Command{
		Name:    "init",
		Summary: "Create a default configuration file",
		Usage:   "Usage: qdpi init [--force]",
		Run: func(args []string) error {
			fs := flag.NewFlagSet("init", flag.ContinueOnError)
			force := fs.BoolP("force", "f", false, "overwrite existing config file")
			if err := fs.Parse(args); err != nil {
				fail(nil, "%v", err)
			}

			path, err := config.Init(*force)
			if err != nil {
				fail(nil, "%v", err)
			}

			styles := NewStyles("")
			fmt.Printf("%s %s\n", styles.Success("Created configuration file:"), path)
			fmt.Println("\nEdit the config to add your repositories:")
			fmt.Printf("  $EDITOR %s\n", path)
			fmt.Println("\nOptionally add templates to:")
			fmt.Printf("  %s/templates/\n", config.Dir())
			return nil
		},
	}
}
