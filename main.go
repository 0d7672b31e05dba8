// pattern: Imperative Shell
package main

import (
	"os"

	flag "github.com/spf13/pflag"

	"qdpi/internal/cli"
)

var version = "dev"

func main() {
	// Stop parsing flags after the first non-flag arg (the subcommand),
	// so that --help after a subcommand is handled by the subcommand.
	flag.CommandLine.SetInterspersed(false)

	configPath := flag.StringP("config", "c", "", "config file (default: ./.qdpi.yaml or ~/.config/qdpi/config.yaml)")

	// Override flag.Usage before Parse so --help uses the CLI app's help
	flag.Usage = func() {
		app := cli.BuildApp(version, *configPath)
		app.PrintHelp(os.Stderr)
		flag.PrintDefaults()
	}

	flag.Parse()

	app := cli.BuildApp(version, *configPath)
	app.Execute(flag.Args())
}
