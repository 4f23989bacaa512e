package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/cozy/cozy-build/cmd/cozy-build/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build   commands.BuildCmd  `cmd:"" help:"Build the application assets"`
		Watch   commands.WatchCmd  `cmd:"" help:"Build and rebuild on changes"`
		Config  commands.ConfigCmd `cmd:"" help:"Print the resolved build configuration"`
		Debug   bool               `help:"Enable debug mode." env:"COZY_SCRIPTS_DEBUG"`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("cozy-build"),
		kong.Description("Bundle a Cozy application's scripts, stylesheets and fonts."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
