package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/scalapatisserie/muffin-site/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	g := &Global{}
	k := kong.Parse(&cli,
		kong.Name("muffin-site"),
		kong.Description("Builds and serves the Muffin documentation site."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(g),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := k.Run()
	if g.Logger != nil {
		_ = g.Logger.Sync()
	}
	k.FatalIfErrorf(err)
}
