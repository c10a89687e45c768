package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/richardwooding/feed-miner/cmd"
	"github.com/richardwooding/feed-miner/config"
	"github.com/richardwooding/feed-miner/model"
	"github.com/richardwooding/feed-miner/version"
)

// CLI is the command line of feed-miner.
type CLI struct {
	model.Globals

	Discover cmd.DiscoverCmd `cmd:"" default:"withargs" help:"Discover RSS and Atom feeds for a list of page URLs and write them as OPML."`
}

func parserOptions() []kong.Option {
	return []kong.Option{
		kong.Name("feed-miner"),
		kong.Description("Find the RSS and Atom feeds behind a list of web pages and export them as OPML."),
		kong.UsageOnError(),
		kong.Configuration(config.TOMLLoader, config.DefaultPaths...),
		kong.Vars{"version": version.Get().String()},
	}
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli, parserOptions()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	kctx.BindTo(ctx, (*context.Context)(nil))

	err := kctx.Run(&cli.Globals)
	stop()
	kctx.FatalIfErrorf(err)
}
