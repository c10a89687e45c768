// Package cmd implements the feed-miner commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/richardwooding/feed-miner/discover"
	"github.com/richardwooding/feed-miner/fetch"
	"github.com/richardwooding/feed-miner/model"
)

// DiscoverCmd reads page URLs from a file, discovers their feeds and writes
// them as OPML.
type DiscoverCmd struct {
	Input    string `name:"input" short:"i" required:"" type:"path" help:"File with one page URL per line (# starts a comment)." placeholder:"FILE"`
	Output   string `name:"output" short:"o" default:"feeds.opml" type:"path" help:"OPML file to write." placeholder:"FILE"`
	Type     string `name:"type" short:"t" default:"all" enum:"rss,atom,all" help:"Feed type to export (rss, atom, all)."`
	Split    bool   `name:"split" help:"Also write <output>-rss.opml and <output>-atom.opml."`
	Merge    bool   `name:"merge" help:"Keep feeds already present in the output file."`
	NoDedupe bool   `name:"no-dedupe" help:"Keep feeds found on more than one page."`
	Verbose  bool   `name:"verbose" short:"v" help:"Report the outcome for every page."`

	Timeout               time.Duration `name:"timeout" default:"10s" help:"Timeout for each HTTP request."`
	Concurrency           int           `name:"concurrency" default:"0" help:"Pages processed at once. 0 picks a CPU-based default, negative is unbounded."`
	CandidateConcurrency  int           `name:"candidate-concurrency" default:"8" help:"Candidates validated at once per page. Negative is unbounded."`
	FirstConventionalOnly bool          `name:"first-conventional-only" help:"Probe well-known paths only when a page declares no feed, stopping at the first hit."`

	RequestsPerSecond float64       `name:"requests-per-second" default:"5" help:"Request rate per host. Negative disables rate limiting."`
	Burst             int           `name:"burst" default:"10" help:"Request burst per host."`
	Retries           int           `name:"retries" default:"2" help:"Retries for network errors, 429 and 5xx responses."`
	CacheTTL          time.Duration `name:"cache-ttl" default:"10m" help:"How long fetched documents are reused."`
	NoCache           bool          `name:"no-cache" help:"Disable the response cache."`
	Engine            string        `name:"engine" default:"http" enum:"http,colly" help:"Fetch engine (http, colly)."`
	AllowPrivateIPs   bool          `name:"allow-private-ips" help:"Allow pages and feeds on localhost and private networks."`
	UserAgent         string        `name:"user-agent" help:"User-Agent header sent with every request."`
}

// Run implements the discover command.
func (c *DiscoverCmd) Run(globals *model.Globals, ctx context.Context, kctx *kong.Context) error {
	return c.run(ctx, globals, kctx.Stdout)
}

func (c *DiscoverCmd) run(ctx context.Context, globals *model.Globals, stdout io.Writer) error {
	logger := model.NewLogger(globals.LogOptions(c.Verbose))

	filter, err := c.filter()
	if err != nil {
		return err
	}

	engine, err := c.engine()
	if err != nil {
		return err
	}

	urls, err := model.ReadURLsFromFile(c.Input)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"input": c.Input, "urls": len(urls)}).Debug("loaded page URLs")

	d, err := discover.New(c.discoverConfig(engine, logger))
	if err != nil {
		return err
	}
	defer d.Close()

	batch := d.DiscoverMany(ctx, urls, c.Verbose)
	if ctx.Err() != nil {
		logger.Warn("interrupted, writing partial results")
	}

	feeds := batch.Feeds
	if c.Merge {
		existing, err := readExisting(c.Output)
		if err != nil {
			return err
		}
		feeds = append(existing, feeds...)
	}
	if c.Merge || !c.NoDedupe {
		feeds = model.DedupeFeeds(feeds)
	}

	if err := model.WriteOPMLFile(feeds, c.Output, filter); err != nil {
		return err
	}
	if c.Split {
		if err := writeSplit(feeds, c.Output); err != nil {
			return err
		}
	}

	printSummary(stdout, len(urls), batch, model.FilterFeeds(feeds, filter), c.Output)
	return nil
}

func (c *DiscoverCmd) filter() (*model.FeedType, error) {
	if strings.EqualFold(c.Type, "all") || c.Type == "" {
		return nil, nil
	}
	feedType, err := model.ParseFeedType(c.Type)
	if err != nil {
		return nil, model.CreateConfigurationError(err, fmt.Sprintf("unknown feed type %q", c.Type))
	}
	return &feedType, nil
}

func (c *DiscoverCmd) engine() (model.Engine, error) {
	if c.Engine == "" {
		return model.UndefinedEngine, nil
	}
	engine, err := model.ParseEngine(c.Engine)
	if err != nil {
		return model.UndefinedEngine, model.CreateConfigurationError(err, fmt.Sprintf("unknown engine %q", c.Engine))
	}
	return engine, nil
}

func (c *DiscoverCmd) discoverConfig(engine model.Engine, logger logrus.FieldLogger) discover.Config {
	cacheEnabled := !c.NoCache
	return discover.Config{
		FetchConfig: fetch.Config{
			Engine:            engine,
			Timeout:           c.Timeout,
			UserAgent:         c.UserAgent,
			RequestsPerSecond: c.RequestsPerSecond,
			BurstCapacity:     c.Burst,
			MaxRetries:        c.Retries,
			CacheEnabled:      &cacheEnabled,
			CacheTTL:          c.CacheTTL,
			Logger:            logger,
		},
		Concurrency:           c.Concurrency,
		CandidateConcurrency:  c.CandidateConcurrency,
		FirstConventionalOnly: c.FirstConventionalOnly,
		AllowPrivateIPs:       c.AllowPrivateIPs,
		Logger:                logger,
	}
}

// readExisting loads the feeds of a previous run. A missing file is empty.
func readExisting(path string) ([]model.Feed, error) {
	doc, err := model.ReadOPMLFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Feeds(), nil
}

func writeSplit(feeds []model.Feed, output string) error {
	for _, feedType := range []model.FeedType{model.FeedTypeRSS, model.FeedTypeAtom} {
		if err := model.WriteOPMLFile(feeds, splitPath(output, feedType), &feedType); err != nil {
			return err
		}
	}
	return nil
}

// splitPath turns feeds.opml into feeds-rss.opml.
func splitPath(output string, feedType model.FeedType) string {
	base := strings.TrimSuffix(output, filepath.Ext(output))
	return fmt.Sprintf("%s-%s.opml", base, feedType)
}

func printSummary(w io.Writer, total int, batch model.BatchResult, written []model.Feed, output string) {
	failed := len(batch.Failures)
	counts := model.CountByType(written)

	_, _ = fmt.Fprintf(w, "Processed %d URL(s): %d succeeded, %d failed\n", total, total-failed, failed)
	_, _ = fmt.Fprintf(w, "Found %d feed(s)\n", len(batch.Feeds))
	_, _ = fmt.Fprintf(w, "Wrote %d feed(s) to %s (%d RSS, %d Atom)\n",
		len(written), output, counts[model.FeedTypeRSS], counts[model.FeedTypeAtom])
}
