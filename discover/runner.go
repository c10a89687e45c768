package discover

import (
	"context"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/richardwooding/feed-miner/model"
)

// DiscoverMany runs DiscoverOne for every URL, bounded by Config.Concurrency.
// Results and feeds keep input order regardless of completion order, and a
// failing page never stops the others. Feeds found on several pages are not
// deduplicated. When verbose is true each page's outcome is logged at info.
func (d *Discoverer) DiscoverMany(ctx context.Context, urls []string, verbose bool) model.BatchResult {
	results := make([]model.DiscoveryResult, len(urls))

	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)
	for i, pageURL := range urls {
		g.Go(func() error {
			results[i] = d.DiscoverOne(ctx, pageURL)
			if verbose {
				d.report(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	return model.BatchResult{
		Feeds: lo.FlatMap(results, func(r model.DiscoveryResult, _ int) []model.Feed {
			return r.Feeds
		}),
		Results: results,
		Failures: lo.Filter(results, func(r model.DiscoveryResult, _ int) bool {
			return r.Failed()
		}),
	}
}

// DiscoverFeeds is DiscoverMany without the per-page detail.
func (d *Discoverer) DiscoverFeeds(ctx context.Context, urls []string, verbose bool) []model.Feed {
	return d.DiscoverMany(ctx, urls, verbose).Feeds
}

func (d *Discoverer) report(r model.DiscoveryResult) {
	logger := d.logger.WithFields(logrus.Fields{
		"url":      r.PageURL,
		"feeds":    len(r.Feeds),
		"rejected": r.Rejected,
	})

	switch {
	case r.Failed():
		model.LogFeedError(logger, logrus.InfoLevel, r.Err)
	case len(r.Feeds) == 0:
		logger.Info("no feeds found")
	default:
		logger.Infof("found %d feed(s)", len(r.Feeds))
	}
}
