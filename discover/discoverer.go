// Package discover finds RSS and Atom feeds advertised by, or conventionally
// hosted alongside, web pages.
package discover

import (
	"bytes"
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"

	"github.com/richardwooding/feed-miner/fetch"
	"github.com/richardwooding/feed-miner/model"
)

// Discoverer runs candidate extraction and validation for page URLs.
// It is safe for concurrent use.
type Discoverer struct {
	cfg         Config
	fetcher     fetch.Fetcher
	ownsFetcher bool
	extractor   *extractor
	validator   *Validator
	logger      logrus.FieldLogger
}

// New creates a Discoverer. When cfg.Fetcher is nil a fetcher is built from
// cfg.FetchConfig and released by Close.
func New(cfg Config) (*Discoverer, error) {
	cfg = cfg.withDefaults()

	d := &Discoverer{
		cfg:     cfg,
		fetcher: cfg.Fetcher,
		logger:  cfg.Logger.WithField("component", "discoverer"),
	}

	if d.fetcher == nil {
		f, err := fetch.New(cfg.FetchConfig)
		if err != nil {
			return nil, err
		}
		d.fetcher = f
		d.ownsFetcher = true
	}

	d.extractor = newExtractor(cfg.ConventionalPaths, cfg.Logger)
	d.validator = NewValidator(d.fetcher, cfg.AllowPrivateIPs, cfg.Logger)

	return d, nil
}

// Close releases the fetcher if New created it.
func (d *Discoverer) Close() {
	if d.ownsFetcher {
		fetch.Close(d.fetcher)
	}
}

// DiscoverOne finds the feeds for a single page. Page-level failures are
// reported in the result's Err; candidate failures only bump Rejected.
func (d *Discoverer) DiscoverOne(ctx context.Context, pageURL string) model.DiscoveryResult {
	result := model.DiscoveryResult{PageURL: pageURL}
	logger := d.logger.WithField("url", pageURL)

	if err := model.ValidatePageURL(ctx, pageURL, d.cfg.AllowPrivateIPs); err != nil {
		result.Err = model.CreateValidationError(err, pageURL)
		return result
	}

	resp, err := d.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		result.Err = err
		return result
	}

	candidates := d.extractor.extract(resp.URL, pageURL, decodeHTML(resp, logger))
	logger.WithField("candidates", len(candidates)).Debug("extracted candidates")

	if d.cfg.FirstConventionalOnly {
		result.Feeds, result.Rejected = d.validateFirstConventional(ctx, candidates)
	} else {
		result.Feeds, result.Rejected = d.validateAll(ctx, candidates)
	}
	result.Feeds = model.DedupeFeeds(result.Feeds)

	return result
}

// decodeHTML converts the page body to UTF-8 using the declared or sniffed
// charset, falling back to the raw bytes.
func decodeHTML(resp *fetch.Response, logger logrus.FieldLogger) io.Reader {
	r, err := charset.NewReader(bytes.NewReader(resp.Body), resp.ContentType)
	if err != nil {
		logger.WithError(err).Debug("charset detection failed, using raw body")
		return bytes.NewReader(resp.Body)
	}
	return r
}

// validateAll validates candidates concurrently and returns the feeds in
// candidate order with the number rejected.
func (d *Discoverer) validateAll(ctx context.Context, candidates []model.Candidate) ([]model.Feed, int) {
	slots := make([]*model.Feed, len(candidates))

	var g errgroup.Group
	g.SetLimit(d.cfg.CandidateConcurrency)
	for i, candidate := range candidates {
		g.Go(func() error {
			if feed, ok := d.validate(ctx, candidate); ok {
				slots[i] = &feed
			}
			return nil
		})
	}
	_ = g.Wait()

	feeds := make([]model.Feed, 0, len(candidates))
	for _, slot := range slots {
		if slot != nil {
			feeds = append(feeds, *slot)
		}
	}
	return feeds, len(candidates) - len(feeds)
}

// validateFirstConventional validates link-tag candidates and, only if none
// of them is a feed, tries conventional paths in order until one is.
func (d *Discoverer) validateFirstConventional(ctx context.Context, candidates []model.Candidate) ([]model.Feed, int) {
	var linked, conventional []model.Candidate
	for _, c := range candidates {
		if c.Source == model.SourceConventional {
			conventional = append(conventional, c)
		} else {
			linked = append(linked, c)
		}
	}

	feeds, rejected := d.validateAll(ctx, linked)
	if len(feeds) > 0 {
		return feeds, rejected
	}

	for _, c := range conventional {
		if feed, ok := d.validate(ctx, c); ok {
			return []model.Feed{feed}, rejected
		}
		rejected++
	}
	return nil, rejected
}

func (d *Discoverer) validate(ctx context.Context, c model.Candidate) (model.Feed, bool) {
	feed, err := d.validator.Validate(ctx, c)
	if err != nil {
		d.logger.WithFields(model.FeedErrorFields(err)).
			WithFields(logrus.Fields{"candidate": c.URL, "source": c.Source.String()}).
			Debug("candidate rejected")
		return model.Feed{}, false
	}
	d.logger.WithFields(logrus.Fields{"candidate": c.URL, "feed_type": feed.FeedType}).Debug("candidate accepted")
	return feed, true
}
