package discover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/richardwooding/feed-miner/fetch"
	"github.com/richardwooding/feed-miner/model"
)

// parseOutcome is the tagged result of one parser strategy. When ok is
// false, err says why.
type parseOutcome struct {
	title string
	link  string
	ok    bool
	err   error
}

// parserStrategy recognizes one feed format.
type parserStrategy struct {
	feedType model.FeedType
	parse    func(body []byte) parseOutcome
}

// defaultStrategies are tried in order. RSS comes first, so a document
// accepted by both parsers is RSS.
var defaultStrategies = []parserStrategy{rssStrategy, atomStrategy}

var rssStrategy = parserStrategy{
	feedType: model.FeedTypeRSS,
	parse: func(body []byte) parseOutcome {
		feed, err := (&rss.Parser{}).Parse(bytes.NewReader(body))
		if err != nil {
			return parseOutcome{err: err}
		}
		return parseOutcome{title: feed.Title, link: lo.FirstOr(lo.Compact(feed.Links), feed.Link), ok: true}
	},
}

var atomStrategy = parserStrategy{
	feedType: model.FeedTypeAtom,
	parse: func(body []byte) parseOutcome {
		feed, err := (&atom.Parser{}).Parse(bytes.NewReader(body))
		if err != nil {
			return parseOutcome{err: err}
		}
		return parseOutcome{title: feed.Title, link: atomSiteLink(feed.Links), ok: true}
	},
}

// atomSiteLink prefers rel="alternate" and falls back to the first rel-less link.
func atomSiteLink(links []*atom.Link) string {
	fallback := ""
	for _, link := range links {
		if link == nil || link.Href == "" {
			continue
		}
		switch strings.ToLower(link.Rel) {
		case "alternate":
			return link.Href
		case "":
			if fallback == "" {
				fallback = link.Href
			}
		}
	}
	return fallback
}

// run applies the strategy, turning a parser panic into a failed outcome.
func (s parserStrategy) run(body []byte) (outcome parseOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = parseOutcome{err: fmt.Errorf("%s parser panic: %v", s.feedType, r)}
		}
	}()
	return s.parse(body)
}

// Validator fetches candidates and keeps those that parse as RSS or Atom.
type Validator struct {
	fetcher         fetch.Fetcher
	strategies      []parserStrategy
	allowPrivateIPs bool
	logger          logrus.FieldLogger
}

// NewValidator creates a Validator that fetches through f. Candidates on
// loopback or private addresses are refused unless allowPrivateIPs is set.
func NewValidator(f fetch.Fetcher, allowPrivateIPs bool, logger logrus.FieldLogger) *Validator {
	if logger == nil {
		logger = model.DiscardLogger()
	}
	return &Validator{
		fetcher:         f,
		strategies:      defaultStrategies,
		allowPrivateIPs: allowPrivateIPs,
		logger:          logger.WithField("component", "feed_validator"),
	}
}

// Validate fetches the candidate and classifies it. Refused addresses are
// invalid_url, fetch failures are fetch_failed and bodies no strategy
// accepts are not_a_feed.
func (v *Validator) Validate(ctx context.Context, c model.Candidate) (model.Feed, error) {
	if err := model.ValidatePageURL(ctx, c.URL, v.allowPrivateIPs); err != nil {
		return model.Feed{}, model.CreateValidationError(err, c.URL)
	}

	resp, err := v.fetcher.Fetch(ctx, c.URL)
	if err != nil {
		return model.Feed{}, err
	}
	return v.classify(c, resp.Body)
}

func (v *Validator) classify(c model.Candidate, body []byte) (model.Feed, error) {
	var failures []string
	for _, strategy := range v.strategies {
		outcome := strategy.run(body)
		if !outcome.ok {
			failures = append(failures, fmt.Sprintf("%s: %v", strategy.feedType, outcome.err))
			continue
		}
		return model.Feed{
			Title:    strings.TrimSpace(outcome.title),
			FeedURL:  c.URL,
			SiteURL:  siteURL(c, outcome.link),
			FeedType: strategy.feedType,
		}, nil
	}

	err := model.CreateNotAFeedError(errors.New(strings.Join(failures, "; ")), c.URL)
	v.logger.WithFields(model.FeedErrorFields(err)).Trace("candidate rejected")
	return model.Feed{}, err
}

// siteURL resolves the feed's declared link against the feed URL, falling
// back to the page the candidate came from.
func siteURL(c model.Candidate, declared string) string {
	if strings.TrimSpace(declared) == "" {
		return c.PageURL
	}
	base, err := url.Parse(c.URL)
	if err != nil {
		return c.PageURL
	}
	resolved, err := model.ResolveURL(base, declared)
	if err != nil {
		return c.PageURL
	}
	return resolved
}
