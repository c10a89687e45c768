// Package model provides data structures and types for feed discovery.
package model

import (
	"errors"
	"strings"

	"github.com/samber/lo"
)

var ErrInvalidFeedType = errors.New("invalid feed type")

// FeedType is the syndication format a feed validated as.
type FeedType uint8

const (
	FeedTypeUnknown FeedType = iota
	FeedTypeRSS
	FeedTypeAtom
)

// ParseFeedType converts "rss" or "atom" (any case) to a FeedType.
func ParseFeedType(feedType string) (FeedType, error) {
	switch strings.ToLower(strings.TrimSpace(feedType)) {
	case "rss":
		return FeedTypeRSS, nil
	case "atom":
		return FeedTypeAtom, nil
	default:
		return FeedTypeUnknown, ErrInvalidFeedType
	}
}

// String returns the OPML type attribute value for the feed type
func (t FeedType) String() string {
	switch t {
	case FeedTypeRSS:
		return "rss"
	case FeedTypeAtom:
		return "atom"
	default:
		return "unknown"
	}
}

// MarshalText renders the type by name, so JSON logs show "rss" rather than 1.
func (t FeedType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Feed is a discovered feed that parsed successfully as RSS or Atom.
type Feed struct {
	Title    string
	FeedURL  string
	SiteURL  string
	FeedType FeedType
}

// CandidateSource records where a candidate URL came from.
type CandidateSource uint8

const (
	// SourceLinkTag is a <link rel="alternate"> declared in the page.
	SourceLinkTag CandidateSource = iota
	// SourceConventional is a well-known feed path on the page's origin.
	SourceConventional
)

func (s CandidateSource) String() string {
	if s == SourceConventional {
		return "conventional"
	}
	return "link"
}

// Candidate is an unvalidated URL suspected of being a feed.
type Candidate struct {
	URL     string
	PageURL string
	Source  CandidateSource
}

// DiscoveryResult is the outcome of discovering feeds for one page URL.
type DiscoveryResult struct {
	PageURL string
	Feeds   []Feed
	// Rejected counts candidates that failed to fetch or parse.
	Rejected int
	Err      error
}

// Failed reports whether the page itself could not be processed.
func (r DiscoveryResult) Failed() bool {
	return r.Err != nil
}

// BatchResult aggregates discovery over many page URLs, in input order.
type BatchResult struct {
	Feeds    []Feed
	Results  []DiscoveryResult
	Failures []DiscoveryResult
}

// FilterFeeds keeps feeds of the given type in their original order.
// A nil filter returns the input unchanged.
func FilterFeeds(feeds []Feed, filter *FeedType) []Feed {
	if filter == nil {
		return feeds
	}
	return lo.Filter(feeds, func(feed Feed, _ int) bool {
		return feed.FeedType == *filter
	})
}

// DedupeFeeds removes later feeds whose FeedURL was already seen.
func DedupeFeeds(feeds []Feed) []Feed {
	return lo.UniqBy(feeds, func(feed Feed) string {
		return feed.FeedURL
	})
}

// CountByType tallies feeds per FeedType.
func CountByType(feeds []Feed) map[FeedType]int {
	return lo.CountValuesBy(feeds, func(feed Feed) FeedType {
		return feed.FeedType
	})
}
