package discover

import (
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/feed-miner/fetch"
	"github.com/richardwooding/feed-miner/model"
)

const defaultCandidateConcurrency = 8

// Config controls discovery. Zero values are replaced by defaults in New.
type Config struct {
	// Fetcher is shared by page and candidate fetches. When nil, New builds
	// one from FetchConfig and Close releases it.
	Fetcher     fetch.Fetcher
	FetchConfig fetch.Config

	// Concurrency bounds how many pages are processed at once. Zero selects
	// runtime.NumCPU()*4, negative is unbounded.
	Concurrency int
	// CandidateConcurrency bounds candidate validation per page. Zero
	// selects 8, negative is unbounded.
	CandidateConcurrency int

	// ConventionalPaths overrides the well-known feed paths probed on every
	// page's origin. Nil uses ConventionalPaths; an empty slice probes none.
	ConventionalPaths []string
	// FirstConventionalOnly validates conventional paths only when no
	// link-tag candidate validated, and stops at the first that does.
	FirstConventionalOnly bool

	// AllowPrivateIPs permits pages and candidates on loopback and private
	// addresses. When false the default fetcher also refuses to connect to
	// them, which covers redirects.
	AllowPrivateIPs bool

	Logger logrus.FieldLogger
}

func (c Config) withDefaults() Config {
	if c.Concurrency == 0 {
		c.Concurrency = runtime.NumCPU() * 4
	}
	if c.CandidateConcurrency == 0 {
		c.CandidateConcurrency = defaultCandidateConcurrency
	}
	if c.ConventionalPaths == nil {
		c.ConventionalPaths = ConventionalPaths
	}
	if c.Logger == nil {
		c.Logger = model.DiscardLogger()
	}
	if c.FetchConfig.Logger == nil {
		c.FetchConfig.Logger = c.Logger
	}
	if !c.AllowPrivateIPs {
		c.FetchConfig.BlockPrivateIPs = true
	}
	return c
}
