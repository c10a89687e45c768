package discover

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/richardwooding/feed-miner/model"
)

// ConventionalPaths are well-known feed locations probed on a page's origin,
// in probe order.
var ConventionalPaths = []string{
	"/feed",
	"/feed.xml",
	"/rss",
	"/rss.xml",
	"/atom.xml",
	"/index.xml",
	"/feeds/posts/default",
	"/feed/atom",
	"/feed/rss",
}

var feedMediaTypes = map[string]bool{
	"application/rss+xml":    true,
	"application/atom+xml":   true,
	"application/rdf+xml":    true,
	"application/xml":        true,
	"text/xml":               true,
	"application/x-rss+xml":  true,
	"application/x-atom+xml": true,
}

// ExtractCandidates returns the feed candidates for a page: alternate link
// tags first, in document order, then ConventionalPaths on the page's
// origin. URLs are absolute and unique. A malformed baseURL yields none.
func ExtractCandidates(baseURL string, html io.Reader) []model.Candidate {
	return newExtractor(ConventionalPaths, nil).extract(baseURL, baseURL, html)
}

type extractor struct {
	paths  []string
	logger logrus.FieldLogger
}

func newExtractor(paths []string, logger logrus.FieldLogger) *extractor {
	if logger == nil {
		logger = model.DiscardLogger()
	}
	return &extractor{
		paths:  paths,
		logger: logger.WithField("component", "extractor"),
	}
}

// candidateSet collects candidates in insertion order, keyed by normalized URL.
type candidateSet struct {
	pageURL    string
	seen       map[string]bool
	candidates []model.Candidate
	logger     logrus.FieldLogger
}

func (s *candidateSet) add(base *url.URL, ref string, source model.CandidateSource) {
	abs, err := model.ResolveURL(base, ref)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"error_type": model.ErrorTypeInvalidURL,
			"href":       ref,
			"error":      err.Error(),
		}).Debug("dropping candidate")
		return
	}
	if s.seen[abs] {
		return
	}
	s.seen[abs] = true
	s.candidates = append(s.candidates, model.Candidate{
		URL:     abs,
		PageURL: s.pageURL,
		Source:  source,
	})
}

// extract resolves candidates against baseURL and records pageURL as their
// origin. The two differ when the page was reached through a redirect.
func (e *extractor) extract(baseURL, pageURL string, html io.Reader) []model.Candidate {
	logger := e.logger.WithField("url", pageURL)

	base, err := model.ParseHTTPURL(baseURL)
	if err != nil {
		logger.WithFields(model.FeedErrorFields(model.CreateValidationError(err, baseURL))).
			Debug("invalid base URL")
		return nil
	}

	set := &candidateSet{
		pageURL: pageURL,
		seen:    make(map[string]bool),
		logger:  logger,
	}

	doc, err := goquery.NewDocumentFromReader(html)
	if err != nil {
		logger.WithFields(model.FeedErrorFields(model.CreateHTMLParseError(err, pageURL))).
			Debug("continuing with conventional paths only")
	} else {
		linkBase := documentBase(doc, base)
		doc.Find("link[href]").Each(func(_ int, link *goquery.Selection) {
			if !isFeedLink(link) {
				return
			}
			href, _ := link.Attr("href")
			set.add(linkBase, href, model.SourceLinkTag)
		})
	}

	origin := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}
	for _, path := range e.paths {
		set.add(origin, path, model.SourceConventional)
	}

	return set.candidates
}

// documentBase honors the first <base href> when it resolves to an http(s) URL.
func documentBase(doc *goquery.Document, page *url.URL) *url.URL {
	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok {
		return page
	}
	resolved, err := page.Parse(strings.TrimSpace(href))
	if err != nil || resolved.Host == "" {
		return page
	}
	if scheme := strings.ToLower(resolved.Scheme); scheme != "http" && scheme != "https" {
		return page
	}
	return resolved
}

func isFeedLink(link *goquery.Selection) bool {
	rel, _ := link.Attr("rel")
	if !hasToken(rel, "alternate") {
		return false
	}
	typ, _ := link.Attr("type")
	return feedMediaTypes[mediaType(typ)]
}

func hasToken(list, token string) bool {
	for _, field := range strings.Fields(list) {
		if strings.EqualFold(field, token) {
			return true
		}
	}
	return false
}

func mediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
