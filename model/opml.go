package model

import (
	"bytes"
	"encoding/xml"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const (
	opmlVersion      = "2.0"
	defaultRSSTitle  = "RSS Feeds"
	defaultAtomTitle = "Atom Feeds"
	unknownTitle     = "Unknown"
)

// OPMLOutline represents an outline element in OPML
type OPMLOutline struct {
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr,omitempty"`
	Type     string        `xml:"type,attr,omitempty"`
	XMLURL   string        `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string        `xml:"htmlUrl,attr,omitempty"`
	Outlines []OPMLOutline `xml:"outline,omitempty"`
}

// OPMLBody represents the body section of OPML
type OPMLBody struct {
	Outlines []OPMLOutline `xml:"outline"`
}

// OPMLHead represents the head section of OPML
type OPMLHead struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
	OwnerName   string `xml:"ownerName,omitempty"`
	OwnerEmail  string `xml:"ownerEmail,omitempty"`
}

// OPML represents an OPML document
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    OPMLHead `xml:"head"`
	Body    OPMLBody `xml:"body"`
}

// OPMLOptions customizes the document head. Zero values pick the defaults.
type OPMLOptions struct {
	Title       string
	DateCreated time.Time
}

// BuildOPML builds an OPML 2.0 document with one outline per feed. When
// filter is set only feeds of that type are kept, in their original order.
func BuildOPML(feeds []Feed, filter *FeedType, opts OPMLOptions) *OPML {
	title := opts.Title
	if title == "" {
		title = defaultRSSTitle
		if filter != nil && *filter == FeedTypeAtom {
			title = defaultAtomTitle
		}
	}

	created := opts.DateCreated
	if created.IsZero() {
		created = time.Now()
	}

	selected := FilterFeeds(feeds, filter)
	outlines := make([]OPMLOutline, 0, len(selected))
	for _, feed := range selected {
		outlines = append(outlines, outlineFromFeed(feed))
	}

	return &OPML{
		Version: opmlVersion,
		Head: OPMLHead{
			Title:       title,
			DateCreated: created.Format(time.RFC1123Z),
		},
		Body: OPMLBody{Outlines: outlines},
	}
}

func outlineFromFeed(feed Feed) OPMLOutline {
	return OPMLOutline{
		Text:    outlineText(feed),
		Title:   feed.Title,
		Type:    feed.FeedType.String(),
		XMLURL:  feed.FeedURL,
		HTMLURL: feed.SiteURL,
	}
}

// outlineText prefers the feed title, then the site host, then the feed host.
func outlineText(feed Feed) string {
	if feed.Title != "" {
		return feed.Title
	}
	for _, raw := range []string{feed.SiteURL, feed.FeedURL} {
		if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	return unknownTitle
}

// Marshal renders the document with the XML header and indentation.
func (o *OPML) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(o, "", "  ")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(xml.Header) + len(body) + 1)
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Feeds flattens the document's outlines into feeds. Outlines without an
// xmlUrl are folders and are descended into.
func (o *OPML) Feeds() []Feed {
	var feeds []Feed
	collectFeeds(o.Body.Outlines, &feeds)
	return feeds
}

func collectFeeds(outlines []OPMLOutline, feeds *[]Feed) {
	for _, outline := range outlines {
		if outline.XMLURL != "" {
			feedType, _ := ParseFeedType(outline.Type)
			*feeds = append(*feeds, Feed{
				Title:    outline.Title,
				FeedURL:  outline.XMLURL,
				SiteURL:  outline.HTMLURL,
				FeedType: feedType,
			})
		}
		if len(outline.Outlines) > 0 {
			collectFeeds(outline.Outlines, feeds)
		}
	}
}

// WriteOPMLFile writes the OPML document for feeds to path, replacing any
// existing file. The write goes through a temp file in the same directory.
func WriteOPMLFile(feeds []Feed, path string, filter *FeedType) error {
	return WriteOPMLFileWithOptions(feeds, path, filter, OPMLOptions{})
}

// WriteOPMLFileWithOptions is WriteOPMLFile with a custom head.
func WriteOPMLFileWithOptions(feeds []Feed, path string, filter *FeedType, opts OPMLOptions) error {
	content, err := BuildOPML(feeds, filter, opts).Marshal()
	if err != nil {
		return NewFeedErrorWithCause(ErrorTypeInternal, "failed to marshal OPML", err).
			WithURL(path).
			WithOperation("write_opml").
			WithComponent("opml_writer")
	}

	return writeFileAtomic(path, content)
}

func writeFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return CreateIOError(err, path, "write")
	}
	tmpName := tmp.Name()

	cleanup := func(cause error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return CreateIOError(cause, path, "write")
	}

	if _, err := tmp.Write(content); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return CreateIOError(err, path, "write")
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return CreateIOError(err, path, "write")
	}

	return nil
}

// ParseOPML decodes an OPML document.
func ParseOPML(r io.Reader) (*OPML, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, NewFeedErrorWithCause(ErrorTypeValidation, "failed to parse OPML content", err).
			WithOperation("parse_opml").
			WithComponent("opml_parser")
	}
	return &doc, nil
}

// ReadOPMLFile loads and parses an OPML file from the local filesystem
func ReadOPMLFile(path string) (*OPML, error) {
	file, err := os.Open(path) // #nosec G304 -- path is user-provided CLI argument, this is expected behavior
	if err != nil {
		return nil, CreateIOError(err, path, "read")
	}
	defer func() { _ = file.Close() }()

	doc, err := ParseOPML(file)
	if err != nil {
		if fe, ok := AsFeedError(err); ok {
			fe.WithURL(path)
		}
		return nil, err
	}
	return doc, nil
}
