package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardwooding/feed-miner/config"
	"github.com/richardwooding/feed-miner/model"
)

func newParser(t *testing.T, cli *CLI, stdout *bytes.Buffer, configPaths ...string) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli,
		kong.Name("feed-miner"),
		kong.Configuration(config.TOMLLoader, configPaths...),
		kong.Vars{"version": "test-version"},
		kong.Writers(stdout, stdout),
		kong.Exit(func(int) {}),
	)
	require.NoError(t, err)
	return parser
}

func TestCLI_DefaultCommandWithArgs(t *testing.T) {
	var cli CLI
	var out bytes.Buffer
	parser := newParser(t, &cli, &out)

	kctx, err := parser.Parse([]string{"-i", "urls.txt"})
	require.NoError(t, err)

	assert.Equal(t, "discover", kctx.Command())
	assert.True(t, filepath.IsAbs(cli.Discover.Input))
	assert.Equal(t, "urls.txt", filepath.Base(cli.Discover.Input))
	assert.Equal(t, "feeds.opml", filepath.Base(cli.Discover.Output))
	assert.Equal(t, "all", cli.Discover.Type)
	assert.Equal(t, 10*time.Second, cli.Discover.Timeout)
	assert.Equal(t, 2, cli.Discover.Retries)
	assert.Equal(t, "http", cli.Discover.Engine)
	assert.Equal(t, "info", cli.LogLevel)
}

func TestCLI_RequiresInput(t *testing.T) {
	var cli CLI
	var out bytes.Buffer
	parser := newParser(t, &cli, &out)

	_, err := parser.Parse([]string{"discover"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--input")
}

func TestCLI_RejectsUnknownType(t *testing.T) {
	var cli CLI
	var out bytes.Buffer
	parser := newParser(t, &cli, &out)

	_, err := parser.Parse([]string{"-i", "urls.txt", "--type", "json"})
	assert.Error(t, err)
}

func TestCLI_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feed-miner.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[discover]
type = "atom"
retries = 5
timeout = 3
`), 0o600))

	var cli CLI
	var out bytes.Buffer
	parser := newParser(t, &cli, &out, path)

	_, err := parser.Parse([]string{"-i", "urls.txt", "--retries", "1"})
	require.NoError(t, err)

	assert.Equal(t, "debug", cli.LogLevel)
	assert.Equal(t, "atom", cli.Discover.Type)
	assert.Equal(t, 1, cli.Discover.Retries, "flags override the file")
	assert.Equal(t, 3*time.Second, cli.Discover.Timeout)
}

func TestCLI_Version(t *testing.T) {
	var cli CLI
	var out bytes.Buffer
	parser := newParser(t, &cli, &out)

	_, _ = parser.Parse([]string{"--version"})
	assert.Contains(t, out.String(), "test-version")
}

func TestCLI_Run(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><head><link rel="alternate" type="application/rss+xml" href="/feed.xml"></head></html>`))
		case "/feed.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(`<rss version="2.0"><channel><title>Run</title></channel></rss>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	input := filepath.Join(dir, "urls.txt")
	output := filepath.Join(dir, "out.opml")
	require.NoError(t, os.WriteFile(input, []byte(srv.URL+"\n"), 0o600))

	var cli CLI
	var out bytes.Buffer
	parser := newParser(t, &cli, &out)

	kctx, err := parser.Parse([]string{
		"-i", input, "-o", output,
		"--allow-private-ips", "--requests-per-second=-1", "--log-level", "error",
	})
	require.NoError(t, err)

	kctx.BindTo(context.Background(), (*context.Context)(nil))
	require.NoError(t, kctx.Run(&cli.Globals))

	doc, err := model.ReadOPMLFile(output)
	require.NoError(t, err)
	feeds := doc.Feeds()
	require.Len(t, feeds, 1)
	assert.Equal(t, srv.URL+"/feed.xml", feeds[0].FeedURL)
	assert.Contains(t, out.String(), "Wrote 1 feed(s)")
}

func TestParserOptions(t *testing.T) {
	var cli CLI
	_, err := kong.New(&cli, parserOptions()...)
	assert.NoError(t, err)
}
