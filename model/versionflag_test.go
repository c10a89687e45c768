package model

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

func TestVersionFlag_IsBool(t *testing.T) {
	var v VersionFlag
	if !v.IsBool() {
		t.Error("VersionFlag should be bool")
	}
}

func TestVersionFlag_PrintsVersionAndExits(t *testing.T) {
	var cli struct {
		Version VersionFlag `name:"version"`
	}

	var out bytes.Buffer
	exitCode := -1
	parser, err := kong.New(&cli,
		kong.Vars{"version": "feed-miner test-version"},
		kong.Writers(&out, &out),
		kong.Exit(func(code int) { exitCode = code }),
	)
	if err != nil {
		t.Fatalf("kong.New: %v", err)
	}

	_, _ = parser.Parse([]string{"--version"})

	if exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
	if !strings.Contains(out.String(), "test-version") {
		t.Errorf("expected version output, got %q", out.String())
	}
}
