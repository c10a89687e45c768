package model

import (
	"fmt"

	"github.com/alecthomas/kong"
)

// VersionFlag prints the "version" variable and exits.
type VersionFlag string

// Decode implements the kong.DecodeContext interface.
func (v VersionFlag) Decode(_ *kong.DecodeContext) error { return nil }

// IsBool implements the kong.BoolMapper interface.
func (v VersionFlag) IsBool() bool { return true }

// BeforeApply implements the kong.BeforeApply interface to handle version display.
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	text, ok := vars["version"]
	if !ok || text == "" {
		text = "unknown"
	}
	fmt.Fprintln(app.Stdout, text)
	app.Exit(0)
	return nil
}
