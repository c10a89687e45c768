package model

import "github.com/alecthomas/kong"

// Globals contains flags shared by every command.
type Globals struct {
	Config   kong.ConfigFlag `name:"config" help:"Load flag values from a TOML file" placeholder:"FILE"`
	LogLevel string          `name:"log-level" help:"Log level (trace, debug, info, warn, error)" env:"FEED_MINER_LOG_LEVEL" default:"info"`
	JSONLogs bool            `name:"json-logs" help:"Emit logs as JSON" env:"FEED_MINER_JSON_LOGS"`
	Version  VersionFlag     `name:"version" help:"Print version information and quit"`
}

// LogOptions returns the logger settings selected by the global flags.
func (g *Globals) LogOptions(verbose bool) LogOptions {
	return LogOptions{
		Level:   g.LogLevel,
		JSON:    g.JSONLogs,
		Verbose: verbose,
	}
}
