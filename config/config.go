// Package config loads flag values for the feed-miner CLI from TOML files.
package config

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"

	"github.com/richardwooding/feed-miner/model"
)

// DefaultPaths are the configuration files consulted on every run, in order.
// Missing files are skipped.
var DefaultPaths = []string{"~/.feed-miner.toml", ".feed-miner.toml"}

var durationType = reflect.TypeOf(time.Duration(0))

// Resolver resolves kong flags from a decoded TOML document. Keys are flag
// names with either '-' or '_' as separator. A table named after a command
// holds flags for that command and takes precedence over top-level keys.
type Resolver struct {
	values map[string]any
}

var _ kong.Resolver = (*Resolver)(nil)

// TOMLLoader is a kong.ConfigurationLoader for TOML files.
func TOMLLoader(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if _, err := toml.NewDecoder(r).Decode(&values); err != nil {
		return nil, model.CreateConfigurationError(err, "failed to parse TOML configuration")
	}
	return &Resolver{values: values}, nil
}

// Resolve implements kong.Resolver.
func (r *Resolver) Resolve(_ *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
	raw, ok := r.lookup(parent, flag.Name)
	if !ok {
		return nil, nil
	}

	if flag.Target.IsValid() && flag.Target.Type() == durationType {
		return normalizeDuration(raw)
	}

	return raw, nil
}

// Validate rejects keys that match no flag of the application.
func (r *Resolver) Validate(app *kong.Application) error {
	known := map[string]bool{}
	commands := map[string]map[string]bool{}

	var walk func(node *kong.Node, inherited []*kong.Flag)
	walk = func(node *kong.Node, inherited []*kong.Flag) {
		flags := append(append([]*kong.Flag{}, inherited...), node.Flags...)
		names := map[string]bool{}
		for _, flag := range flags {
			names[keyName(flag.Name)] = true
			known[keyName(flag.Name)] = true
		}
		if node.Type == kong.CommandNode {
			commands[keyName(node.Name)] = names
		}
		for _, child := range node.Children {
			walk(child, flags)
		}
	}
	walk(app.Node, nil)

	var unknown []string
	for key, value := range r.values {
		name := keyName(key)
		if table, isTable := value.(map[string]any); isTable {
			if flags, isCommand := commands[name]; isCommand {
				for sub := range table {
					if !flags[keyName(sub)] {
						unknown = append(unknown, key+"."+sub)
					}
				}
				continue
			}
		}
		if !known[name] {
			unknown = append(unknown, key)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return model.CreateConfigurationError(nil,
			fmt.Sprintf("unknown configuration keys: %s", strings.Join(unknown, ", ")))
	}

	return nil
}

func (r *Resolver) lookup(parent *kong.Path, flagName string) (any, bool) {
	if parent != nil {
		if node := parent.Node(); node != nil && node.Type == kong.CommandNode {
			if table, ok := findKey(r.values, node.Name).(map[string]any); ok {
				if raw := findKey(table, flagName); raw != nil {
					return raw, true
				}
			}
		}
	}

	if raw := findKey(r.values, flagName); raw != nil {
		if _, isTable := raw.(map[string]any); !isTable {
			return raw, true
		}
	}

	return nil, false
}

func findKey(values map[string]any, name string) any {
	if raw, ok := values[name]; ok {
		return raw
	}
	if raw, ok := values[strings.ReplaceAll(name, "-", "_")]; ok {
		return raw
	}
	return nil
}

func keyName(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

// normalizeDuration reads bare numbers as seconds; kong would read them as nanoseconds.
func normalizeDuration(raw any) (any, error) {
	switch v := raw.(type) {
	case int64:
		return (time.Duration(v) * time.Second).String(), nil
	case float64:
		return time.Duration(v * float64(time.Second)).String(), nil
	case string:
		return v, nil
	default:
		return nil, model.CreateConfigurationError(nil, fmt.Sprintf("expected a duration but got %v (%T)", raw, raw))
	}
}
