package model

import (
	"errors"
	"strings"
)

var ErrInvalidEngine = errors.New("invalid fetch engine")

// Engine selects the HTTP client implementation used for fetching pages and feeds.
type Engine uint8

const (
	UndefinedEngine Engine = iota
	HTTPEngine
	CollyEngine
)

// ParseEngine converts a string to an Engine
func ParseEngine(engine string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "http":
		return HTTPEngine, nil
	case "colly":
		return CollyEngine, nil
	default:
		return UndefinedEngine, ErrInvalidEngine
	}
}

// String returns the string representation of an Engine
func (e Engine) String() string {
	switch e {
	case HTTPEngine:
		return "http"
	case CollyEngine:
		return "colly"
	default:
		return "undefined"
	}
}
