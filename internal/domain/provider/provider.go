package provider

import (
	"fmt"
	"strings"
)

// Provider identifies an external fantasy platform the engine can sync from.
type Provider string

const (
	ESPN    Provider = "espn"
	Sleeper Provider = "sleeper"
	Yahoo   Provider = "yahoo"
)

func All() []Provider {
	return []Provider{ESPN, Sleeper, Yahoo}
}

func Parse(raw string) (Provider, error) {
	value := Provider(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case ESPN, Sleeper, Yahoo:
		return value, nil
	default:
		return "", fmt.Errorf("unsupported provider %q", raw)
	}
}

func (p Provider) String() string {
	return string(p)
}

func (p Provider) Valid() bool {
	switch p {
	case ESPN, Sleeper, Yahoo:
		return true
	default:
		return false
	}
}
