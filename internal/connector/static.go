package connector

import (
	"context"
	"strings"
)

// StaticConnector serves canned text, keyed by no particular query. It
// backs dry runs and tests where hitting real sources is unwanted.
type StaticConnector struct {
	name  string
	items []string
	err   error
}

// NewStaticConnector returns a connector that always serves items.
func NewStaticConnector(name string, items ...string) *StaticConnector {
	return &StaticConnector{name: name, items: items}
}

// WithError makes every Fetch fail with err, for failure-path tests.
func (s *StaticConnector) WithError(err error) *StaticConnector {
	s.err = err
	return s
}

// Name identifies the connector inside the registry.
func (s *StaticConnector) Name() string {
	return s.name
}

// Fetch returns up to limit canned items joined by newlines.
func (s *StaticConnector) Fetch(ctx context.Context, query string, limit int, opts FetchOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}

	items := s.items
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return strings.Join(items, "\n"), nil
}
