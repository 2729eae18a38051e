// Package universe resolves the set of ticker symbols a batch run operates on.
package universe

import "context"

// Source produces the symbol universe for a run. Duplicates and ordering are
// irrelevant to the downstream pipeline.
type Source interface {
	Symbols(ctx context.Context) ([]string, error)
}

// StaticSource serves a fixed symbol list from configuration.
type StaticSource struct {
	symbols []string
}

func NewStaticSource(symbols []string) *StaticSource {
	return &StaticSource{symbols: symbols}
}

func (s *StaticSource) Symbols(_ context.Context) ([]string, error) {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out, nil
}
