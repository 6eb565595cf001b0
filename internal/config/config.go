package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/dpup/meetpoint/server/internal/clients/isochrone"
	"github.com/dpup/meetpoint/server/internal/lib/overlap"
	"github.com/dpup/meetpoint/server/internal/lib/ranking"
	"github.com/dpup/meetpoint/server/internal/lib/reachability"
)

// Config represents the complete server configuration
type Config struct {
	Overlap OverlapConfig `yaml:"overlap" koanf:"overlap"`
	Ranking RankingConfig `yaml:"ranking" koanf:"ranking"`
	Ingest  IngestConfig  `yaml:"ingest" koanf:"ingest"`
}

// OverlapConfig controls how reachability sets are resolved
type OverlapConfig struct {
	// CacheTTL is how long resolved regions are memoized; zero disables the cache
	CacheTTL        time.Duration `yaml:"cache_ttl" koanf:"cache_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" koanf:"cleanup_interval"`

	// ContourValue selects a specific band instead of each set's largest
	ContourValue *float64 `yaml:"contour_value" koanf:"contour_value"`
}

// RankingConfig holds candidate ranking defaults
type RankingConfig struct {
	DefaultSort string `yaml:"default_sort" koanf:"default_sort"`
	MaxResults  int    `yaml:"max_results" koanf:"max_results"`
}

// IngestConfig maps isochrone feature properties onto contours
type IngestConfig struct {
	OwnerProperty string `yaml:"owner_property" koanf:"owner_property"`
	ValueProperty string `yaml:"value_property" koanf:"value_property"`
	DefaultOwner  string `yaml:"default_owner" koanf:"default_owner"`
}

// Load overlays the overlap, ranking and ingest sections of k onto the
// defaults. Keys absent from k keep their default value.
func Load(k *koanf.Koanf) (*Config, error) {
	cfg := DefaultConfig()

	if err := k.Unmarshal("overlap", &cfg.Overlap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal overlap section: %w", err)
	}
	if err := k.Unmarshal("ranking", &cfg.Ranking); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ranking section: %w", err)
	}
	if err := k.Unmarshal("ingest", &cfg.Ingest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingest section: %w", err)
	}
	return cfg, nil
}

// ResolverOptions converts overlap settings into resolver options
func (c OverlapConfig) ResolverOptions() []overlap.Option {
	if c.ContourValue == nil {
		return nil
	}
	return []overlap.Option{overlap.WithContourValue(*c.ContourValue)}
}

// SortKey returns the configured default sort key
func (c RankingConfig) SortKey() (ranking.SortKey, error) {
	key := ranking.SortKey(c.DefaultSort)
	switch key {
	case ranking.ByDistance, ranking.ByRating, ranking.ByRelevance:
		return key, nil
	default:
		return "", fmt.Errorf("unknown ranking.default_sort %q", c.DefaultSort)
	}
}

// ParserOptions converts ingest settings into isochrone parser options
func (c IngestConfig) ParserOptions() isochrone.Options {
	return isochrone.Options{
		OwnerProperty: c.OwnerProperty,
		ValueProperty: c.ValueProperty,
		DefaultOwner:  reachability.OwnerID(c.DefaultOwner),
	}
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	ingest := isochrone.DefaultOptions()
	return &Config{
		Overlap: OverlapConfig{
			CacheTTL:        10 * time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
		Ranking: RankingConfig{
			DefaultSort: string(ranking.ByDistance),
			MaxResults:  20,
		},
		Ingest: IngestConfig{
			OwnerProperty: ingest.OwnerProperty,
			ValueProperty: ingest.ValueProperty,
			DefaultOwner:  string(ingest.DefaultOwner),
		},
	}
}
