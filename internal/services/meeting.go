package services

import (
	"context"
	"errors"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/dpup/meetpoint/server/internal/config"
	"github.com/dpup/meetpoint/server/internal/lib/geo"
	"github.com/dpup/meetpoint/server/internal/lib/meeting"
	"github.com/dpup/meetpoint/server/internal/lib/overlap"
	"github.com/dpup/meetpoint/server/internal/lib/ranking"
	"github.com/dpup/meetpoint/server/internal/lib/reachability"
	"github.com/dpup/meetpoint/server/internal/observability"
)

// RegionStore memoizes resolved regions by content hash
type RegionStore interface {
	GetRegion(contentHash string) (overlap.Region, bool, error)
	SetRegion(contentHash string, region overlap.Region, ttl time.Duration) error
}

// MeetingService ties overlap resolution, validation and ranking together
type MeetingService struct {
	resolver     *overlap.Resolver
	ranker       *ranking.Ranker
	defaultSort  ranking.SortKey
	contourValue *float64

	store    RegionStore
	cacheTTL time.Duration
	metrics  *observability.Collector
}

// NewMeetingService creates a MeetingService. store and metrics may be nil.
func NewMeetingService(cfg *config.Config, store RegionStore, metrics *observability.Collector) (*MeetingService, error) {
	defaultSort, err := cfg.Ranking.SortKey()
	if err != nil {
		return nil, err
	}

	return &MeetingService{
		resolver:     overlap.NewResolver(cfg.Overlap.ResolverOptions()...),
		ranker:       ranking.NewRanker(cfg.Ranking.MaxResults),
		defaultSort:  defaultSort,
		contourValue: cfg.Overlap.ContourValue,
		store:        store,
		cacheTTL:     cfg.Overlap.CacheTTL,
		metrics:      metrics,
	}, nil
}

// ResolveContours groups contours by owner, in first-seen order, and
// intersects the groups. Failures come back as Error regions.
func (s *MeetingService) ResolveContours(ctx context.Context, contours []reachability.Contour) overlap.Region {
	ctx = logging.EnsureLogger(ctx)
	sets, err := reachability.GroupByOwner(contours)
	if err != nil {
		logging.Infow(ctx, "Rejected reachability input", "error", err)
		return overlap.Region{Kind: overlap.Error, Message: err.Error(), Err: err}
	}

	hash := ""
	if s.useCache() {
		hash, err = HashContours(contours, s.contourValue)
		if err != nil {
			logging.Infow(ctx, "Skipping region cache", "error", err)
		} else {
			region, found, err := s.store.GetRegion(hash)
			if err != nil {
				logging.Errorw(ctx, "Region cache lookup failed", "error", err)
			}
			s.metrics.ObserveCacheLookup(found)
			if found {
				return region
			}
		}
	}

	start := time.Now()
	region := s.resolver.ResolveAll(sets...)
	s.metrics.ObserveResolution(string(region.Kind), time.Since(start))

	switch region.Kind {
	case overlap.Error:
		kv := []interface{}{"error", region.Message, "owners", region.OwnerIDs}
		var ie *geo.IntersectionError
		if errors.As(region.Err, &ie) && ie.Stack != "" {
			kv = append(kv, "error.stack_trace", ie.Stack)
		}
		logging.Errorw(ctx, "Overlap resolution failed", kv...)
	default:
		logging.Infow(ctx, "Resolved overlap",
			"kind", region.Kind,
			"owners", region.OwnerIDs,
			"travel_time", region.TravelTime,
			"area_m2", region.AreaSquareMeters)
	}

	if hash != "" {
		if err := s.store.SetRegion(hash, region, s.cacheTTL); err != nil {
			logging.Errorw(ctx, "Failed to cache region", "error", err)
		}
	}
	return region
}

// Validate checks a manually picked meeting point against region
func (s *MeetingService) Validate(point geo.Coordinate, region overlap.Region) error {
	return meeting.Validate(point, region)
}

// Rank filters candidates to region and sorts them, measuring distance from the
// region's anchor. An empty key uses the configured default.
func (s *MeetingService) Rank(ctx context.Context, candidates []ranking.Candidate, region overlap.Region, key ranking.SortKey) ([]ranking.RankedCandidate, error) {
	ctx = logging.EnsureLogger(ctx)
	if key == "" {
		key = s.defaultSort
	}

	anchor, _ := region.Anchor()
	ranked, err := s.ranker.Rank(candidates, region, key, anchor)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveCandidates(len(ranked), len(candidates)-len(ranked))
	logging.Infow(ctx, "Ranked candidates",
		"sort", key, "candidates", len(candidates), "returned", len(ranked))
	return ranked, nil
}

func (s *MeetingService) useCache() bool {
	return s.store != nil && s.cacheTTL > 0
}
