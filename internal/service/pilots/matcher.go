package pilots

import (
	"context"
	"fmt"
	"sort"

	"github.com/aerohive/missions/internal/domain"
	"github.com/aerohive/missions/internal/geo"
	"github.com/aerohive/missions/internal/repository"
)

// MatchUseCase finds candidate pilots for a mission site. An empty result is
// not an error; the caller tells the client to widen the radius.
type MatchUseCase interface {
	Search(ctx context.Context, input SearchInput) ([]domain.Candidate, error)
}

type SearchInput struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radius_km"`
	Category string  `json:"category"`
}

type Cache interface {
	GetPilots(ctx context.Context, category string) ([]domain.Pilot, error)
	SetPilots(ctx context.Context, category string, pilots []domain.Pilot) error
}

type MatcherService struct {
	pilots          repository.PilotRepository
	cache           Cache
	limit           int
	defaultRadiusKm float64
}

func NewMatcherService(pilots repository.PilotRepository, cache Cache, limit int, defaultRadiusKm float64) *MatcherService {
	return &MatcherService{pilots: pilots, cache: cache, limit: limit, defaultRadiusKm: defaultRadiusKm}
}

func (s *MatcherService) Search(ctx context.Context, input SearchInput) ([]domain.Candidate, error) {
	if input.Lat < -90 || input.Lat > 90 || input.Lng < -180 || input.Lng > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidInput)
	}
	radius := input.RadiusKm
	if radius <= 0 {
		radius = s.defaultRadiusKm
	}

	roster, err := s.roster(ctx, input.Category)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(roster))
	for _, p := range roster {
		d := geo.DistanceKm(input.Lat, input.Lng, p.Location.Lat, p.Location.Lng)
		if d > radius {
			continue
		}
		candidates = append(candidates, domain.Candidate{Pilot: p, DistanceKm: d})
	}

	// Best-rated first; nearer pilots break ties.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Rating != candidates[j].Rating {
			return candidates[i].Rating > candidates[j].Rating
		}
		return candidates[i].DistanceKm < candidates[j].DistanceKm
	})

	if len(candidates) > s.limit {
		candidates = candidates[:s.limit]
	}
	return candidates, nil
}

// roster reads the verified+active pilot snapshot, preferring the cached copy.
// Matching never locks a pilot; two concurrent searches may hand the same
// pilot to different clients.
func (s *MatcherService) roster(ctx context.Context, category string) ([]domain.Pilot, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetPilots(ctx, category); err == nil && cached != nil {
			return cached, nil
		}
	}

	roster, err := s.pilots.ListAvailable(ctx, category)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetPilots(ctx, category, roster)
	}
	return roster, nil
}

var _ MatchUseCase = (*MatcherService)(nil)
