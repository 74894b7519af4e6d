package reco

import (
	"context"
	"errors"
	"sort"

	"github.com/lamnt/fashionstore/internal/contracts"
	"github.com/lamnt/fashionstore/pkg/logger"
)

// Scorer derives a store-wide "most recommended" ranking from the whole
// correlation map. Every (source, neighbor) pair counts as one appearance
// of the neighbor; products that appear often and near the top of their
// source lists score highest.
type Scorer struct {
	cache    *CorrelationCache
	products contracts.ProductReader
	logger   *logger.Logger
}

// NewScorer creates a new Scorer
func NewScorer(cache *CorrelationCache, products contracts.ProductReader, log *logger.Logger) *Scorer {
	return &Scorer{
		cache:    cache,
		products: products,
		logger:   log,
	}
}

// RankAll computes the global ranking over the current correlation map,
// restricted to currently active catalog products. With no correlation
// data the ranking is empty, not an error.
func (s *Scorer) RankAll(ctx context.Context) ([]contracts.ProductScore, error) {
	m, err := s.cache.Get()
	if err != nil {
		if errors.Is(err, ErrNoCorrelationData) {
			return []contracts.ProductScore{}, nil
		}
		return nil, err
	}

	scores := scoreMap(m)
	if len(scores) == 0 {
		return scores, nil
	}

	ids := make([]int, len(scores))
	for i, sc := range scores {
		ids[i] = sc.ProductID
	}
	active, err := s.products.GetActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	filtered := scores[:0]
	for _, sc := range scores {
		if _, ok := active[sc.ProductID]; ok {
			filtered = append(filtered, sc)
		}
	}

	return filtered, nil
}

// scoreMap scores every product appearing as a neighbor anywhere in the
// map: frequency is the appearance count, the position score of one
// appearance at 1-based rank r is 1/r, and score = frequency * mean of
// position scores. Source keys are walked in ascending order so the
// result is deterministic for a fixed map.
func scoreMap(m contracts.CorrelationMap) []contracts.ProductScore {
	sources := make([]int, 0, len(m))
	for id := range m {
		sources = append(sources, id)
	}
	sort.Ints(sources)

	type acc struct {
		frequency int
		posSum    float64
	}
	byProduct := make(map[int]*acc)
	order := make([]int, 0)

	for _, sourceID := range sources {
		for i, entry := range m[sourceID] {
			a, ok := byProduct[entry.ProductID]
			if !ok {
				a = &acc{}
				byProduct[entry.ProductID] = a
				order = append(order, entry.ProductID)
			}
			a.frequency++
			a.posSum += 1.0 / float64(i+1)
		}
	}

	scores := make([]contracts.ProductScore, 0, len(order))
	for _, id := range order {
		a := byProduct[id]
		avg := a.posSum / float64(a.frequency)
		scores = append(scores, contracts.ProductScore{
			ProductID:      id,
			Frequency:      a.frequency,
			AvgCorrelation: avg,
			Score:          float64(a.frequency) * avg,
		})
	}

	// Stable sort keeps first-appearance order for tied scores.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	return scores
}
