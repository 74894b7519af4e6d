package reco

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamnt/fashionstore/internal/contracts"
)

func TestScoreMap(t *testing.T) {
	m := contracts.CorrelationMap{
		1: {{ProductID: 2, CorrelationScore: 0.9}, {ProductID: 3, CorrelationScore: 0.5}},
		2: {{ProductID: 3, CorrelationScore: 0.8}},
		4: {{ProductID: 3, CorrelationScore: 0.7}},
	}

	scores := scoreMap(m)
	require.Len(t, scores, 2)

	// Product 3 appears three times: rank 2 (0.5), rank 1 (1.0), rank 1
	// (1.0) -> frequency 3, avg 2.5/3, score 2.5.
	assert.Equal(t, 3, scores[0].ProductID)
	assert.Equal(t, 3, scores[0].Frequency)
	assert.InDelta(t, 2.5/3.0, scores[0].AvgCorrelation, 1e-9)
	assert.InDelta(t, 2.5, scores[0].Score, 1e-9)

	// Product 2 appears once at rank 1 -> score 1.0.
	assert.Equal(t, 2, scores[1].ProductID)
	assert.InDelta(t, 1.0, scores[1].Score, 1e-9)
}

func TestScoreMap_Deterministic(t *testing.T) {
	m := contracts.CorrelationMap{
		1: {{ProductID: 5}, {ProductID: 6}},
		2: {{ProductID: 6}, {ProductID: 5}},
		3: {{ProductID: 7}},
	}

	first := scoreMap(m)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, scoreMap(m))
	}

	// 5 and 6 tie exactly (one rank-1 and one rank-2 appearance each);
	// the stable sort keeps first-appearance order.
	assert.Equal(t, 5, first[0].ProductID)
	assert.Equal(t, 6, first[1].ProductID)
}

func TestScorer_RankAll_FiltersInactive(t *testing.T) {
	cfg := testRecoConfig(t)
	writeCorrelationMap(t, cfg, `{"1":[{"productID":4,"correlationScore":0.9},{"productID":2,"correlationScore":0.8}]}`)

	cat := &fakeCatalog{products: testProducts()}
	scorer := NewScorer(NewCorrelationCache(cfg, testLogger()), cat, testLogger())

	scores, err := scorer.RankAll(context.Background())
	require.NoError(t, err)

	// Product 4 is deactivated and must vanish from the ranking.
	require.Len(t, scores, 1)
	assert.Equal(t, 2, scores[0].ProductID)
}

func TestScorer_RankAll_NoData(t *testing.T) {
	cat := &fakeCatalog{products: testProducts()}
	scorer := NewScorer(NewCorrelationCache(testRecoConfig(t), testLogger()), cat, testLogger())

	scores, err := scorer.RankAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, scores)
}
