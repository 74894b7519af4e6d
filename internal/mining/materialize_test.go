package mining

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamnt/fashionstore/internal/contracts"
	"github.com/lamnt/fashionstore/pkg/config"
)

type fakeProductLookup struct {
	products map[int]contracts.Product
	gotIDs   []int
}

func (f *fakeProductLookup) GetByIDs(ctx context.Context, productIDs []int) (map[int]contracts.Product, error) {
	f.gotIDs = productIDs
	return f.products, nil
}

func testMaterializeConfig(t *testing.T) config.MiningConfig {
	t.Helper()
	return config.MiningConfig{
		DataDir:            t.TempDir(),
		AnalysisFile:       "correlation_recommendations.json",
		CorrelationMapFile: "correlation_map.json",
		AnalyzeScript:      "analyze_correlations.py",
	}
}

func writeAnalysis(t *testing.T, cfg config.MiningConfig, content string) {
	t.Helper()
	path := filepath.Join(cfg.DataDir, cfg.AnalysisFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestMaterializer_Materialize(t *testing.T) {
	cfg := testMaterializeConfig(t)
	writeAnalysis(t, cfg, `{"1":[{"productID":2,"score":0.8},{"productID":9,"score":0.4}],"2":[{"productID":1,"score":0.8}]}`)

	lookup := &fakeProductLookup{products: map[int]contracts.Product{
		1: {ProductID: 1, Name: "Linen Shirt", CategoryID: 3, TargetID: 1, Price: 45000, Thumbnail: "shirt.jpg"},
		2: {ProductID: 2, Name: "Chino Pants", CategoryID: 4, TargetID: 1, Price: 52000},
	}}

	m := NewMaterializer(lookup, cfg, testLogger())
	result, err := m.Materialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Products)
	assert.Equal(t, 3, result.Recommendations)

	data, err := os.ReadFile(result.ArtifactPath)
	require.NoError(t, err)

	var corrMap contracts.CorrelationMap
	require.NoError(t, json.Unmarshal(data, &corrMap))

	entries := corrMap[1]
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[0].ProductID)
	assert.Equal(t, "Chino Pants", entries[0].Name)
	assert.Equal(t, 4, entries[0].CategoryID)
	assert.InDelta(t, 0.8, entries[0].CorrelationScore, 1e-9)

	// A neighbor missing from the catalog keeps its score but gets a
	// placeholder name instead of dropping out of the map.
	assert.Equal(t, 9, entries[1].ProductID)
	assert.Equal(t, "Unknown", entries[1].Name)

	// Every distinct neighbor was hydrated in a single catalog read.
	assert.ElementsMatch(t, []int{1, 2, 9}, lookup.gotIDs)
}

func TestMaterializer_Materialize_NormalizesScore(t *testing.T) {
	cfg := testMaterializeConfig(t)
	writeAnalysis(t, cfg, `{"5":[{"productID":6,"score":0},{"productID":7,"score":-1.2}]}`)

	lookup := &fakeProductLookup{products: map[int]contracts.Product{}}
	m := NewMaterializer(lookup, cfg, testLogger())

	result, err := m.Materialize(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(result.ArtifactPath)
	require.NoError(t, err)

	var corrMap contracts.CorrelationMap
	require.NoError(t, json.Unmarshal(data, &corrMap))

	for _, e := range corrMap[5] {
		assert.Equal(t, 1.0, e.CorrelationScore)
	}
}

func TestMaterializer_Materialize_MissingAnalysis(t *testing.T) {
	cfg := testMaterializeConfig(t)
	m := NewMaterializer(&fakeProductLookup{}, cfg, testLogger())

	_, err := m.Materialize(context.Background())
	assert.Error(t, err)
}

func TestMaterializer_Materialize_MalformedAnalysis(t *testing.T) {
	cfg := testMaterializeConfig(t)
	writeAnalysis(t, cfg, "not json at all")

	m := NewMaterializer(&fakeProductLookup{}, cfg, testLogger())
	_, err := m.Materialize(context.Background())

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, cfg.AnalyzeScript, protoErr.Script)
}
