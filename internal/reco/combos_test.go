package reco

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComboBuilder_Build(t *testing.T) {
	cfg := testRecoConfig(t)
	// 1 pairs with 2; 2 pairs back with 1 (mirrored, deduplicated);
	// 5's best partner 3 is the wrong audience, so 5 falls through to 2.
	writeCorrelationMap(t, cfg, `{
		"1":[{"productID":2,"correlationScore":0.8}],
		"2":[{"productID":1,"correlationScore":0.8}],
		"5":[{"productID":3,"correlationScore":0.9},{"productID":2,"correlationScore":0.6}]
	}`)

	cat := &fakeCatalog{products: testProducts()}
	builder := NewComboBuilder(NewCorrelationCache(cfg, testLogger()), cat, testLogger())

	combos, err := builder.Build(context.Background())
	require.NoError(t, err)

	require.Len(t, combos, 2)
	assert.Equal(t, 1, combos[0].Main.ProductID)
	assert.Equal(t, 2, combos[0].Partner.ProductID)
	assert.Equal(t, 5, combos[1].Main.ProductID)
	assert.Equal(t, 2, combos[1].Partner.ProductID)

	for _, c := range combos {
		assert.Equal(t, c.Main.TargetID, c.Partner.TargetID)
	}
}

func TestComboBuilder_Build_NoData(t *testing.T) {
	cat := &fakeCatalog{products: testProducts()}
	builder := NewComboBuilder(NewCorrelationCache(testRecoConfig(t), testLogger()), cat, testLogger())

	combos, err := builder.Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, combos)
}

func TestComboPrice_Tiers(t *testing.T) {
	assert.Equal(t, 3, comboPrice(900000).DiscountPercent)
	assert.Equal(t, 5, comboPrice(1000000).DiscountPercent)
	assert.Equal(t, 5, comboPrice(2500000).DiscountPercent)
	assert.Equal(t, 10, comboPrice(3000000).DiscountPercent)

	p := comboPrice(2000000)
	assert.InDelta(t, 100000, p.DiscountAmount, 1e-6)
	assert.InDelta(t, 1900000, p.FinalPrice, 1e-6)
}
