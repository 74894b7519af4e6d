package reco

import (
	"context"
	"errors"
	"fmt"

	"github.com/lamnt/fashionstore/internal/contracts"
	"github.com/lamnt/fashionstore/pkg/logger"
)

// ComboPrice is the tiered combo discount for a product pair.
type ComboPrice struct {
	OriginalPrice   float64 `json:"originalPrice"`
	DiscountPercent int     `json:"discountPercent"`
	DiscountAmount  float64 `json:"discountAmount"`
	FinalPrice      float64 `json:"finalPrice"`
}

// Combo pairs a product with its strongest bought-together partner.
type Combo struct {
	Main             contracts.Product `json:"mainProduct"`
	Partner          contracts.Product `json:"comboProduct"`
	CorrelationScore float64           `json:"correlationScore"`
	TargetID         int               `json:"targetID"`
	Price            ComboPrice        `json:"price"`
}

// ComboBuilder derives storefront combo offers from the correlation map:
// each active product contributes its top same-audience partner, and
// mirrored pairs collapse to one combo.
type ComboBuilder struct {
	cache    *CorrelationCache
	products contracts.ProductReader
	logger   *logger.Logger
}

// NewComboBuilder creates a new ComboBuilder
func NewComboBuilder(cache *CorrelationCache, products contracts.ProductReader, log *logger.Logger) *ComboBuilder {
	return &ComboBuilder{
		cache:    cache,
		products: products,
		logger:   log,
	}
}

// Build assembles the current combo list. Without correlation data the
// list is empty, not an error.
func (b *ComboBuilder) Build(ctx context.Context) ([]Combo, error) {
	m, err := b.cache.Get()
	if err != nil {
		if errors.Is(err, ErrNoCorrelationData) {
			return []Combo{}, nil
		}
		return nil, err
	}

	products, err := b.products.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	active := make(map[int]contracts.Product, len(products))
	for _, p := range products {
		active[p.ProductID] = p
	}

	combos := make([]Combo, 0)
	seenPairs := make(map[string]struct{})

	for _, p := range products {
		partner, score, ok := bestPartner(m[p.ProductID], active, p)
		if !ok {
			continue
		}

		// A+B and B+A are the same combo.
		key := pairKey(p.ProductID, partner.ProductID)
		if _, dup := seenPairs[key]; dup {
			continue
		}
		seenPairs[key] = struct{}{}

		combos = append(combos, Combo{
			Main:             p,
			Partner:          partner,
			CorrelationScore: score,
			TargetID:         p.TargetID,
			Price:            comboPrice(p.Price + partner.Price),
		})
	}

	return combos, nil
}

// bestPartner picks the highest-ranked neighbor that is still active,
// shares the main product's audience and is not the product itself.
func bestPartner(entries []contracts.CorrelationEntry, active map[int]contracts.Product, main contracts.Product) (contracts.Product, float64, bool) {
	for _, e := range entries {
		if e.ProductID == main.ProductID {
			continue
		}
		p, ok := active[e.ProductID]
		if !ok || p.TargetID != main.TargetID {
			continue
		}
		score := e.CorrelationScore
		if score <= 0 {
			score = 1.0
		}
		return p, score, true
	}
	return contracts.Product{}, 0, false
}

func pairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}

// comboPrice applies the tiered discount: 10% from 3M, 5% from 1M,
// 3% below that.
func comboPrice(total float64) ComboPrice {
	percent := 3
	switch {
	case total >= 3000000:
		percent = 10
	case total >= 1000000:
		percent = 5
	}

	discount := total * float64(percent) / 100
	return ComboPrice{
		OriginalPrice:   total,
		DiscountPercent: percent,
		DiscountAmount:  discount,
		FinalPrice:      total - discount,
	}
}
