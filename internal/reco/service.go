package reco

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lamnt/fashionstore/internal/contracts"
	"github.com/lamnt/fashionstore/internal/mining"
	"github.com/lamnt/fashionstore/pkg/config"
	"github.com/lamnt/fashionstore/pkg/logger"
	"github.com/lamnt/fashionstore/pkg/redis"
)

// ErrEmptyCart is returned when cart analysis is requested for an empty basket.
var ErrEmptyCart = errors.New("cart is empty")

// statisticsTopN widens the statistics mining pass well past any serving
// topN so the pattern counts reflect the whole history, not a page of it.
const statisticsTopN = 100

// boughtTogetherOverFetch widens the raw map read before the audience
// filter so attribute mismatches rarely shrink the result below topN.
const boughtTogetherOverFetch = 3

// MineOptions are the caller-supplied thresholds for the real-time
// mining path. Zero values fall back to the service defaults.
type MineOptions struct {
	MinUtil    float64 `json:"minutil"`
	MinCor     float64 `json:"mincor"`
	MaxLen     int     `json:"maxlen"`
	TopN       int     `json:"topN"`
	OrderLimit int     `json:"limit"`
}

func (o MineOptions) withDefaults(cfg config.MiningConfig) MineOptions {
	if o.MinUtil <= 0 {
		o.MinUtil = 0.001
	}
	if o.MinCor <= 0 {
		o.MinCor = 0.3
	}
	if o.TopN <= 0 {
		o.TopN = 5
	}
	if o.OrderLimit <= 0 {
		o.OrderLimit = cfg.OrderLimit
	}
	return o
}

// CartRecommendation is one real-time mined recommendation hydrated with
// catalog fields. Product is nil when the mined ID is no longer in the catalog.
type CartRecommendation struct {
	mining.MinedRecommendation
	Product *contracts.Product `json:"productDetails,omitempty"`
}

// CartAnalysis is the outcome of one basket analysis. Success false with
// an empty list is a normal renderable state, not a failure.
type CartAnalysis struct {
	Success         bool                 `json:"success"`
	Message         string               `json:"message,omitempty"`
	TotalPatterns   int                  `json:"totalPatterns,omitempty"`
	Recommendations []CartRecommendation `json:"recommendations"`
}

// SimilarityFallback picks attribute-similar products for a source when
// no correlation data exists. What counts as "similar enough" is a
// product decision, kept separate from the mining pipeline.
type SimilarityFallback interface {
	Find(ctx context.Context, source contracts.Product, limit int) ([]contracts.Product, error)
}

// attributeFallback is the default policy: active products sharing both
// the category and the target audience of the source.
type attributeFallback struct {
	products contracts.ProductReader
}

func (f attributeFallback) Find(ctx context.Context, source contracts.Product, limit int) ([]contracts.Product, error) {
	return f.products.FindSimilar(ctx, source, limit)
}

// RankedProduct is one entry of the store-wide ranking with its catalog product.
type RankedProduct struct {
	contracts.ProductScore
	Product contracts.Product `json:"product"`
}

// Service is the query-serving facade over the correlation cache, the
// global scorer and the real-time mining bridge.
type Service struct {
	cache     *CorrelationCache
	scorer    *Scorer
	products  contracts.ProductReader
	orders    contracts.OrderReader
	miner     mining.Miner
	cartCache *redis.Cache
	similar   SimilarityFallback
	cfg       config.MiningConfig
	logger    *logger.Logger
}

// NewService creates a new recommendation Service
func NewService(
	cache *CorrelationCache,
	scorer *Scorer,
	products contracts.ProductReader,
	orders contracts.OrderReader,
	miner mining.Miner,
	cartCache *redis.Cache,
	cfg config.MiningConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		cache:     cache,
		scorer:    scorer,
		products:  products,
		orders:    orders,
		miner:     miner,
		cartCache: cartCache,
		similar:   attributeFallback{products: products},
		cfg:       cfg,
		logger:    log,
	}
}

// SetFallback replaces the similarity fallback policy.
func (s *Service) SetFallback(f SimilarityFallback) {
	s.similar = f
}

// ByProduct returns recommendations for one product: the product itself
// first, then up to topN correlated neighbors hydrated with live catalog
// fields and restricted to active products. Without correlation data for
// the product the attribute fallback serves instead.
func (s *Service) ByProduct(ctx context.Context, productID, topN int) ([]contracts.Recommendation, error) {
	source, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	entries, ok := s.correlatedEntries(productID)
	if !ok {
		return s.fallback(ctx, *source, topN)
	}

	if len(entries) > topN {
		entries = entries[:topN]
	}

	hydrated, err := s.hydrate(ctx, entries, func(p contracts.Product) bool { return true })
	if err != nil {
		return nil, err
	}

	return s.withSearched(*source, hydrated), nil
}

// BoughtTogether is ByProduct restricted to the source's audience: only
// neighbors sharing the source's targetID survive. The raw read is
// widened to topN*3 before filtering so the filter rarely starves the
// result below topN.
func (s *Service) BoughtTogether(ctx context.Context, productID, topN int) ([]contracts.Recommendation, error) {
	source, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	entries, ok := s.correlatedEntries(productID)
	if !ok {
		// Fallback candidates already share the source's audience.
		return s.fallback(ctx, *source, topN)
	}

	extended := topN * boughtTogetherOverFetch
	if len(entries) > extended {
		entries = entries[:extended]
	}

	hydrated, err := s.hydrate(ctx, entries, func(p contracts.Product) bool {
		return p.TargetID == source.TargetID
	})
	if err != nil {
		return nil, err
	}

	if len(hydrated) > topN {
		hydrated = hydrated[:topN]
	}

	return s.withSearched(*source, hydrated), nil
}

// CartAnalysis mines recommendations for a basket against recent order
// history through the real-time bridge, with a short-lived response cache
// keyed by the basket and thresholds.
func (s *Service) CartAnalysis(ctx context.Context, cartItems []int, opts MineOptions) (*CartAnalysis, error) {
	if len(cartItems) == 0 {
		return nil, ErrEmptyCart
	}
	opts = opts.withDefaults(s.cfg)

	key := cartCacheKey(cartItems, opts)
	var cached CartAnalysis
	if found, err := s.cartCache.Get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	transactions, err := s.orders.RecentTransactions(ctx, opts.OrderLimit)
	if err != nil {
		return nil, err
	}
	if len(transactions) < 2 {
		return &CartAnalysis{
			Success:         false,
			Message:         "not enough order history to analyze",
			Recommendations: []CartRecommendation{},
		}, nil
	}

	resp, err := s.miner.Invoke(ctx, mining.Request{
		Action:    mining.ActionCartAnalysis,
		Orders:    transactions,
		CartItems: cartItems,
		MinUtil:   opts.MinUtil,
		MinCor:    opts.MinCor,
		MaxLen:    opts.MaxLen,
		TopN:      opts.TopN,
	})
	if err != nil {
		return nil, err
	}

	result := &CartAnalysis{
		Success:         resp.Success,
		Message:         resp.Message,
		TotalPatterns:   resp.TotalPatterns,
		Recommendations: make([]CartRecommendation, 0, len(resp.Recommendations)),
	}

	if len(resp.Recommendations) > 0 {
		ids := make([]int, len(resp.Recommendations))
		for i, r := range resp.Recommendations {
			ids[i] = r.ProductID
		}
		catalog, err := s.products.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, r := range resp.Recommendations {
			cr := CartRecommendation{MinedRecommendation: r}
			if p, ok := catalog[r.ProductID]; ok {
				cr.Product = &p
			}
			result.Recommendations = append(result.Recommendations, cr)
		}
	}

	if err := s.cartCache.Set(ctx, key, result, s.cfg.CartCacheTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to cache cart analysis")
	}

	return result, nil
}

// MiningStatistics summarizes one live mining pass over recent order
// history. Success false with a message is a normal renderable state.
type MiningStatistics struct {
	Success              bool             `json:"success"`
	Message              string           `json:"message,omitempty"`
	TotalOrders          int              `json:"totalOrders"`
	TotalPatterns        int              `json:"totalPatterns"`
	TotalRecommendations int              `json:"totalRecommendations"`
	TopPatterns          []mining.Pattern `json:"topPatterns"`
	Parameters           MineOptions      `json:"parameters"`
}

// Statistics runs one full mining pass over recent order history through
// the real-time bridge and reports the pattern counts and top itemsets.
func (s *Service) Statistics(ctx context.Context, opts MineOptions) (*MiningStatistics, error) {
	opts = opts.withDefaults(s.cfg)
	if opts.MaxLen <= 0 {
		opts.MaxLen = 3
	}
	opts.TopN = statisticsTopN

	transactions, err := s.orders.RecentTransactions(ctx, opts.OrderLimit)
	if err != nil {
		return nil, err
	}
	if len(transactions) < 2 {
		return &MiningStatistics{
			Success:     false,
			Message:     "not enough order history to analyze",
			TopPatterns: []mining.Pattern{},
			Parameters:  opts,
		}, nil
	}

	resp, err := s.miner.Invoke(ctx, mining.Request{
		Action:  mining.ActionRecommend,
		Orders:  transactions,
		MinUtil: opts.MinUtil,
		MinCor:  opts.MinCor,
		MaxLen:  opts.MaxLen,
		TopN:    opts.TopN,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return &MiningStatistics{
			Success:     false,
			Message:     resp.Message,
			TopPatterns: []mining.Pattern{},
			Parameters:  opts,
		}, nil
	}

	stats := &MiningStatistics{
		Success:              true,
		TotalOrders:          len(transactions),
		TotalPatterns:        resp.TotalPatterns,
		TotalRecommendations: len(resp.Recommendations),
		TopPatterns:          resp.Patterns,
		Parameters:           opts,
	}
	if stats.TopPatterns == nil {
		stats.TopPatterns = []mining.Pattern{}
	}
	return stats, nil
}

// MostRecommended returns the top of the store-wide ranking with catalog
// details for each product.
func (s *Service) MostRecommended(ctx context.Context, topN int) ([]RankedProduct, error) {
	scores, err := s.scorer.RankAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(scores) > topN {
		scores = scores[:topN]
	}
	if len(scores) == 0 {
		return []RankedProduct{}, nil
	}

	ids := make([]int, len(scores))
	for i, sc := range scores {
		ids[i] = sc.ProductID
	}
	catalog, err := s.products.GetActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedProduct, 0, len(scores))
	for _, sc := range scores {
		p, ok := catalog[sc.ProductID]
		if !ok {
			continue
		}
		ranked = append(ranked, RankedProduct{ProductScore: sc, Product: p})
	}

	return ranked, nil
}

// correlatedEntries reads the cached neighbors of one product. A missing
// artifact, a stale-parse failure or an absent key all report no data;
// parse failures are logged and served through the fallback instead of
// failing the request.
func (s *Service) correlatedEntries(productID int) ([]contracts.CorrelationEntry, bool) {
	m, err := s.cache.Get()
	if err != nil {
		if !errors.Is(err, ErrNoCorrelationData) {
			s.logger.WithError(err).Warn("Correlation map unavailable, using fallback")
		}
		return nil, false
	}
	entries := m[productID]
	if len(entries) == 0 {
		return nil, false
	}
	return entries, true
}

// hydrate re-reads the neighbor products from the catalog, keeping the
// stored order, dropping inactive or deleted products and anything the
// keep predicate rejects.
func (s *Service) hydrate(ctx context.Context, entries []contracts.CorrelationEntry, keep func(contracts.Product) bool) ([]contracts.Recommendation, error) {
	ids := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.ProductID
	}

	active, err := s.products.GetActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	recs := make([]contracts.Recommendation, 0, len(entries))
	for _, e := range entries {
		p, ok := active[e.ProductID]
		if !ok || !keep(p) {
			continue
		}
		score := e.CorrelationScore
		if score <= 0 {
			score = 1.0
		}
		recs = append(recs, contracts.RecommendationFromProduct(p, score, "correlation"))
	}

	return recs, nil
}

// fallback serves attribute-similar products when no correlation data
// exists for the source: active products sharing both the category and
// the target audience, the source excluded. An empty candidate set is a
// normal empty result.
func (s *Service) fallback(ctx context.Context, source contracts.Product, topN int) ([]contracts.Recommendation, error) {
	similar, err := s.similar.Find(ctx, source, topN)
	if err != nil {
		return nil, err
	}

	recs := make([]contracts.Recommendation, 0, len(similar))
	for _, p := range similar {
		recs = append(recs, contracts.RecommendationFromProduct(p, 0, "fallback"))
	}

	return s.withSearched(source, recs), nil
}

// withSearched prepends the queried product itself with the synthetic
// maximum score.
func (s *Service) withSearched(source contracts.Product, recs []contracts.Recommendation) []contracts.Recommendation {
	searched := contracts.RecommendationFromProduct(source, 1.0, "searched")
	searched.IsSearched = true
	return append([]contracts.Recommendation{searched}, recs...)
}

// cartCacheKey builds a deterministic cache key from the basket and
// thresholds; item order in the basket does not matter.
func cartCacheKey(cartItems []int, opts MineOptions) string {
	sorted := make([]int, len(cartItems))
	copy(sorted, cartItems)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("cart:%s:u%g:c%g:m%d:n%d:l%d",
		strings.Join(parts, "-"), opts.MinUtil, opts.MinCor, opts.MaxLen, opts.TopN, opts.OrderLimit)
}
