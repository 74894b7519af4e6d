package contracts

// Product is a catalog entry as read from the store database.
// This subsystem never writes products; they are collaborator reads only.
type Product struct {
	ProductID  int     `json:"productID"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Thumbnail  string  `json:"thumbnail"`
	CategoryID int     `json:"categoryID"`
	TargetID   int     `json:"targetID"` // audience attribute (1 = men, 2 = women)
	Activated  bool    `json:"isActivated"`
}

// Recommendation is one entry of a served recommendation list.
// The queried product itself is always the first entry with
// CorrelationScore 1.0 and IsSearched set. Source tells mined entries
// from attribute-fallback ones apart: fallback entries always carry
// CorrelationScore 0, while mined entries are always above zero.
type Recommendation struct {
	ProductID        int     `json:"productID"`
	Name             string  `json:"name"`
	Price            float64 `json:"price"`
	Thumbnail        string  `json:"thumbnail"`
	CategoryID       int     `json:"categoryID"`
	TargetID         int     `json:"targetID"`
	CorrelationScore float64 `json:"correlationScore"`
	Source           string  `json:"source"` // "correlation", "fallback" or "searched"
	IsSearched       bool    `json:"isSearchedProduct,omitempty"`
}

// RecommendationFromProduct builds a Recommendation from a live catalog product.
func RecommendationFromProduct(p Product, score float64, source string) Recommendation {
	return Recommendation{
		ProductID:        p.ProductID,
		Name:             p.Name,
		Price:            p.Price,
		Thumbnail:        p.Thumbnail,
		CategoryID:       p.CategoryID,
		TargetID:         p.TargetID,
		CorrelationScore: score,
		Source:           source,
	}
}
