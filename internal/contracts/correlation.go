package contracts

// CorrelationEntry is one recommended neighbor of a source product,
// as materialized in the correlation map artifact.
type CorrelationEntry struct {
	ProductID        int     `json:"productID"`
	Name             string  `json:"name"`
	CategoryID       int     `json:"categoryID"`
	TargetID         int     `json:"targetID"`
	Price            float64 `json:"price"`
	Thumbnail        string  `json:"thumbnail,omitempty"`
	CorrelationScore float64 `json:"correlationScore"`
}

// CorrelationMap maps a source productID to its neighbors ordered by
// descending relevance. Immutable once materialized for a pipeline run;
// replaced wholesale by the next run. encoding/json encodes the integer
// keys as strings, matching the artifact format.
type CorrelationMap map[int][]CorrelationEntry

// TotalEntries returns the number of (source, neighbor) pairs in the map.
func (m CorrelationMap) TotalEntries() int {
	total := 0
	for _, entries := range m {
		total += len(entries)
	}
	return total
}

// ProductScore is the derived store-wide ranking score of one product,
// recomputed per request from the current correlation map.
type ProductScore struct {
	ProductID      int     `json:"productID"`
	Frequency      int     `json:"frequency"`
	AvgCorrelation float64 `json:"avgCorrelation"`
	Score          float64 `json:"score"`
}
