package acquisition

import (
	"time"

	"github.com/kareone/market-navigator/internal/core/domain"
)

// Request describes one acquisition job.
type Request struct {
	// RequestID keys cancellation. Generated when empty.
	RequestID string `json:"request_id,omitempty"`

	// Keywords are queried in the supplied order.
	Keywords []string `json:"keywords"`

	// TargetDescription is the text every entity description is compared
	// against.
	TargetDescription string `json:"target_description"`

	// NumPerKeyword caps new entities per keyword. 0 uses the service default.
	NumPerKeyword int `json:"num_per_keyword,omitempty"`

	// TopCount is the number of ranked entities to resolve details for.
	// 0 uses the service default.
	TopCount int `json:"top_count,omitempty"`

	// FreshnessDays sizes the cache window. 0 uses the service default;
	// negative forces refetch of everything.
	FreshnessDays int `json:"freshness_days,omitempty"`

	// SimilarityWeight and SecondaryWeight must sum to 1.0 when either is
	// set; both zero uses the service defaults.
	SimilarityWeight float64 `json:"similarity_weight,omitempty"`
	SecondaryWeight  float64 `json:"secondary_weight,omitempty"`
}

// TopEntity is one top-ranked entity with its resolved detail payload, or the
// error marker explaining why the payload is missing.
type TopEntity struct {
	domain.ScoredEntity

	Payload []byte `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Metadata summarizes a finished job. DurationMS is milliseconds so the JSON
// form stays readable.
type Metadata struct {
	RequestID        string    `json:"request_id"`
	EntitiesFound    int       `json:"entities_found"`
	SkippedKeywords  []string  `json:"skipped_keywords,omitempty"`
	CacheHits        int       `json:"cache_hits"`
	CacheMisses      int       `json:"cache_misses"`
	FetchFailures    int       `json:"fetch_failures"`
	SimilarityWeight float64   `json:"similarity_weight"`
	SecondaryWeight  float64   `json:"secondary_weight"`
	StartedAt        time.Time `json:"started_at"`
	DurationMS       int64     `json:"duration_ms"`
}

// Result is the full outcome of one job.
type Result struct {
	// AllEntities is the complete ranking, best first.
	AllEntities []domain.ScoredEntity `json:"all_entities"`

	// TopEntities carries the top-N ranking with resolved details.
	TopEntities []TopEntity `json:"top_entities_full_data"`

	// Cancelled marks a partial result produced by cooperative cancellation.
	Cancelled bool `json:"cancelled"`

	Metadata Metadata `json:"metadata"`
}
