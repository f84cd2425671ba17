// Package domain defines the core types shared across the acquisition pipeline:
// discovered entities, scored entities, weights, and cached detail records.
package domain

import (
	"math"
	"time"
)

// WeightEpsilon is the tolerance used when validating that similarity and
// secondary weights sum to 1.0.
const WeightEpsilon = 1e-6

// Entity is a company/startup discovered during keyword collection,
// deduplicated by Reference. It is mutated only during the single-threaded
// collection phase and treated as immutable once ranking begins.
type Entity struct {
	// Reference is the stable unique key (canonical URL or platform id)
	// used for dedup and caching.
	Reference string

	// Source is the platform the entity was first seen on. Detail fetching
	// is routed by it.
	Source Source

	Name        string
	Description string

	// OriginKeywords lists the keywords under which this entity was found,
	// in first-seen order, without duplicates.
	OriginKeywords []string

	// AppearanceCount is the number of sightings across all keyword queries.
	AppearanceCount int

	// Secondary carries the raw authority/rank signal used for the
	// secondary score.
	Secondary SecondarySignal

	// FoundedAt is the founding date when the source exposes one.
	// Zero when unknown.
	FoundedAt time.Time
}

// HasKeyword reports whether the keyword is already recorded for this entity.
func (e *Entity) HasKeyword(keyword string) bool {
	for _, k := range e.OriginKeywords {
		if k == keyword {
			return true
		}
	}

	return false
}

// SignalKind distinguishes the normalization semantics of secondary signals.
type SignalKind string

const (
	// SignalOrdinalRank is a platform-provided ordinal where lower raw
	// values are better. Normalized by inverted min-max over the entity set.
	SignalOrdinalRank SignalKind = "ordinal_rank"

	// SignalAuthorityScore is a 0-100 score where higher raw values are
	// better. Normalized by dividing by 100.
	SignalAuthorityScore SignalKind = "authority_score"
)

// SecondarySignal is the raw secondary ranking signal attached to an entity.
type SecondarySignal struct {
	Kind  SignalKind
	Value float64
}

// ScoredEntity wraps an Entity with its component and combined scores.
type ScoredEntity struct {
	Entity

	// SimilarityScore is the semantic similarity to the target description,
	// in [0,1].
	SimilarityScore float64

	// SecondaryScore is the normalized authority/rank signal, in [0,1].
	SecondaryScore float64

	// CombinedScore is SimilarityScore*WSim + SecondaryScore*WSec.
	CombinedScore float64

	// Rank is the 1-based position after descending sort by CombinedScore,
	// ties broken by Reference for determinism.
	Rank int
}

// Weights holds the similarity/secondary weighting of the combined score.
type Weights struct {
	Similarity float64
	Secondary  float64
}

// Validate checks that the weights are non-negative and sum to 1.0 within
// WeightEpsilon.
func (w Weights) Validate() bool {
	if w.Similarity < 0 || w.Secondary < 0 {
		return false
	}

	return math.Abs(w.Similarity+w.Secondary-1.0) <= WeightEpsilon
}

// Combine applies the weights to the two component scores.
func (w Weights) Combine(similarity, secondary float64) float64 {
	return similarity*w.Similarity + secondary*w.Secondary
}

// CacheRecord is a persisted detail payload for one entity reference.
type CacheRecord struct {
	Reference string
	Payload   []byte
	FetchedAt time.Time
}

// FreshAt reports whether the record is still fresh at the given instant.
// Staleness is a pure function of elapsed time; a zero window means the
// record is never fresh.
func (r CacheRecord) FreshAt(now time.Time, window time.Duration) bool {
	if window <= 0 {
		return false
	}

	return now.Sub(r.FetchedAt) < window
}
