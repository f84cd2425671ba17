package domain

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/unicode/norm"
)

// Source identifies the platform a raw entity came from.
type Source string

// Supported sources.
const (
	SourceCrunchbase Source = "crunchbase"
	SourceTracxn     Source = "tracxn"
)

const maxAuthorityScore = 100

// RawEntity is a tagged union of the source-specific result shapes. Exactly
// one of the shape fields is set, matching Source. It is normalized into one
// canonical Entity before entering the tracker, so downstream scoring and
// caching code never branches on source shape.
type RawEntity struct {
	Source     Source
	Crunchbase *CrunchbaseShape
	Tracxn     *TracxnShape
}

// CrunchbaseShape is a search result row from the Crunchbase-style source.
// Rank is a platform ordinal where lower is better.
type CrunchbaseShape struct {
	Permalink   string `json:"permalink"`
	Name        string `json:"name"`
	Description string `json:"short_description"`
	Rank        int64  `json:"rank"`
	FoundedOn   string `json:"founded_on"`
}

// TracxnShape is a search result row from the Tracxn-style source.
// Score is a 0-100 authority score where higher is better.
type TracxnShape struct {
	DomainURL   string  `json:"domain_url"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Score       float64 `json:"tracxn_score"`
	FoundedDate string  `json:"founded_date"`
}

// Normalize converts the raw entity into a canonical Entity. It returns
// false when the raw record is unusable: no reference, or no description to
// score against.
func (r RawEntity) Normalize() (Entity, bool) {
	switch r.Source {
	case SourceCrunchbase:
		if r.Crunchbase == nil {
			return Entity{}, false
		}

		return r.Crunchbase.normalize()
	case SourceTracxn:
		if r.Tracxn == nil {
			return Entity{}, false
		}

		return r.Tracxn.normalize()
	default:
		return Entity{}, false
	}
}

func (s *CrunchbaseShape) normalize() (Entity, bool) {
	ref := CanonicalReference(s.Permalink)
	if ref == "" || strings.TrimSpace(s.Description) == "" {
		return Entity{}, false
	}

	e := Entity{
		Reference:   ref,
		Source:      SourceCrunchbase,
		Name:        strings.TrimSpace(s.Name),
		Description: strings.TrimSpace(s.Description),
		Secondary: SecondarySignal{
			Kind:  SignalOrdinalRank,
			Value: float64(s.Rank),
		},
	}

	e.FoundedAt = parseFoundedDate(s.FoundedOn)

	return e, true
}

func (s *TracxnShape) normalize() (Entity, bool) {
	ref := CanonicalReference(s.DomainURL)
	if ref == "" || strings.TrimSpace(s.Description) == "" {
		return Entity{}, false
	}

	score := s.Score / maxAuthorityScore
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}

	e := Entity{
		Reference:   ref,
		Source:      SourceTracxn,
		Name:        strings.TrimSpace(s.Name),
		Description: strings.TrimSpace(s.Description),
		Secondary: SecondarySignal{
			Kind: SignalAuthorityScore,
			// Stored pre-normalized to [0,1] so scoring does not need
			// the 0-100 range again.
			Value: score,
		},
	}

	e.FoundedAt = parseFoundedDate(s.FoundedDate)

	return e, true
}

// CanonicalReference normalizes a platform id or URL into the stable dedup
// and cache key: NFKC-folded, lowercased, trimmed of scheme and trailing
// slashes.
func CanonicalReference(raw string) string {
	ref := norm.NFKC.String(strings.TrimSpace(raw))
	ref = strings.ToLower(ref)
	ref = strings.TrimPrefix(ref, "https://")
	ref = strings.TrimPrefix(ref, "http://")
	ref = strings.TrimPrefix(ref, "www.")

	return strings.TrimRight(ref, "/")
}

// parseFoundedDate parses the loosely formatted founding dates the sources
// expose ("2014-05-01", "May 2014", "2014"). Unparseable input yields zero time.
func parseFoundedDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}
	}

	return t
}
