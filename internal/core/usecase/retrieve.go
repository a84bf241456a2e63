package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/DanaMt13/smart-librarian/internal/core/domain"
	"github.com/DanaMt13/smart-librarian/internal/core/ports"
)

// Confidence thresholds, tuned empirically against cosine distances of the
// seed catalog. The policy is probe-then-classify: fetch a small probe set,
// sort it, and classify from the rank-1 distance and the rank-1/rank-2 gap.
const (
	defaultProbeK = 5
	maxDisplayK   = 8

	highMaxDistance   = 1.00
	highMinGap        = 0.12
	mediumMaxDistance = 1.10
	mediumMinGap      = 0.08
)

type Retriever struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	probeK   int
	maxTopK  int
}

func NewRetriever(embedder ports.Embedder, index ports.VectorIndex, probeK, maxTopK int) *Retriever {
	if probeK <= 0 {
		probeK = defaultProbeK
	}
	if maxTopK <= 0 {
		maxTopK = maxDisplayK
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		probeK:   probeK,
		maxTopK:  maxTopK,
	}
}

// Retrieve probes the vector index for the normalized query and classifies
// the result as High/Medium/Low confidence. The returned candidate list is
// sorted by non-decreasing distance and truncated to displayK, clamped to
// [1, maxTopK]. An empty or whitespace-only query yields an empty Low result
// without touching the index.
func (r *Retriever) Retrieve(ctx context.Context, query string, displayK int) (*domain.RetrievalResult, error) {
	normalized := domain.NormalizeText(query)
	if normalized == "" {
		return &domain.RetrievalResult{
			Candidates: []domain.Candidate{},
			Confidence: domain.ConfidenceLow,
		}, nil
	}

	if displayK < 1 {
		displayK = 1
	}
	if displayK > r.maxTopK {
		displayK = r.maxTopK
	}
	fetchK := r.probeK
	if displayK > fetchK {
		fetchK = displayK
	}

	queryVector, err := r.embedder.EmbedQuery(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := r.index.Search(ctx, queryVector, fetchK)
	if err != nil {
		return nil, fmt.Errorf("search vector index: %w", err)
	}

	// Ties keep the index order. Duplicate titles pass through untouched;
	// dedup is a presentation concern.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	confidence, d1, gap := classifyConfidence(candidates)
	if len(candidates) > displayK {
		candidates = candidates[:displayK]
	}

	return &domain.RetrievalResult{
		Candidates:  candidates,
		KSelected:   len(candidates),
		Confidence:  confidence,
		TopDistance: d1,
		Gap:         gap,
	}, nil
}

func classifyConfidence(sorted []domain.Candidate) (domain.Confidence, float64, float64) {
	if len(sorted) == 0 {
		return domain.ConfidenceLow, 0, 0
	}

	d1 := sorted[0].Distance
	gap := math.Inf(1)
	if len(sorted) > 1 {
		gap = sorted[1].Distance - d1
	}

	switch {
	case d1 < highMaxDistance && gap >= highMinGap:
		return domain.ConfidenceHigh, d1, gap
	case d1 < mediumMaxDistance && gap >= mediumMinGap:
		return domain.ConfidenceMedium, d1, gap
	default:
		return domain.ConfidenceLow, d1, gap
	}
}
