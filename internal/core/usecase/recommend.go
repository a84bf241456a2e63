package usecase

import (
	"context"
	"fmt"

	"github.com/DanaMt13/smart-librarian/internal/core/domain"
	"github.com/DanaMt13/smart-librarian/internal/core/ports"
)

// Terminal answers for pipeline outcomes that never reach generation.
const (
	BlockedAnswer    = "I'd like to keep things respectful. Please rephrase your question without offensive language and I'll be happy to help."
	EmptyQueryAnswer = "Please tell me what kind of book you are looking for."
	NoMatchAnswer    = "I could not find a relevant match in the catalog for that request."
)

// RecommendUseCase runs the sequential pipeline: safety gate, retrieval,
// selection, evidence, grounded generation. Each stage depends on the
// previous one's output; per-request state never leaks across requests.
type RecommendUseCase struct {
	gate      *SafetyGate
	retriever *Retriever
	generator *AnswerGenerator
}

var _ ports.BookRecommender = (*RecommendUseCase)(nil)

func NewRecommendUseCase(gate *SafetyGate, retriever *Retriever, generator *AnswerGenerator) *RecommendUseCase {
	return &RecommendUseCase{
		gate:      gate,
		retriever: retriever,
		generator: generator,
	}
}

func (uc *RecommendUseCase) Recommend(ctx context.Context, query string, topK int) (*domain.Recommendation, error) {
	// Rejecting an empty query must not cost a moderation call.
	if domain.NormalizeText(query) == "" {
		return terminalRecommendation(EmptyQueryAnswer), nil
	}

	if verdict := uc.gate.Check(ctx, query); verdict.Blocked {
		return terminalRecommendation(BlockedAnswer), nil
	}

	result, err := uc.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}

	title, ok := ChooseTitle(result)
	if !ok {
		return terminalRecommendation(NoMatchAnswer), nil
	}

	evidence := buildEvidence(result.Candidates, query)
	answer, err := uc.generator.Compose(ctx, query, title, evidence[0].Snippet)
	if err != nil {
		return nil, fmt.Errorf("compose answer: %w", err)
	}
	answer += "\n\nTop candidates:\n" + formatRankedReport(result.Candidates)

	return &domain.Recommendation{
		Title:       &title,
		AnswerText:  answer,
		Ranked:      rankedTitles(result.Candidates),
		Evidence:    evidence,
		Confidence:  result.Confidence,
		TopDistance: result.TopDistance,
		Gap:         domain.SerializableGap(result.Gap),
	}, nil
}

// terminalRecommendation is a complete, well-formed response for outcomes
// that never reach generation: blocked, rejected, or matchless queries.
func terminalRecommendation(answer string) *domain.Recommendation {
	return &domain.Recommendation{
		Title:      nil,
		AnswerText: answer,
		Ranked:     []domain.RankedTitle{},
		Evidence:   []domain.EvidenceItem{},
		Confidence: domain.ConfidenceLow,
	}
}
