package usecase

import "github.com/DanaMt13/smart-librarian/internal/core/domain"

// ChooseTitle returns the rank-1 candidate title. It is the single source of
// truth for which book gets recommended: the generation stage receives this
// title as immutable and may never substitute another one.
func ChooseTitle(result *domain.RetrievalResult) (string, bool) {
	if result == nil || len(result.Candidates) == 0 {
		return "", false
	}
	return result.Candidates[0].Title, true
}
