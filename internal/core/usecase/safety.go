package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/DanaMt13/smart-librarian/internal/core/domain"
	"github.com/DanaMt13/smart-librarian/internal/core/ports"
)

// defaultBlocklist is the static fallback for when the moderation service is
// unavailable or administratively disabled.
var defaultBlocklist = []string{
	"idiot", "prost", "ură", "urăsc", "urât", "dispreț", "fuck", "shit",
}

type SafetyGate struct {
	moderation ports.ModerationService
	enabled    bool
	blocklist  []string
}

func NewSafetyGate(moderation ports.ModerationService, enabled bool, blocklist []string) *SafetyGate {
	if len(blocklist) == 0 {
		blocklist = defaultBlocklist
	}
	lowered := make([]string, 0, len(blocklist))
	for _, term := range blocklist {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			lowered = append(lowered, term)
		}
	}
	return &SafetyGate{
		moderation: moderation,
		enabled:    enabled,
		blocklist:  lowered,
	}
}

// Check classifies the query before any retrieval or generation cost is
// incurred. A moderation outage degrades to the blocklist instead of failing
// the request.
func (g *SafetyGate) Check(ctx context.Context, query string) domain.SafetyVerdict {
	if g.enabled && g.moderation != nil {
		result, err := g.moderation.Moderate(ctx, query)
		switch {
		case err != nil:
			slog.Warn("moderation_unavailable", "error", err)
		case result.Flagged:
			return domain.SafetyVerdict{Blocked: true, Reason: explainCategories(result.Categories)}
		}
	}

	low := strings.ToLower(query)
	for _, term := range g.blocklist {
		if strings.Contains(low, term) {
			return domain.SafetyVerdict{Blocked: true, Reason: "offensive language"}
		}
	}
	return domain.SafetyVerdict{}
}

func explainCategories(categories map[string]bool) string {
	labels := make([]string, 0, len(categories))
	for name, hit := range categories {
		if hit {
			labels = append(labels, strings.ReplaceAll(name, "_", " "))
		}
	}
	if len(labels) == 0 {
		return "flagged by moderation"
	}
	sort.Strings(labels)
	return strings.Join(labels, ", ")
}
