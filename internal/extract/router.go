package extract

import (
	"context"
	"fmt"
	"log"

	"docuflow/internal/domain"
	"docuflow/internal/port"
)

// Tier pairs an extractor with its escalation threshold. Fields whose
// confidence lands below the threshold are retried on the next tier.
type Tier struct {
	Extractor     port.FieldExtractor
	EscalateBelow float64
}

// Router runs extraction tiers in order, escalating only the fields the
// cheaper tier was unsure about. The best confidence seen per field wins, so
// an escalation can never make a result worse.
type Router struct {
	tiers []Tier
}

// NewRouter creates a tiered extraction router.
func NewRouter(tiers ...Tier) *Router {
	return &Router{tiers: tiers}
}

func (r *Router) Name() string { return "router" }

func (r *Router) Extract(ctx context.Context, input port.ExtractInput) (map[string]port.FieldResult, error) {
	if len(r.tiers) == 0 {
		return nil, fmt.Errorf("no extraction tiers configured")
	}

	results := make(map[string]port.FieldResult, len(input.Fields))
	pending := input.Fields
	failures := 0

	for i, tier := range r.tiers {
		if len(pending) == 0 {
			break
		}

		tierResults, err := tier.Extractor.Extract(ctx, port.ExtractInput{
			Text:   input.Text,
			Fields: pending,
		})
		if err != nil {
			// A failed tier keeps whatever the cheaper tiers produced.
			log.Printf("extract.Router: tier %s failed: %v", tier.Extractor.Name(), err)
			failures++
			continue
		}

		var escalate []domain.FieldDefinition
		for _, field := range pending {
			result := tierResults[field.Name]
			if best, ok := results[field.Name]; !ok || result.Confidence > best.Confidence {
				results[field.Name] = result
			}
			if i < len(r.tiers)-1 && result.Confidence < tier.EscalateBelow {
				escalate = append(escalate, field)
			}
		}
		pending = escalate
	}

	if failures == len(r.tiers) {
		return nil, fmt.Errorf("all %d extraction tiers failed", failures)
	}

	// Fields never answered by any tier come back as not found.
	for _, field := range input.Fields {
		if _, ok := results[field.Name]; !ok {
			results[field.Name] = port.FieldResult{}
		}
	}
	return results, nil
}
