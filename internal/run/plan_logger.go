package run

import (
	"context"

	"heredity/internal/heredity"
	"heredity/internal/logger"
)

// LogInferencePlan records the shape of the enumeration before it starts:
// who is in the pedigree, which evidence is fixed and how many worlds will be scored.
func LogInferencePlan(ctx context.Context, runID string, pop *heredity.Population, shards int) {
	if pop == nil {
		logger.LogEvent(ctx, runID, "executor", "plan_generation_failed", map[string]string{
			"error": "population is nil",
		})
		return
	}

	payload := map[string]interface{}{
		"individuals": summarizeIndividuals(pop),
		"generations": pop.Generations(),
		"metrics": map[string]interface{}{
			"individual_count": pop.Len(),
			"founder_count":    pop.Founders(),
			"observed_count":   pop.Observed(),
			"gene_assignments": heredity.GeneAssignmentCount(pop.Len()),
			"worlds":           heredity.WorldCount(pop),
			"shards":           shards,
		},
	}

	logger.LogEvent(ctx, runID, "executor", "plan_generated", payload)
}

// LogPosteriors records the normalized result of a run.
func LogPosteriors(ctx context.Context, runID string, posteriors map[string]heredity.Posterior, worlds int64) {
	logger.LogEvent(ctx, runID, "executor", "posteriors_computed", map[string]interface{}{
		"worlds":     worlds,
		"posteriors": posteriors,
	})
}

func summarizeIndividuals(pop *heredity.Population) []map[string]interface{} {
	individuals := pop.Individuals()
	summary := make([]map[string]interface{}, len(individuals))
	for i, ind := range individuals {
		entry := map[string]interface{}{
			"id":    ind.ID,
			"trait": ind.Trait.String(),
		}
		if !ind.IsFounder() {
			entry["mother"] = ind.Mother
			entry["father"] = ind.Father
		}
		summary[i] = entry
	}
	return summary
}
