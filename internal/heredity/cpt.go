package heredity

import (
	"fmt"
	"math"
)

// CPT holds the conditional probability tables of the inheritance network.
// It is a plain value: an Engine copies it once at construction and never
// mutates it afterwards.
type CPT struct {
	// Prior is the unconditional gene distribution for founders, indexed by
	// GeneCount.
	Prior [3]float64 `json:"gene_prior"`
	// Trait is P(trait expressed | gene count), indexed by GeneCount.
	Trait [3]float64 `json:"trait_given_gene"`
	// Mutation is the probability a transmitted or withheld copy flips.
	Mutation float64 `json:"mutation_rate"`
}

// DefaultCPT returns the standard tables of the model.
func DefaultCPT() CPT {
	return CPT{
		Prior:    [3]float64{0.96, 0.03, 0.01},
		Trait:    [3]float64{0.01, 0.56, 0.65},
		Mutation: 0.01,
	}
}

// GenePrior returns P(gene = g) for an individual with no recorded parents.
func (c CPT) GenePrior(g GeneCount) float64 {
	return c.Prior[g]
}

// TraitGivenGene returns P(trait status = trait | gene = g).
func (c CPT) TraitGivenGene(g GeneCount, trait bool) float64 {
	if trait {
		return c.Trait[g]
	}
	return 1 - c.Trait[g]
}

// MutationRate returns the per-copy mutation probability.
func (c CPT) MutationRate() float64 {
	return c.Mutation
}

// Validate checks that every entry is a probability and that the gene prior
// is a distribution.
func (c CPT) Validate() error {
	sum := 0.0
	for _, g := range GeneCounts {
		if !isProbability(c.Prior[g]) {
			return fmt.Errorf("%w: gene prior for %s copies is %v", ErrInvalidCPT, g, c.Prior[g])
		}
		if !isProbability(c.Trait[g]) {
			return fmt.Errorf("%w: trait probability for %s copies is %v", ErrInvalidCPT, g, c.Trait[g])
		}
		sum += c.Prior[g]
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%w: gene prior sums to %v", ErrInvalidCPT, sum)
	}
	if !isProbability(c.Mutation) {
		return fmt.Errorf("%w: mutation rate is %v", ErrInvalidCPT, c.Mutation)
	}
	return nil
}

func isProbability(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}
