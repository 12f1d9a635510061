package heredity

import (
	"fmt"
	"iter"
)

// MaxPopulation bounds the pedigree size accepted for exact enumeration:
// the gene space alone is 3^n.
const MaxPopulation = 20

// GeneAssignmentCount returns 3^n, the number of gene assignments of n
// individuals.
func GeneAssignmentCount(n int) int64 {
	total := int64(1)
	for range n {
		total *= int64(numGeneCounts)
	}
	return total
}

// WorldCount returns the number of worlds consistent with the evidence of
// pop: 3^n gene assignments times 2^(n-k) trait assignments, where k
// individuals have an observed trait.
func WorldCount(pop *Population) int64 {
	return GeneAssignmentCount(pop.Len()) << (pop.Len() - pop.Observed())
}

// GeneAssignments yields the gene assignments of n individuals with ordinal
// in [lo, hi). The ordinal reads the assignment as a base-3 number whose
// least significant digit is individual 0. The yielded slice is reused
// between steps.
func GeneAssignments(n int, lo, hi int64) iter.Seq[[]GeneCount] {
	return func(yield func([]GeneCount) bool) {
		genes := make([]GeneCount, n)
		rest := lo
		for i := range genes {
			genes[i] = GeneCount(rest % int64(numGeneCounts))
			rest /= int64(numGeneCounts)
		}

		for ord := lo; ord < hi; ord++ {
			if !yield(genes) {
				return
			}
			for i := range genes {
				if genes[i] < GeneTwo {
					genes[i]++
					break
				}
				genes[i] = GeneZero
			}
		}
	}
}

// TraitAssignments yields every trait assignment of pop that agrees with the
// observed traits. Observed individuals stay fixed; only the unobserved ones
// vary, so inconsistent assignments are never produced. The yielded slice is
// reused between steps.
func TraitAssignments(pop *Population) iter.Seq[[]bool] {
	return func(yield func([]bool) bool) {
		traits := make([]bool, pop.Len())
		var free []int
		for i, ind := range pop.individuals {
			if trait, ok := ind.Trait.Known(); ok {
				traits[i] = trait
			} else {
				free = append(free, i)
			}
		}

		for mask := uint64(0); mask < uint64(1)<<len(free); mask++ {
			for bit, i := range free {
				traits[i] = mask&(uint64(1)<<bit) != 0
			}
			if !yield(traits) {
				return
			}
		}
	}
}

// Infer enumerates every world consistent with the evidence of pop and
// returns the unnormalized per-individual mass.
func (e *Engine) Infer(pop *Population) (*Accumulator, error) {
	if pop == nil || pop.Len() == 0 {
		return nil, ErrEmptyPopulation
	}
	return e.InferRange(pop, 0, GeneAssignmentCount(pop.Len()))
}

// InferRange is Infer restricted to the gene assignments with ordinal in
// [lo, hi). Accumulators of disjoint ranges covering [0, 3^n) merge into
// the result of Infer.
func (e *Engine) InferRange(pop *Population, lo, hi int64) (*Accumulator, error) {
	if pop == nil || pop.Len() == 0 {
		return nil, ErrEmptyPopulation
	}
	n := pop.Len()
	if n > MaxPopulation {
		return nil, fmt.Errorf("%w: %d individuals, limit is %d", ErrPopulationTooLarge, n, MaxPopulation)
	}
	if total := GeneAssignmentCount(n); lo < 0 || hi > total || lo > hi {
		return nil, fmt.Errorf("gene assignment range [%d, %d) outside [0, %d)", lo, hi, total)
	}

	acc := NewAccumulator(pop)
	for genes := range GeneAssignments(n, lo, hi) {
		for traits := range TraitAssignments(pop) {
			w := World{Genes: genes, Traits: traits}
			acc.Add(w, e.JointProbability(pop, w))
		}
	}
	return acc, nil
}
