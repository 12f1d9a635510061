package heredity

import "fmt"

// Normalize returns a copy of acc in which each individual's gene
// distribution and trait distribution sum to 1, keeping relative
// proportions. An individual with zero accumulated mass fails the whole call
// with ErrDivisionUndefined.
func Normalize(acc *Accumulator) (*Accumulator, error) {
	out := acc.Clone()
	if err := out.Normalize(); err != nil {
		return nil, err
	}
	return out, nil
}

// Normalize rescales acc in place. On error acc is left unchanged.
func (a *Accumulator) Normalize() error {
	for i, entry := range a.entries {
		if entry.Gene.Sum() == 0 || entry.Trait.Sum() == 0 {
			return fmt.Errorf("%w for individual %s", ErrDivisionUndefined, a.ids[i])
		}
	}

	for i := range a.entries {
		geneSum := a.entries[i].Gene.Sum()
		for g := range a.entries[i].Gene {
			a.entries[i].Gene[g] /= geneSum
		}
		traitSum := a.entries[i].Trait.Sum()
		for t := range a.entries[i].Trait {
			a.entries[i].Trait[t] /= traitSum
		}
	}
	return nil
}
