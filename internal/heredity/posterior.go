package heredity

import (
	"encoding/json"
	"fmt"
)

// GeneDistribution holds probability mass per gene count, indexed by
// GeneCount.
type GeneDistribution [3]float64

// P returns the mass assigned to g.
func (d GeneDistribution) P(g GeneCount) float64 {
	return d[g]
}

func (d GeneDistribution) Sum() float64 {
	return d[0] + d[1] + d[2]
}

// MarshalJSON encodes the distribution as {"0":p,"1":p,"2":p}.
func (d GeneDistribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{"0": d[0], "1": d[1], "2": d[2]})
}

func (d *GeneDistribution) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for k := range m {
		if k != "0" && k != "1" && k != "2" {
			return fmt.Errorf("unknown gene bucket %q", k)
		}
	}
	*d = GeneDistribution{m["0"], m["1"], m["2"]}
	return nil
}

// TraitDistribution holds probability mass per trait status: index 0 is
// false, index 1 is true.
type TraitDistribution [2]float64

// P returns the mass assigned to the given trait status.
func (d TraitDistribution) P(trait bool) float64 {
	return d[traitIndex(trait)]
}

func (d TraitDistribution) Sum() float64 {
	return d[0] + d[1]
}

// MarshalJSON encodes the distribution as {"false":p,"true":p}.
func (d TraitDistribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{"false": d[0], "true": d[1]})
}

func (d *TraitDistribution) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for k := range m {
		if k != "false" && k != "true" {
			return fmt.Errorf("unknown trait bucket %q", k)
		}
	}
	*d = TraitDistribution{m["false"], m["true"]}
	return nil
}

// Posterior is one individual's gene and trait distribution.
type Posterior struct {
	Gene  GeneDistribution  `json:"gene"`
	Trait TraitDistribution `json:"trait"`
}

// Accumulator collects unnormalized probability mass per individual while
// worlds are scored. Values only grow. It is not safe for concurrent writes;
// parallel enumeration gives every shard its own accumulator and merges them.
type Accumulator struct {
	ids     []string
	entries []Posterior
	worlds  int64
}

// NewAccumulator returns an empty accumulator for the individuals of pop.
func NewAccumulator(pop *Population) *Accumulator {
	return &Accumulator{
		ids:     pop.IDs(),
		entries: make([]Posterior, pop.Len()),
	}
}

// Add records the probability p of world w into every individual's gene
// bucket and trait bucket.
func (a *Accumulator) Add(w World, p float64) {
	a.worlds++
	for i := range a.entries {
		a.entries[i].Gene[w.Genes[i]] += p
		a.entries[i].Trait[traitIndex(w.Traits[i])] += p
	}
}

// Merge adds other's mass into a by element-wise summation. Both must have
// been built for the same population.
func (a *Accumulator) Merge(other *Accumulator) error {
	if len(a.ids) != len(other.ids) {
		return fmt.Errorf("cannot merge accumulators of %d and %d individuals", len(a.ids), len(other.ids))
	}
	for i := range a.ids {
		if a.ids[i] != other.ids[i] {
			return fmt.Errorf("cannot merge accumulators: individual %d is %s in one and %s in the other", i, a.ids[i], other.ids[i])
		}
	}
	for i := range a.entries {
		for g := range a.entries[i].Gene {
			a.entries[i].Gene[g] += other.entries[i].Gene[g]
		}
		for t := range a.entries[i].Trait {
			a.entries[i].Trait[t] += other.entries[i].Trait[t]
		}
	}
	a.worlds += other.worlds
	return nil
}

// Worlds returns the number of worlds scored into the accumulator.
func (a *Accumulator) Worlds() int64 {
	return a.worlds
}

// Len returns the number of individuals tracked.
func (a *Accumulator) Len() int {
	return len(a.entries)
}

// Posterior returns the distribution recorded for id.
func (a *Accumulator) Posterior(id string) (Posterior, bool) {
	for i, candidate := range a.ids {
		if candidate == id {
			return a.entries[i], true
		}
	}
	return Posterior{}, false
}

// Results returns every individual's distribution keyed by id.
func (a *Accumulator) Results() map[string]Posterior {
	out := make(map[string]Posterior, len(a.ids))
	for i, id := range a.ids {
		out[id] = a.entries[i]
	}
	return out
}

// Clone returns a deep copy.
func (a *Accumulator) Clone() *Accumulator {
	return &Accumulator{
		ids:     append([]string(nil), a.ids...),
		entries: append([]Posterior(nil), a.entries...),
		worlds:  a.worlds,
	}
}
