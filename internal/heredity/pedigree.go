package heredity

import (
	"encoding/json"
	"fmt"
	"sort"

	"heredity/internal/dag"
)

// Observation is the evidence recorded for an individual's trait.
type Observation int8

const (
	Unobserved Observation = iota
	ObservedAbsent
	ObservedPresent
)

// Observe converts a known trait status into an Observation.
func Observe(trait bool) Observation {
	if trait {
		return ObservedPresent
	}
	return ObservedAbsent
}

// Known reports whether the trait was observed, and if so its value.
func (o Observation) Known() (trait bool, ok bool) {
	switch o {
	case ObservedPresent:
		return true, true
	case ObservedAbsent:
		return false, true
	default:
		return false, false
	}
}

func (o Observation) String() string {
	switch o {
	case Unobserved:
		return "unknown"
	case ObservedAbsent:
		return "false"
	case ObservedPresent:
		return "true"
	default:
		return fmt.Sprintf("Observation(%d)", int8(o))
	}
}

// MarshalJSON encodes the observation as null, false or true.
func (o Observation) MarshalJSON() ([]byte, error) {
	trait, ok := o.Known()
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal(trait)
}

func (o *Observation) UnmarshalJSON(data []byte) error {
	var trait *bool
	if err := json.Unmarshal(data, &trait); err != nil {
		return fmt.Errorf("trait must be true, false or null: %w", err)
	}
	if trait == nil {
		*o = Unobserved
		return nil
	}
	*o = Observe(*trait)
	return nil
}

// Individual is one member of a pedigree. Mother and Father are either both
// empty (a founder) or both name other individuals of the same pedigree.
type Individual struct {
	ID     string      `json:"id"`
	Mother string      `json:"mother,omitempty"`
	Father string      `json:"father,omitempty"`
	Trait  Observation `json:"trait"`
}

// IsFounder reports whether the individual has no recorded parents.
func (i Individual) IsFounder() bool {
	return i.Mother == "" && i.Father == ""
}

// Population is a validated, immutable pedigree with parents resolved to
// indexes. Build it with NewPopulation.
type Population struct {
	individuals []Individual
	index       map[string]int
	mother      []int
	father      []int
	generations [][]string
}

// NewPopulation validates the pedigree and resolves parent references. The
// input order is kept as the population order. Every structural issue is
// reported at once in a *PedigreeError.
func NewPopulation(individuals []Individual) (*Population, error) {
	if len(individuals) == 0 {
		return nil, ErrEmptyPopulation
	}

	var issues []string
	index := make(map[string]int, len(individuals))
	for i, ind := range individuals {
		if ind.ID == "" {
			issues = append(issues, fmt.Sprintf("individual at position %d has an empty id", i))
			continue
		}
		if _, dup := index[ind.ID]; dup {
			issues = append(issues, fmt.Sprintf("duplicate individual id: %s", ind.ID))
			continue
		}
		index[ind.ID] = i
	}

	pop := &Population{
		individuals: append([]Individual(nil), individuals...),
		index:       index,
		mother:      make([]int, len(individuals)),
		father:      make([]int, len(individuals)),
	}

	ids := make([]string, 0, len(individuals))
	var edges [][2]string
	for i, ind := range individuals {
		pop.mother[i], pop.father[i] = -1, -1
		if ind.ID != "" {
			ids = append(ids, ind.ID)
		}
		if ind.Trait < Unobserved || ind.Trait > ObservedPresent {
			issues = append(issues, fmt.Sprintf("individual %s has an invalid trait observation %d", ind.ID, ind.Trait))
		}
		if ind.IsFounder() {
			continue
		}
		if ind.Mother == "" || ind.Father == "" {
			issues = append(issues, fmt.Sprintf("individual %s must have both parents or neither", ind.ID))
			continue
		}
		if ind.Mother == ind.ID || ind.Father == ind.ID {
			issues = append(issues, fmt.Sprintf("individual %s is listed as its own parent", ind.ID))
			continue
		}
		if ind.Mother == ind.Father {
			issues = append(issues, fmt.Sprintf("individual %s has the same mother and father: %s", ind.ID, ind.Mother))
			continue
		}
		m, okM := index[ind.Mother]
		f, okF := index[ind.Father]
		if !okM {
			issues = append(issues, fmt.Sprintf("mother '%s' of %s does not exist", ind.Mother, ind.ID))
		}
		if !okF {
			issues = append(issues, fmt.Sprintf("father '%s' of %s does not exist", ind.Father, ind.ID))
		}
		if okM && okF {
			pop.mother[i], pop.father[i] = m, f
			edges = append(edges, [2]string{ind.Mother, ind.ID}, [2]string{ind.Father, ind.ID})
		}
	}

	if len(issues) > 0 {
		return nil, &PedigreeError{Issues: issues}
	}

	levels, err := dag.NewTopologicalSorter(ids, edges).GetLevels()
	if err != nil {
		return nil, &PedigreeError{Issues: []string{"ancestry cycle detected: an individual is their own ancestor"}}
	}
	for _, level := range levels {
		sort.Strings(level)
	}
	pop.generations = levels

	return pop, nil
}

// Len returns the number of individuals.
func (p *Population) Len() int {
	return len(p.individuals)
}

// Individual returns the individual at position i.
func (p *Population) Individual(i int) Individual {
	return p.individuals[i]
}

// Individuals returns a copy of the individuals in population order.
func (p *Population) Individuals() []Individual {
	return append([]Individual(nil), p.individuals...)
}

// IDs returns the individual ids in population order.
func (p *Population) IDs() []string {
	ids := make([]string, len(p.individuals))
	for i, ind := range p.individuals {
		ids[i] = ind.ID
	}
	return ids
}

// Index returns the position of the individual with the given id.
func (p *Population) Index(id string) (int, bool) {
	i, ok := p.index[id]
	return i, ok
}

// Parents returns the positions of the mother and father of individual i, or
// -1, -1 for a founder.
func (p *Population) Parents(i int) (mother, father int) {
	return p.mother[i], p.father[i]
}

// Founders returns the number of individuals with no recorded parents.
func (p *Population) Founders() int {
	n := 0
	for i := range p.individuals {
		if p.mother[i] < 0 {
			n++
		}
	}
	return n
}

// Observed returns the number of individuals whose trait is known.
func (p *Population) Observed() int {
	n := 0
	for _, ind := range p.individuals {
		if ind.Trait != Unobserved {
			n++
		}
	}
	return n
}

// Generations groups individual ids by depth: founders first, then every
// individual whose parents all appear in earlier groups. Ids within a group
// are sorted.
func (p *Population) Generations() [][]string {
	out := make([][]string, len(p.generations))
	for i, level := range p.generations {
		out[i] = append([]string(nil), level...)
	}
	return out
}
