package heredity

import "fmt"

// GeneCount is the number of copies of the gene variant an individual carries.
type GeneCount int

const (
	GeneZero GeneCount = iota
	GeneOne
	GeneTwo
)

// GeneCounts lists every valid gene count in ascending order.
var GeneCounts = [...]GeneCount{GeneZero, GeneOne, GeneTwo}

const numGeneCounts = len(GeneCounts)

// Valid reports whether g is one of GeneZero, GeneOne or GeneTwo.
func (g GeneCount) Valid() bool {
	return g >= GeneZero && g <= GeneTwo
}

func (g GeneCount) String() string {
	if !g.Valid() {
		return fmt.Sprintf("GeneCount(%d)", int(g))
	}
	return fmt.Sprintf("%d", int(g))
}

// traitIndex maps a trait status to its bucket: false is 0, true is 1.
func traitIndex(trait bool) int {
	if trait {
		return 1
	}
	return 0
}

// World is one complete hypothetical assignment of gene count and trait
// status to every individual of a Population, indexed like the population.
// Enumeration reuses the backing slices from one world to the next.
type World struct {
	Genes  []GeneCount
	Traits []bool
}
