package heredity

// JointProbability returns the probability of the exact assignment w under
// the pedigree structure of pop: the product over individuals of
// P(trait | gene) and either the gene prior (founders) or the inheritance
// probability given both parents' genes in w.
//
// It does not check w against the evidence; enumeration only produces
// consistent worlds.
func (e *Engine) JointProbability(pop *Population, w World) float64 {
	p := 1.0
	for i := range pop.individuals {
		gene := w.Genes[i]
		p *= e.cpt.TraitGivenGene(gene, w.Traits[i])

		mother, father := pop.mother[i], pop.father[i]
		if mother < 0 {
			p *= e.cpt.GenePrior(gene)
		} else {
			p *= e.ChildGeneProbability(gene, w.Genes[mother], w.Genes[father])
		}

		if p == 0 {
			return 0
		}
	}
	return p
}
