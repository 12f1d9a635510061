package heredity

// Engine runs exact inference under a fixed set of conditional probability
// tables. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	cpt CPT
}

// NewEngine validates the tables and returns an engine bound to them.
func NewEngine(cpt CPT) (*Engine, error) {
	if err := cpt.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cpt: cpt}, nil
}

// NewDefaultEngine returns an engine over DefaultCPT.
func NewDefaultEngine() *Engine {
	return &Engine{cpt: DefaultCPT()}
}

// CPT returns a copy of the engine's tables.
func (e *Engine) CPT() CPT {
	return e.cpt
}

// TransmissionProbability returns the probability that a parent carrying
// parent copies passes (transmitted) or withholds (!transmitted) a copy of
// the gene to a child, mutation included. For every parent gene count the
// two outcomes sum to 1.
func (e *Engine) TransmissionProbability(parent GeneCount, transmitted bool) float64 {
	m := e.cpt.Mutation

	var pass float64
	switch parent {
	case GeneZero:
		pass = m
	case GeneOne:
		pass = 0.5 + 0.5*m
	case GeneTwo:
		pass = 1 - m
	}

	if transmitted {
		return pass
	}
	return 1 - pass
}

// ChildGeneProbability returns P(child has child copies | mother, father).
// One copy can come from either parent, so both exclusive ways are summed.
func (e *Engine) ChildGeneProbability(child, mother, father GeneCount) float64 {
	switch child {
	case GeneZero:
		return e.TransmissionProbability(father, false) * e.TransmissionProbability(mother, false)
	case GeneOne:
		return e.TransmissionProbability(father, true)*e.TransmissionProbability(mother, false) +
			e.TransmissionProbability(father, false)*e.TransmissionProbability(mother, true)
	case GeneTwo:
		return e.TransmissionProbability(father, true) * e.TransmissionProbability(mother, true)
	default:
		return 0
	}
}
