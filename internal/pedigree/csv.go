package pedigree

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"heredity/internal/heredity"
)

// csvColumns are the columns every pedigree CSV must carry, in any order.
var csvColumns = []string{"name", "mother", "father", "trait"}

// LoadCSV reads a pedigree in the name,mother,father,trait layout. Parents
// are blank for founders; trait is 1, 0 or blank for unobserved.
func LoadCSV(r io.Reader) (*heredity.Population, error) {
	if r == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, heredity.ErrEmptyPopulation
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range csvColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: CSV header missing column %q", heredity.ErrInvalidPedigree, name)
		}
	}

	var individuals []heredity.Individual
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		line, _ := cr.FieldPos(0)

		trait, err := parseTrait(record[cols["trait"]])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", heredity.ErrInvalidPedigree, line, err)
		}
		individuals = append(individuals, heredity.Individual{
			ID:     strings.TrimSpace(record[cols["name"]]),
			Mother: strings.TrimSpace(record[cols["mother"]]),
			Father: strings.TrimSpace(record[cols["father"]]),
			Trait:  trait,
		})
	}

	return heredity.NewPopulation(individuals)
}

// WriteCSV writes the population in the layout LoadCSV reads.
func WriteCSV(w io.Writer, pop *heredity.Population) error {
	if w == nil {
		return fmt.Errorf("writer cannot be nil")
	}
	if pop == nil {
		return fmt.Errorf("population cannot be nil")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, ind := range pop.Individuals() {
		if err := cw.Write([]string{ind.ID, ind.Mother, ind.Father, formatTrait(ind.Trait)}); err != nil {
			return fmt.Errorf("failed to write CSV record for %s: %w", ind.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseTrait(field string) (heredity.Observation, error) {
	switch strings.TrimSpace(field) {
	case "":
		return heredity.Unobserved, nil
	case "1":
		return heredity.ObservedPresent, nil
	case "0":
		return heredity.ObservedAbsent, nil
	default:
		return heredity.Unobserved, fmt.Errorf("trait must be 1, 0 or blank, got %q", field)
	}
}

func formatTrait(o heredity.Observation) string {
	trait, ok := o.Known()
	switch {
	case !ok:
		return ""
	case trait:
		return "1"
	default:
		return "0"
	}
}
