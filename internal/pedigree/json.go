package pedigree

import (
	"encoding/json"
	"fmt"
	"io"

	"heredity/internal/heredity"
)

// Document is the JSON form of a pedigree.
type Document struct {
	Individuals []heredity.Individual `json:"individuals"`
}

// LoadJSON decodes a JSON pedigree from the reader and validates it.
//
// Example:
//
//	f, _ := os.Open("family.json")
//	pop, err := pedigree.LoadJSON(f)
func LoadJSON(r io.Reader) (*heredity.Population, error) {
	if r == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode pedigree JSON: %w", err)
	}

	return heredity.NewPopulation(doc.Individuals)
}

// WriteJSON encodes the population to the writer in the format LoadJSON reads.
func WriteJSON(w io.Writer, pop *heredity.Population) error {
	if w == nil {
		return fmt.Errorf("writer cannot be nil")
	}
	if pop == nil {
		return fmt.Errorf("population cannot be nil")
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(Document{Individuals: pop.Individuals()}); err != nil {
		return fmt.Errorf("failed to encode pedigree to JSON: %w", err)
	}
	return nil
}
