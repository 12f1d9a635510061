package pedigree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"heredity/internal/heredity"
)

// LoadFile opens path and decodes it as JSON when the extension is .json,
// as CSV otherwise.
func LoadFile(path string) (*heredity.Population, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pedigree file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadJSON(f)
	}
	return LoadCSV(f)
}
