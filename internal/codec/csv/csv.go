// Package csv renders a record as a CSV header plus one row.
package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/doireg/internal/doi"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

// Header is the column order of every rendered row.
var Header = []string{
	"doi", "url", "resource_type_general", "resource_type",
	"title", "author", "publisher", "publication_year",
}

// Row returns the cells of md in Header order.
func Row(md *types.Metadata) []string {
	var authors []string
	for _, c := range md.Creators {
		authors = append(authors, c.DisplayName())
	}
	return []string{
		strings.ToLower(doi.Normalize(md.Identifier)),
		doi.URL(md.Identifier),
		md.Types.ResourceTypeGeneral,
		md.Types.ResourceType,
		md.MainTitle(),
		strings.Join(authors, "; "),
		md.PublisherName(),
		md.PublicationYear,
	}
}

// Render writes the header and one row for md.
func Render(md *types.Metadata) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll([][]string{Header, Row(md)}); err != nil {
		return nil, fmt.Errorf("writing csv: %w", err)
	}
	return buf.Bytes(), nil
}
