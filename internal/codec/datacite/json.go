package datacite

import (
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/doireg/internal/codec/check"
	"github.com/mesh-intelligence/doireg/internal/codec/shape"
	"github.com/mesh-intelligence/doireg/internal/doi"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

// ParseJSON parses DataCite JSON, bare or inside a {"data":{"attributes"}}
// envelope. The declared schemaVersion is resolved like an XML namespace.
func ParseJSON(raw []byte) (*types.Metadata, []types.FieldError, error) {
	md, errs := shape.DecodeMetadata(raw)
	if md == nil {
		return nil, errs, nil
	}
	md.Identifier = doi.Normalize(md.Identifier)
	ns, err := ResolveNamespace(md.SchemaVersion, md.Identifier)
	if err != nil {
		return nil, nil, err
	}
	md.SchemaVersion = ns
	return md, append(errs, check.Fields(md)...), nil
}

// RenderJSON writes md in the DataCite JSON shape.
func RenderJSON(md *types.Metadata) ([]byte, error) {
	out := *md
	if out.SchemaVersion == "" {
		out.SchemaVersion = types.LastSchemaVersion
	}
	b, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding DataCite JSON: %w", err)
	}
	return append(b, '\n'), nil
}
