// Package codec dispatches a FormatKind to its parser or renderer. Each
// kind is switched on exactly once here; nothing downstream re-inspects the
// format.
package codec

import (
	"fmt"

	"github.com/mesh-intelligence/doireg/internal/codec/bibtex"
	"github.com/mesh-intelligence/doireg/internal/codec/check"
	"github.com/mesh-intelligence/doireg/internal/codec/citation"
	"github.com/mesh-intelligence/doireg/internal/codec/citeproc"
	"github.com/mesh-intelligence/doireg/internal/codec/crosscite"
	"github.com/mesh-intelligence/doireg/internal/codec/csv"
	"github.com/mesh-intelligence/doireg/internal/codec/datacite"
	"github.com/mesh-intelligence/doireg/internal/codec/jats"
	"github.com/mesh-intelligence/doireg/internal/codec/ris"
	"github.com/mesh-intelligence/doireg/internal/codec/schemaorg"
	"github.com/mesh-intelligence/doireg/internal/doi"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

type parseFunc func(raw []byte) (*types.Metadata, []types.FieldError, error)

// Parse converts raw bytes of the given kind to canonical metadata.
//
// A nil Metadata with field errors means the payload could not be read at
// all. A non-nil error is returned only for failures that are not field
// problems: ErrFormatUnknown for kinds without a parser, and
// UnsupportedSchemaError for retired schema generations.
//
// Formats without a schema namespace of their own are stamped with the
// latest schema version, have their identifier normalized and are held to
// the same field checks as DataCite input.
func Parse(kind types.FormatKind, raw []byte) (*types.Metadata, []types.FieldError, error) {
	var parse parseFunc
	native := false
	switch kind {
	case types.FormatDataCiteXML:
		parse, native = datacite.ParseXML, true
	case types.FormatDataCiteJSON:
		parse, native = datacite.ParseJSON, true
	case types.FormatCrosscite:
		parse = crosscite.Parse
	case types.FormatSchemaOrg, types.FormatCodemeta:
		parse = schemaorg.Parse
	case types.FormatCiteproc:
		parse = citeproc.Parse
	case types.FormatBibTeX:
		parse = bibtex.Parse
	case types.FormatRIS:
		parse = ris.Parse
	default:
		return nil, nil, fmt.Errorf("%w: no parser for %s", types.ErrFormatUnknown, kind)
	}

	md, errs, err := parse(raw)
	if err != nil || md == nil || native {
		return md, errs, err
	}
	md.Identifier = doi.Normalize(md.Identifier)
	ns, err := datacite.ResolveNamespace(md.SchemaVersion, md.Identifier)
	if err != nil {
		return nil, nil, err
	}
	md.SchemaVersion = ns
	return md, append(errs, check.Fields(md)...), nil
}

// Render writes md in the given output format. Renderers only read md.
func Render(kind types.FormatKind, md *types.Metadata, opts types.RenderOptions) ([]byte, error) {
	if md == nil {
		return nil, fmt.Errorf("render %s: no metadata", kind)
	}
	switch kind {
	case types.FormatDataCiteXML:
		return datacite.RenderXML(md)
	case types.FormatDataCiteJSON:
		return datacite.RenderJSON(md)
	case types.FormatCrosscite:
		return crosscite.Render(md)
	case types.FormatSchemaOrg:
		return schemaorg.Render(md, schemaorg.ProfileSchemaOrg)
	case types.FormatCodemeta:
		return schemaorg.Render(md, schemaorg.ProfileCodemeta)
	case types.FormatCiteproc:
		return citeproc.Render(md)
	case types.FormatBibTeX:
		return bibtex.Render(md)
	case types.FormatRIS:
		return ris.Render(md)
	case types.FormatJATS:
		return jats.Render(md)
	case types.FormatCitation:
		return citation.Render(md, opts)
	case types.FormatCSV:
		return csv.Render(md)
	}
	return nil, fmt.Errorf("%w: no renderer for %s", types.ErrFormatUnknown, kind)
}
