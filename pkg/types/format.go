package types

import (
	"fmt"
	"strings"
)

// FormatKind is the closed set of metadata representations the registry
// understands. The zero value is FormatUnknown.
type FormatKind int

// Supported formats.
const (
	FormatUnknown FormatKind = iota
	FormatDataCiteXML
	FormatDataCiteJSON
	FormatCrosscite
	FormatSchemaOrg
	FormatCodemeta
	FormatCiteproc
	FormatBibTeX
	FormatRIS
	FormatJATS
	FormatCitation
	FormatCSV
)

type formatInfo struct {
	name        string
	contentType string
	parsable    bool
}

var formatTable = map[FormatKind]formatInfo{
	FormatDataCiteXML:  {"datacite-xml", "application/vnd.datacite.datacite+xml", true},
	FormatDataCiteJSON: {"datacite-json", "application/vnd.datacite.datacite+json", true},
	FormatCrosscite:    {"crosscite", "application/vnd.crosscite.crosscite+json", true},
	FormatSchemaOrg:    {"schema-org", "application/vnd.schemaorg.ld+json", true},
	FormatCodemeta:     {"codemeta", "application/vnd.codemeta.ld+json", true},
	FormatCiteproc:     {"citeproc", "application/vnd.citationstyles.csl+json", true},
	FormatBibTeX:       {"bibtex", "application/x-bibtex", true},
	FormatRIS:          {"ris", "application/x-research-info-systems", true},
	FormatJATS:         {"jats", "application/vnd.jats+xml", false},
	FormatCitation:     {"citation", "text/x-bibliography", false},
	FormatCSV:          {"csv", "text/csv", false},
}

// AllFormats lists every known format in declaration order.
func AllFormats() []FormatKind {
	return []FormatKind{
		FormatDataCiteXML, FormatDataCiteJSON, FormatCrosscite, FormatSchemaOrg,
		FormatCodemeta, FormatCiteproc, FormatBibTeX, FormatRIS,
		FormatJATS, FormatCitation, FormatCSV,
	}
}

// String returns the short name of the format.
func (f FormatKind) String() string {
	if info, ok := formatTable[f]; ok {
		return info.name
	}
	return "unknown"
}

// ContentType returns the canonical media type for the format.
func (f FormatKind) ContentType() string {
	return formatTable[f].contentType
}

// Parsable reports whether the format can be used as input.
func (f FormatKind) Parsable() bool {
	return formatTable[f].parsable
}

// MarshalText encodes the format as its short name.
func (f FormatKind) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a short name produced by MarshalText.
func (f *FormatKind) UnmarshalText(b []byte) error {
	kind, err := ParseFormatKind(string(b))
	if err != nil {
		return err
	}
	*f = kind
	return nil
}

// ParseFormatKind resolves a short name ("bibtex") or a content type
// ("application/x-bibtex") to a FormatKind. It returns ErrFormatUnknown for
// anything else.
func ParseFormatKind(s string) (FormatKind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(key, ';'); i >= 0 {
		key = strings.TrimSpace(key[:i])
	}
	for kind, info := range formatTable {
		if key == info.name || key == info.contentType {
			return kind, nil
		}
	}
	if kind, ok := contentTypeAliases[key]; ok {
		return kind, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrFormatUnknown, s)
}

// contentTypeAliases are additional media types accepted on input.
var contentTypeAliases = map[string]FormatKind{
	"application/xml":           FormatDataCiteXML,
	"text/xml":                  FormatDataCiteXML,
	"application/ld+json":       FormatSchemaOrg,
	"application/citeproc+json": FormatCiteproc,
	"application/x-ris":         FormatRIS,
	"text/x-bibtex":             FormatBibTeX,
}

// RenderOptions tunes renderers. Style and Locale apply to citation text.
type RenderOptions struct {
	Style  string
	Locale string
}
