// Package sniff decides which parser a payload needs. A recognized content
// type wins; otherwise the payload's structure decides. Nothing is guessed:
// input that matches no known shape is ErrFormatUnknown.
package sniff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/antchfx/xmlquery"

	"github.com/mesh-intelligence/doireg/internal/codec/datacite"
	"github.com/mesh-intelligence/doireg/internal/codec/schemaorg"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

var (
	risMarker    = regexp.MustCompile(`(?m)^TY  - `)
	bibtexMarker = regexp.MustCompile(`(?m)^\s*@[A-Za-z]+\s*\{`)
)

// crossciteKeys only occur in legacy citation JSON.
var crossciteKeys = []string{
	"resource_type_general", "resource_type", "publication_year",
	"date_published", "container_title", "schema_version",
}

// cslKeys are CSL item fields not used by the other JSON shapes.
var cslKeys = []string{
	"issued", "container-title", "DOI", "URL", "ISSN", "page", "categories",
}

// Format returns the format of raw. contentType may be empty.
func Format(contentType string, raw []byte) (types.FormatKind, error) {
	if contentType != "" {
		if kind, err := types.ParseFormatKind(contentType); err == nil && kind.Parsable() {
			return kind, nil
		}
	}

	body := bytes.TrimSpace(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")))
	if len(body) == 0 {
		return types.FormatUnknown, fmt.Errorf("%w: empty payload", types.ErrFormatUnknown)
	}
	var kind types.FormatKind
	switch body[0] {
	case '<':
		kind = sniffXML(body)
	case '{', '[':
		kind = sniffJSON(body)
	default:
		switch {
		case risMarker.Match(body):
			kind = types.FormatRIS
		case bibtexMarker.Match(body):
			kind = types.FormatBibTeX
		}
	}
	if kind == types.FormatUnknown {
		return kind, fmt.Errorf("%w: unrecognized payload", types.ErrFormatUnknown)
	}
	return kind, nil
}

// sniffXML accepts any kernel namespace, retired ones included, so the
// parser can report the retirement.
func sniffXML(body []byte) types.FormatKind {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return types.FormatUnknown
	}
	root := datacite.RootElement(doc)
	if root == nil || !datacite.IsDataCiteNamespace(datacite.RootNamespace(root)) {
		return types.FormatUnknown
	}
	return types.FormatDataCiteXML
}

func sniffJSON(body []byte) types.FormatKind {
	var doc map[string]any
	if body[0] == '[' {
		var list []map[string]any
		if err := json.Unmarshal(body, &list); err != nil || len(list) == 0 {
			return types.FormatUnknown
		}
		doc = list[0]
	} else if err := json.Unmarshal(body, &doc); err != nil {
		return types.FormatUnknown
	}
	if data, ok := doc["data"].(map[string]any); ok {
		if attrs, ok := data["attributes"].(map[string]any); ok {
			doc = attrs
		}
	}

	if ctx, ok := doc["@context"]; ok {
		if schemaorg.IsCodemeta(ctx) {
			return types.FormatCodemeta
		}
		return types.FormatSchemaOrg
	}
	if _, ok := doc["@type"]; ok {
		return types.FormatSchemaOrg
	}
	if t, ok := doc["types"].(map[string]any); ok {
		if _, ok := t["resourceTypeGeneral"]; ok {
			return types.FormatDataCiteJSON
		}
	}
	if has(doc, "creators", "publicationYear", "schemaVersion") {
		return types.FormatDataCiteJSON
	}
	if has(doc, crossciteKeys...) {
		return types.FormatCrosscite
	}
	if _, ok := doc["type"]; ok && has(doc, cslKeys...) {
		return types.FormatCiteproc
	}
	if _, ok := doc["type"]; ok && has(doc, "id", "title", "author") && cslAuthors(doc["author"]) {
		return types.FormatCiteproc
	}
	return types.FormatUnknown
}

func has(doc map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := doc[k]; ok {
			return true
		}
	}
	return false
}

// cslAuthors reports whether v looks like a CSL name list.
func cslAuthors(v any) bool {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return v == nil
	}
	name, ok := list[0].(map[string]any)
	return ok && has(name, "family", "given", "literal")
}
