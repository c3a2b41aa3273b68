// Package shape normalizes the backward-compatible shape variants found in
// JSON metadata before it is decoded into the canonical model: bare objects
// where lists are expected, plain-string publishers and affiliations,
// numeric years, and string coordinates.
package shape

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

// ListFields are the top-level fields that may arrive as a single object and
// are coerced to a one-element list before validation.
var ListFields = []string{
	"creators",
	"contributors",
	"titles",
	"subjects",
	"rightsList",
	"relatedItems",
	"alternateIdentifiers",
	"relatedIdentifiers",
	"geoLocations",
	"descriptions",
	"dates",
	"fundingReferences",
	"sizes",
	"formats",
	"contentUrl",
}

// agentListFields are coerced inside every creator and contributor.
var agentListFields = []string{"nameIdentifiers", "affiliation"}

// objectOnly lists fields whose elements must be objects, with the label
// used in the error message.
var objectOnly = []struct{ key, label string }{
	{"titles", "Title"},
	{"subjects", "Subject"},
	{"descriptions", "Description"},
	{"rightsList", "Rights"},
}

// Wrap returns v as a list: lists pass through, nil stays nil, anything
// else becomes a one-element list.
func Wrap(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// Coerce rewrites doc in place into the canonical JSON shape. Elements that
// cannot be coerced are dropped and reported.
func Coerce(doc map[string]any) []types.FieldError {
	var errs []types.FieldError

	if ids, ok := doc["identifiers"]; ok {
		doc["alternateIdentifiers"] = legacyIdentifiers(Wrap(ids), doc["alternateIdentifiers"])
		delete(doc, "identifiers")
	}

	for _, key := range ListFields {
		v, ok := doc[key]
		if !ok {
			continue
		}
		if v == nil {
			delete(doc, key)
			continue
		}
		doc[key] = Wrap(v)
	}

	for _, oo := range objectOnly {
		key, label := oo.key, oo.label
		list, ok := doc[key].([]any)
		if !ok {
			continue
		}
		kept := list[:0]
		for i, el := range list {
			if s, isString := el.(string); isString {
				errs = append(errs, types.FieldError{
					Field:   fmt.Sprintf("%s[%d]", key, i),
					Code:    types.CodeShape,
					Message: fmt.Sprintf("%s '%s' should be an object instead of a string.", label, s),
				})
				continue
			}
			kept = append(kept, el)
		}
		if len(kept) == 0 {
			delete(doc, key)
			continue
		}
		doc[key] = kept
	}

	for _, key := range []string{"creators", "contributors"} {
		coerceAgents(doc, key)
	}

	switch p := doc["publisher"].(type) {
	case string:
		doc["publisher"] = map[string]any{"name": p}
	case nil:
		delete(doc, "publisher")
	}

	coerceYear(doc)

	if items, ok := doc["relatedItems"].([]any); ok {
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range []string{"creators", "contributors", "titles"} {
				if v, ok := m[key]; ok {
					m[key] = Wrap(v)
				}
			}
			coerceAgents(m, "creators")
			coerceAgents(m, "contributors")
			coerceYear(m)
			if p, ok := m["publisher"].(map[string]any); ok {
				m["publisher"], _ = p["name"].(string)
			}
		}
	}

	if geos, ok := doc["geoLocations"].([]any); ok {
		doc["geoLocations"] = coerceGeoLocations(geos)
	}

	for _, key := range []string{"sizes", "formats", "contentUrl"} {
		if list, ok := doc[key].([]any); ok {
			for i, el := range list {
				if _, isString := el.(string); !isString {
					list[i] = fmt.Sprint(el)
				}
			}
		}
	}

	return errs
}

func coerceAgents(doc map[string]any, key string) {
	list, ok := doc[key].([]any)
	if !ok {
		return
	}
	for i, el := range list {
		switch a := el.(type) {
		case string:
			list[i] = map[string]any{"name": a}
		case map[string]any:
			for _, field := range agentListFields {
				if v, ok := a[field]; ok {
					a[field] = Wrap(v)
				}
			}
			if affs, ok := a["affiliation"].([]any); ok {
				for j, aff := range affs {
					if s, isString := aff.(string); isString {
						affs[j] = map[string]any{"name": s}
					}
				}
			}
		}
	}
}

func coerceYear(m map[string]any) {
	switch y := m["publicationYear"].(type) {
	case float64:
		m["publicationYear"] = strconv.FormatFloat(y, 'f', -1, 64)
	case json.Number:
		m["publicationYear"] = y.String()
	}
}

// coerceGeoLocations makes coordinates numeric and wraps a singleton
// polygon. A list of polygons keeps the first in place and moves the rest
// to polygon-only entries.
func coerceGeoLocations(geos []any) []any {
	out := make([]any, 0, len(geos))
	for _, g := range geos {
		m, ok := g.(map[string]any)
		if !ok {
			out = append(out, g)
			continue
		}
		for _, key := range []string{"geoLocationPoint", "geoLocationBox"} {
			if inner, ok := m[key].(map[string]any); ok {
				numericValues(inner)
			}
		}
		var extra []any
		if raw, ok := m["geoLocationPolygon"]; ok {
			list := Wrap(raw)
			polygons := [][]any{list}
			if len(list) > 0 {
				if _, nested := list[0].([]any); nested {
					polygons = polygons[:0]
					for _, el := range list {
						polygons = append(polygons, Wrap(el))
					}
				}
			}
			for _, poly := range polygons {
				for _, pt := range poly {
					if pm, ok := pt.(map[string]any); ok {
						for _, key := range []string{"polygonPoint", "inPolygonPoint"} {
							if inner, ok := pm[key].(map[string]any); ok {
								numericValues(inner)
							}
						}
					}
				}
			}
			m["geoLocationPolygon"] = polygons[0]
			for _, poly := range polygons[1:] {
				extra = append(extra, map[string]any{"geoLocationPolygon": poly})
			}
		}
		out = append(out, m)
		out = append(out, extra...)
	}
	return out
}

func numericValues(m map[string]any) {
	for k, v := range m {
		if s, ok := v.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				m[k] = f
			}
		}
	}
}

func legacyIdentifiers(ids []any, existing any) []any {
	out := Wrap(existing)
	for _, el := range ids {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, map[string]any{
			"alternateIdentifier":     m["identifier"],
			"alternateIdentifierType": m["identifierType"],
		})
	}
	return out
}

// DecodeMetadata coerces a JSON document in the DataCite JSON shape and
// decodes it into the canonical model. Shape problems are returned as field
// errors; malformed JSON is a single malformed error.
func DecodeMetadata(raw []byte) (*types.Metadata, []types.FieldError) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, []types.FieldError{{Code: types.CodeMalformed, Message: "invalid JSON: " + err.Error()}}
	}
	if attrs, ok := doc["data"].(map[string]any); ok {
		if inner, ok := attrs["attributes"].(map[string]any); ok {
			doc = inner
		}
	}
	errs := Coerce(doc)
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, append(errs, types.FieldError{Code: types.CodeMalformed, Message: err.Error()})
	}
	var md types.Metadata
	if err := json.Unmarshal(b, &md); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			return nil, append(errs, types.FieldError{
				Field:   te.Field,
				Code:    types.CodeShape,
				Message: fmt.Sprintf("expected %s, got %s", te.Type, te.Value),
			})
		}
		return nil, append(errs, types.FieldError{Code: types.CodeMalformed, Message: err.Error()})
	}
	CleanMetadata(&md)
	return &md, errs
}

// Text trims surrounding whitespace, collapses internal runs of whitespace
// and returns the NFC form.
func Text(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// Block trims surrounding whitespace and returns the NFC form, keeping
// internal line breaks.
func Block(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// CleanMetadata applies Text to the free-text fields most often pasted in
// with stray whitespace.
func CleanMetadata(md *types.Metadata) {
	for i := range md.Titles {
		md.Titles[i].Title = Text(md.Titles[i].Title)
	}
	for i := range md.Creators {
		cleanCreator(&md.Creators[i])
	}
	for i := range md.Contributors {
		cleanCreator(&md.Contributors[i].Creator)
	}
	if md.Publisher != nil {
		md.Publisher.Name = Text(md.Publisher.Name)
	}
	md.PublicationYear = strings.TrimSpace(md.PublicationYear)
}

func cleanCreator(c *types.Creator) {
	c.Name = Text(c.Name)
	c.GivenName = Text(c.GivenName)
	c.FamilyName = Text(c.FamilyName)
}
