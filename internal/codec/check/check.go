// Package check holds the field-level rules every canonical metadata value
// is held to, whatever format it arrived in: identifier and URL formats,
// controlled vocabularies, length limits, coordinate ranges, and the
// completeness rules required before a record can become findable.
package check

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/mesh-intelligence/doireg/internal/doi"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

// MaxRightsLength bounds the free-text rights statement.
const MaxRightsLength = 2000

var (
	urlPattern      = regexp.MustCompile(`^(ftp|http|https)://\S+$`)
	yearPattern     = regexp.MustCompile(`^\d{4}$`)
	languagePattern = regexp.MustCompile(`^[a-zA-Z]{1,8}(-[a-zA-Z0-9]{1,8})*$`)
)

// URL reports whether s is a resolvable target URL.
func URL(s string) bool {
	return urlPattern.MatchString(s)
}

// Language reports whether s is a well-formed language tag.
func Language(s string) bool {
	return languagePattern.MatchString(s)
}

// Fields returns every field-level problem in md. Missing required fields
// are not reported here; see Complete.
func Fields(md *types.Metadata) []types.FieldError {
	if md == nil {
		return nil
	}
	var errs errList

	if md.Identifier != "" && !doi.Valid(md.Identifier) {
		errs.add("doi", types.CodeFormat, fmt.Sprintf("DOI %s is not valid.", md.Identifier))
	}
	if md.PublicationYear != "" && !yearPattern.MatchString(md.PublicationYear) {
		errs.add("publicationYear", types.CodeFormat, fmt.Sprintf("Publication year %s is not a four-digit year.", md.PublicationYear))
	}
	if md.Language != "" && !Language(md.Language) {
		errs.add("language", types.CodeFormat, fmt.Sprintf("Language %s is not a valid language tag.", md.Language))
	}

	for i, c := range md.Creators {
		checkAgent(&errs, fmt.Sprintf("creators[%d]", i), c)
	}
	for i, c := range md.Contributors {
		checkAgent(&errs, fmt.Sprintf("contributors[%d]", i), c.Creator)
	}
	for i, t := range md.Titles {
		if t.Title == "" {
			errs.add(fmt.Sprintf("titles[%d].title", i), types.CodeRequired, "Title must not be empty.")
		}
	}
	for i, r := range md.RightsList {
		path := fmt.Sprintf("rightsList[%d]", i)
		if utf8.RuneCountInString(r.Rights) > MaxRightsLength {
			errs.add(path+".rights", types.CodeTooLong, fmt.Sprintf("Rights should be shorter than %d characters.", MaxRightsLength))
		}
		if r.RightsURI != "" && !URL(r.RightsURI) {
			errs.add(path+".rightsUri", types.CodeFormat, fmt.Sprintf("Rights URI %s is not a valid URL.", r.RightsURI))
		}
	}
	for i, a := range md.AlternateIdentifiers {
		path := fmt.Sprintf("alternateIdentifiers[%d]", i)
		if a.AlternateIdentifierType == "DOI" {
			errs.add(path+".alternateIdentifierType", types.CodeNotAllowed, "Identifier type DOI can't be an alternate identifier.")
		}
		if a.AlternateIdentifier == "" {
			errs.add(path+".alternateIdentifier", types.CodeRequired, "Alternate identifier must not be empty.")
		}
	}
	for i, r := range md.RelatedIdentifiers {
		path := fmt.Sprintf("relatedIdentifiers[%d]", i)
		if r.RelatedIdentifier == "" {
			errs.add(path+".relatedIdentifier", types.CodeRequired, "Related identifier must not be empty.")
		}
		if r.RelatedIdentifierType == "" {
			errs.add(path+".relatedIdentifierType", types.CodeRequired, "Related identifier type is required.")
		}
		if r.RelationType == "" {
			errs.add(path+".relationType", types.CodeRequired, "Relation type is required.")
		}
	}
	for i, d := range md.Dates {
		if d.Date == "" {
			errs.add(fmt.Sprintf("dates[%d].date", i), types.CodeRequired, "Date must not be empty.")
		}
	}
	for i, g := range md.GeoLocations {
		path := fmt.Sprintf("geoLocations[%d]", i)
		if p := g.GeoLocationPoint; p != nil {
			checkLatitude(&errs, path+".geoLocationPoint.pointLatitude", p.PointLatitude)
			checkLongitude(&errs, path+".geoLocationPoint.pointLongitude", p.PointLongitude)
		}
		if b := g.GeoLocationBox; b != nil {
			checkLongitude(&errs, path+".geoLocationBox.westBoundLongitude", b.WestBoundLongitude)
			checkLongitude(&errs, path+".geoLocationBox.eastBoundLongitude", b.EastBoundLongitude)
			checkLatitude(&errs, path+".geoLocationBox.southBoundLatitude", b.SouthBoundLatitude)
			checkLatitude(&errs, path+".geoLocationBox.northBoundLatitude", b.NorthBoundLatitude)
		}
		if poly := g.GeoLocationPolygon; len(poly) > 0 {
			checkPolygon(&errs, path+".geoLocationPolygon", poly)
		}
	}
	for i, f := range md.FundingReferences {
		if f.FunderName == "" {
			errs.add(fmt.Sprintf("fundingReferences[%d].funderName", i), types.CodeRequired, "Funder name is required.")
		}
	}

	errs = append(errs, Enumerations(md, VocabularyFor(md.SchemaVersion))...)
	return errs
}

func checkAgent(errs *errList, path string, c types.Creator) {
	if c.Name == "" {
		errs.add(path+".name", types.CodeRequired, "Name is required.")
	}
	for j, ni := range c.NameIdentifiers {
		if ni.SchemeURI != "" && !URL(ni.SchemeURI) {
			errs.add(fmt.Sprintf("%s.nameIdentifiers[%d].schemeUri", path, j), types.CodeFormat,
				fmt.Sprintf("Scheme URI %s is not a valid URL.", ni.SchemeURI))
		}
	}
}

// MinPolygonPoints is the fewest vertices a closed polygon can have.
const MinPolygonPoints = 4

func checkPolygon(errs *errList, path string, poly types.GeoPolygon) {
	inside := 0
	for j, pt := range poly {
		for _, e := range []struct {
			name string
			p    *types.GeoPoint
		}{{"polygonPoint", pt.PolygonPoint}, {"inPolygonPoint", pt.InPolygonPoint}} {
			if e.p == nil {
				continue
			}
			at := fmt.Sprintf("%s[%d].%s", path, j, e.name)
			checkLatitude(errs, at+".pointLatitude", e.p.PointLatitude)
			checkLongitude(errs, at+".pointLongitude", e.p.PointLongitude)
		}
		if pt.InPolygonPoint != nil {
			inside++
		}
	}
	if n := len(poly.Vertices()); n < MinPolygonPoints {
		errs.add(path, types.CodeRequired, fmt.Sprintf("A polygon needs at least %d polygonPoint entries, got %d.", MinPolygonPoints, n))
	}
	if inside > 1 {
		errs.add(path, types.CodeNotAllowed, "A polygon has at most one inPolygonPoint.")
	}
}

func checkLatitude(errs *errList, path string, v float64) {
	if v < -90 || v > 90 {
		errs.add(path, types.CodeOutOfRange, fmt.Sprintf("Latitude %g is outside [-90, 90].", v))
	}
}

func checkLongitude(errs *errList, path string, v float64) {
	if v < -180 || v > 180 {
		errs.add(path, types.CodeOutOfRange, fmt.Sprintf("Longitude %g is outside [-180, 180].", v))
	}
}

// Enumerations checks every controlled field of md against vocab. Matching
// is case-sensitive.
func Enumerations(md *types.Metadata, vocab *Vocabulary) []types.FieldError {
	var errs errList
	enum := func(path, value string, allowed []string, attr string) {
		if value == "" {
			return
		}
		if allowed == nil {
			errs.add(path, types.CodeNotAllowed, fmt.Sprintf("The attribute '%s' is not allowed.", attr))
			return
		}
		if !contains(allowed, value) {
			errs.add(path, types.CodeEnumeration, fmt.Sprintf(
				"[facet 'enumeration'] The value '%s' is not an element of the set %s.", value, quoteSet(allowed)))
		}
	}

	agent := func(path string, c types.Creator) {
		enum(path+".nameType", c.NameType, vocab.NameType, "nameType")
	}
	for i, c := range md.Creators {
		agent(fmt.Sprintf("creators[%d]", i), c)
	}
	for i, c := range md.Contributors {
		path := fmt.Sprintf("contributors[%d]", i)
		agent(path, c.Creator)
		enum(path+".contributorType", c.ContributorType, vocab.ContributorType, "contributorType")
	}
	for i, t := range md.Titles {
		enum(fmt.Sprintf("titles[%d].titleType", i), t.TitleType, vocab.TitleType, "titleType")
	}
	enum("types.resourceTypeGeneral", md.Types.ResourceTypeGeneral, vocab.ResourceTypeGeneral, "resourceTypeGeneral")
	for i, d := range md.Dates {
		enum(fmt.Sprintf("dates[%d].dateType", i), d.DateType, vocab.DateType, "dateType")
	}
	for i, d := range md.Descriptions {
		enum(fmt.Sprintf("descriptions[%d].descriptionType", i), d.DescriptionType, vocab.DescriptionType, "descriptionType")
	}
	for i, r := range md.RelatedIdentifiers {
		path := fmt.Sprintf("relatedIdentifiers[%d]", i)
		enum(path+".relatedIdentifierType", r.RelatedIdentifierType, vocab.RelatedIdentifierType, "relatedIdentifierType")
		enum(path+".relationType", r.RelationType, vocab.RelationType, "relationType")
		enum(path+".resourceTypeGeneral", r.ResourceTypeGeneral, vocab.ResourceTypeGeneral, "resourceTypeGeneral")
	}
	for i, f := range md.FundingReferences {
		enum(fmt.Sprintf("fundingReferences[%d].funderIdentifierType", i), f.FunderIdentifierType, vocab.FunderIdentifierType, "funderIdentifierType")
	}
	for i, it := range md.RelatedItems {
		path := fmt.Sprintf("relatedItems[%d]", i)
		enum(path+".relatedItemType", it.RelatedItemType, vocab.ResourceTypeGeneral, "relatedItemType")
		enum(path+".relationType", it.RelationType, vocab.RelationType, "relationType")
		enum(path+".numberType", it.NumberType, vocab.NumberType, "numberType")
		if it.RelatedItemIdentifier != nil {
			enum(path+".relatedItemIdentifier.relatedItemIdentifierType", it.RelatedItemIdentifier.RelatedItemIdentifierType,
				vocab.RelatedIdentifierType, "relatedItemIdentifierType")
		}
		for j, c := range it.Creators {
			agent(fmt.Sprintf("%s.creators[%d]", path, j), c)
		}
	}
	return errs
}

// Complete reports the required properties md lacks for full validation:
// identifier, at least one named creator, at least one title, publisher,
// publication year and, from kernel-4 on, the general resource type.
func Complete(md *types.Metadata) []types.FieldError {
	var errs errList
	if md == nil {
		errs.add("", types.CodeRequired, "Metadata is required.")
		return errs
	}
	if md.Identifier == "" {
		errs.add("doi", types.CodeRequired, "DOI is required.")
	}
	if len(md.Creators) == 0 {
		errs.add("creators", types.CodeRequired, missingChild(md.SchemaVersion, "creator"))
	}
	if md.MainTitle() == "" {
		errs.add("titles", types.CodeRequired, missingChild(md.SchemaVersion, "title"))
	}
	if md.PublisherName() == "" {
		errs.add("publisher", types.CodeRequired, "Publisher is required.")
	}
	if md.PublicationYear == "" {
		errs.add("publicationYear", types.CodeRequired, "Publication year is required.")
	}
	if VocabularyFor(md.SchemaVersion).Generation >= 4 && md.Types.ResourceTypeGeneral == "" {
		errs.add("types.resourceTypeGeneral", types.CodeRequired, "Resource type general is required.")
	}
	return errs
}

func missingChild(ns, element string) string {
	if ns != "" {
		element = "{" + ns + "}" + element
	}
	return fmt.Sprintf("Missing child element(s). Expected is ( %s ).", element)
}

// IdentifierMatches reports a mismatch between the identifier carried in the
// metadata and the record being written. An empty metadata identifier is
// not a mismatch.
func IdentifierMatches(md *types.Metadata, identifier string) *types.FieldError {
	if md == nil || md.Identifier == "" {
		return nil
	}
	if doi.Normalize(md.Identifier) == doi.Normalize(identifier) {
		return nil
	}
	return &types.FieldError{
		Field:   "doi",
		Code:    types.CodeMismatch,
		Message: fmt.Sprintf("DOI %s does not match the record %s.", md.Identifier, identifier),
	}
}

type errList []types.FieldError

func (l *errList) add(field, code, msg string) {
	*l = append(*l, types.FieldError{Field: field, Code: code, Message: msg})
}
