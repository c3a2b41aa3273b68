// Package schemaorg reads and writes schema.org JSON-LD and the Codemeta
// profile of it used for software.
package schemaorg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/doireg/internal/codec/shape"
	"github.com/mesh-intelligence/doireg/internal/codec/typemap"
	"github.com/mesh-intelligence/doireg/internal/doi"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

// Contexts written by Render.
const (
	SchemaOrgContext = "http://schema.org"
	CodemetaContext  = "https://doi.org/10.5063/schema/codemeta-2.0"
)

// Profile selects the JSON-LD vocabulary flavor.
type Profile int

const (
	ProfileSchemaOrg Profile = iota
	ProfileCodemeta
)

type document struct {
	Context         any                    `json:"@context,omitempty"`
	Type            string                 `json:"@type,omitempty"`
	ID              string                 `json:"@id,omitempty"`
	Identifier      shape.List[identifier] `json:"identifier,omitempty"`
	URL             string                 `json:"url,omitempty"`
	CodeRepository  string                 `json:"codeRepository,omitempty"`
	AdditionalType  string                 `json:"additionalType,omitempty"`
	Name            string                 `json:"name,omitempty"`
	Headline        string                 `json:"headline,omitempty"`
	AlternateName   shape.List[string]     `json:"alternateName,omitempty"`
	Author          shape.List[agent]      `json:"author,omitempty"`
	Creator         shape.List[agent]      `json:"creator,omitempty"`
	Editor          shape.List[agent]      `json:"editor,omitempty"`
	Contributor     shape.List[agent]      `json:"contributor,omitempty"`
	Description     shape.List[string]     `json:"description,omitempty"`
	License         shape.List[string]     `json:"license,omitempty"`
	Version         shape.Flex             `json:"version,omitempty"`
	Keywords        keywords               `json:"keywords,omitempty"`
	InLanguage      string                 `json:"inLanguage,omitempty"`
	ContentSize     string                 `json:"contentSize,omitempty"`
	EncodingFormat  string                 `json:"encodingFormat,omitempty"`
	DateCreated     string                 `json:"dateCreated,omitempty"`
	DatePublished   string                 `json:"datePublished,omitempty"`
	DateModified    string                 `json:"dateModified,omitempty"`
	SpatialCoverage shape.List[place]      `json:"spatialCoverage,omitempty"`
	Citation        shape.List[reference]  `json:"citation,omitempty"`
	IsPartOf        *reference             `json:"isPartOf,omitempty"`
	Periodical      *periodical            `json:"periodical,omitempty"`
	Funder          shape.List[agent]      `json:"funder,omitempty"`
	Publisher       *agent                 `json:"publisher,omitempty"`
	SchemaVersion   string                 `json:"schemaVersion,omitempty"`
}

// identifier is either a bare string or a PropertyValue.
type identifier struct {
	Type       string `json:"@type,omitempty"`
	PropertyID string `json:"propertyID,omitempty"`
	Value      string `json:"value,omitempty"`
}

func (i *identifier) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		*i = identifier{Value: s}
		return nil
	}
	type plain identifier
	return json.Unmarshal(b, (*plain)(i))
}

// agent is a Person or Organization; a bare string is a name.
type agent struct {
	Type        string            `json:"@type,omitempty"`
	ID          string            `json:"@id,omitempty"`
	Name        string            `json:"name,omitempty"`
	GivenName   string            `json:"givenName,omitempty"`
	FamilyName  string            `json:"familyName,omitempty"`
	Affiliation shape.List[agent] `json:"affiliation,omitempty"`
}

func (a *agent) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		*a = agent{Name: s}
		return nil
	}
	type plain agent
	return json.Unmarshal(b, (*plain)(a))
}

// keywords may be a comma-separated string or a list.
type keywords []string

func (k *keywords) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		*k = nil
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				*k = append(*k, part)
			}
		}
		return nil
	}
	var l []string
	if err := json.Unmarshal(b, &l); err != nil {
		return err
	}
	*k = l
	return nil
}

type place struct {
	Type string `json:"@type,omitempty"`
	Name string `json:"name,omitempty"`
	Geo  *geo   `json:"geo,omitempty"`
}

type geo struct {
	Type      string      `json:"@type,omitempty"`
	Latitude  *shape.Flex `json:"latitude,omitempty"`
	Longitude *shape.Flex `json:"longitude,omitempty"`
	Box       string      `json:"box,omitempty"`
	Polygon   string      `json:"polygon,omitempty"`
}

type reference struct {
	Type string `json:"@type,omitempty"`
	ID   string `json:"@id,omitempty"`
	Name string `json:"name,omitempty"`
	ISSN string `json:"issn,omitempty"`
}

type periodical struct {
	Type string `json:"@type,omitempty"`
	Name string `json:"name,omitempty"`
	ISSN string `json:"issn,omitempty"`
}

// IsCodemeta reports whether a JSON-LD @context value names Codemeta.
func IsCodemeta(context any) bool {
	switch c := context.(type) {
	case string:
		return strings.Contains(strings.ToLower(c), "codemeta")
	case []any:
		for _, v := range c {
			if IsCodemeta(v) {
				return true
			}
		}
	case map[string]any:
		for _, v := range c {
			if IsCodemeta(v) {
				return true
			}
		}
	}
	return false
}

// Parse reads schema.org or Codemeta JSON-LD. Both profiles share one
// mapping; Codemeta's codeRepository becomes a content URL.
func Parse(raw []byte) (*types.Metadata, []types.FieldError, error) {
	var d document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, []types.FieldError{{Code: types.CodeMalformed, Message: "invalid JSON-LD: " + err.Error()}}, nil
	}
	var problems []types.FieldError

	md := &types.Metadata{
		Language:      d.InLanguage,
		Version:       d.Version.String(),
		SchemaVersion: d.SchemaVersion,
		Types: types.Types{
			ResourceTypeGeneral: typemap.FromSchemaOrg(d.Type),
			ResourceType:        d.AdditionalType,
		},
	}
	if md.Types.ResourceTypeGeneral == "" && IsCodemeta(d.Context) {
		md.Types.ResourceTypeGeneral = "Software"
	}
	md.Identifier = findDOI(d)

	name := d.Name
	if name == "" {
		name = d.Headline
	}
	if name != "" {
		md.Titles = append(md.Titles, types.Title{Title: name})
	}
	for _, alt := range d.AlternateName {
		md.Titles = append(md.Titles, types.Title{Title: alt, TitleType: types.TitleTypeAlternative})
	}

	authors := d.Author
	if len(authors) == 0 {
		authors = d.Creator
	}
	for _, a := range authors {
		md.Creators = append(md.Creators, a.creator())
	}
	for _, a := range d.Editor {
		md.Contributors = append(md.Contributors, types.Contributor{ContributorType: "Editor", Creator: a.creator()})
	}
	for _, a := range d.Contributor {
		md.Contributors = append(md.Contributors, types.Contributor{ContributorType: "Other", Creator: a.creator()})
	}
	if d.Publisher != nil && d.Publisher.Name != "" {
		md.Publisher = &types.Publisher{Name: d.Publisher.Name}
	}

	md.PublicationYear = shape.Year(d.DatePublished)
	for _, date := range []struct{ value, kind string }{
		{d.DatePublished, types.DateTypeIssued},
		{d.DateCreated, types.DateTypeCreated},
		{d.DateModified, types.DateTypeUpdated},
	} {
		if date.value != "" {
			md.Dates = append(md.Dates, types.Date{Date: date.value, DateType: date.kind})
		}
	}
	for _, desc := range d.Description {
		md.Descriptions = append(md.Descriptions, types.Description{Description: shape.Block(desc), DescriptionType: types.DescriptionTypeAbstract})
	}
	for _, l := range d.License {
		md.RightsList = append(md.RightsList, types.Rights{RightsURI: l})
	}
	for _, k := range d.Keywords {
		md.Subjects = append(md.Subjects, types.Subject{Subject: k})
	}
	if d.ContentSize != "" {
		md.Sizes = []string{d.ContentSize}
	}
	if d.EncodingFormat != "" {
		md.Formats = []string{d.EncodingFormat}
	}
	if d.CodeRepository != "" {
		md.ContentURL = []string{d.CodeRepository}
	}

	for i, p := range d.SpatialCoverage {
		g, errs := p.geoLocation(fmt.Sprintf("spatialCoverage[%d]", i))
		problems = append(problems, errs...)
		md.GeoLocations = append(md.GeoLocations, g)
	}
	for _, c := range d.Citation {
		if c.ID != "" {
			md.RelatedIdentifiers = append(md.RelatedIdentifiers, relatedIdentifier(c.ID, "References"))
		}
	}
	if d.IsPartOf != nil && d.IsPartOf.ID != "" {
		md.RelatedIdentifiers = append(md.RelatedIdentifiers, relatedIdentifier(d.IsPartOf.ID, "IsPartOf"))
	}
	if p := d.Periodical; p != nil && p.Name != "" {
		it := types.RelatedItem{
			RelatedItemType: "Journal",
			RelationType:    "IsPublishedIn",
			Titles:          []types.Title{{Title: p.Name}},
		}
		if p.ISSN != "" {
			it.RelatedItemIdentifier = &types.RelatedItemIdentifier{RelatedItemIdentifier: p.ISSN, RelatedItemIdentifierType: "ISSN"}
		}
		md.RelatedItems = append(md.RelatedItems, it)
	}
	for _, f := range d.Funder {
		md.FundingReferences = append(md.FundingReferences, types.FundingReference{
			FunderName:       f.Name,
			FunderIdentifier: f.ID,
		})
	}
	shape.CleanMetadata(md)
	return md, problems, nil
}

func findDOI(d document) string {
	if strings.Contains(d.ID, "doi.org/") {
		return d.ID
	}
	for _, id := range d.Identifier {
		if strings.EqualFold(id.PropertyID, "doi") || strings.Contains(id.Value, "doi.org/") {
			return id.Value
		}
	}
	return ""
}

func relatedIdentifier(id, relation string) types.RelatedIdentifier {
	r := types.RelatedIdentifier{RelatedIdentifier: id, RelatedIdentifierType: "URL", RelationType: relation}
	if strings.Contains(id, "doi.org/") {
		r.RelatedIdentifier = doi.Normalize(id)
		r.RelatedIdentifierType = "DOI"
	}
	return r
}

func (a agent) creator() types.Creator {
	var c types.Creator
	switch {
	case a.GivenName != "" || a.FamilyName != "":
		c = shape.Person(a.GivenName, a.FamilyName)
	case a.Type == "Organization":
		c = shape.Organization(a.Name)
	default:
		c = types.Creator{Name: a.Name}
		if a.Type == "Person" {
			c.NameType = types.NameTypePersonal
		}
	}
	if strings.Contains(a.ID, "orcid.org") {
		c.NameIdentifiers = []types.NameIdentifier{{
			NameIdentifier:       a.ID,
			NameIdentifierScheme: "ORCID",
			SchemeURI:            "https://orcid.org",
		}}
	}
	for _, af := range a.Affiliation {
		if af.Name != "" {
			c.Affiliations = append(c.Affiliations, types.Affiliation{Name: af.Name, AffiliationIdentifier: af.ID})
		}
	}
	return c
}

func (p place) geoLocation(path string) (types.GeoLocation, []types.FieldError) {
	g := types.GeoLocation{GeoLocationPlace: p.Name}
	if p.Geo == nil {
		return g, nil
	}
	var errs []types.FieldError
	num := func(field, s string) float64 {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			errs = append(errs, types.FieldError{Field: path + ".geo." + field, Code: types.CodeFormat, Message: fmt.Sprintf("'%s' is not a number.", s)})
		}
		return f
	}
	if p.Geo.Latitude != nil && p.Geo.Longitude != nil {
		g.GeoLocationPoint = &types.GeoPoint{
			PointLatitude:  num("latitude", p.Geo.Latitude.String()),
			PointLongitude: num("longitude", p.Geo.Longitude.String()),
		}
	}
	if p.Geo.Box != "" {
		// "south west north east"
		f := strings.Fields(p.Geo.Box)
		for len(f) < 4 {
			f = append(f, "")
		}
		g.GeoLocationBox = &types.GeoBox{
			SouthBoundLatitude: num("box", f[0]),
			WestBoundLongitude: num("box", f[1]),
			NorthBoundLatitude: num("box", f[2]),
			EastBoundLongitude: num("box", f[3]),
		}
	}
	if p.Geo.Polygon != "" {
		// "lat lon lat lon ..."
		f := strings.Fields(p.Geo.Polygon)
		if len(f)%2 == 1 {
			f = append(f, "")
		}
		for i := 0; i < len(f); i += 2 {
			g.GeoLocationPolygon = append(g.GeoLocationPolygon, types.GeoPolygonPoint{PolygonPoint: &types.GeoPoint{
				PointLatitude:  num("polygon", f[i]),
				PointLongitude: num("polygon", f[i+1]),
			}})
		}
	}
	return g, errs
}

// Render writes md as JSON-LD in the given profile.
func Render(md *types.Metadata, profile Profile) ([]byte, error) {
	d := document{
		Context:        SchemaOrgContext,
		Type:           typemap.SchemaOrg(md.Types.ResourceTypeGeneral),
		AdditionalType: md.Types.ResourceType,
		Name:           md.MainTitle(),
		Version:        shape.Flex(md.Version),
		InLanguage:     md.Language,
		DatePublished:  md.DateOf(types.DateTypeIssued),
		DateCreated:    md.DateOf(types.DateTypeCreated),
		DateModified:   md.DateOf(types.DateTypeUpdated),
		SchemaVersion:  md.SchemaVersion,
	}
	if profile == ProfileCodemeta {
		d.Context = CodemetaContext
		if len(md.ContentURL) > 0 {
			d.CodeRepository = md.ContentURL[0]
		}
		d.SchemaVersion = ""
	}
	if d.DatePublished == "" {
		d.DatePublished = md.PublicationYear
	}
	if md.Identifier != "" {
		d.ID = doi.URL(md.Identifier)
		d.Identifier = shape.List[identifier]{{Type: "PropertyValue", PropertyID: "doi", Value: d.ID}}
	}
	for _, t := range md.Titles {
		if t.TitleType == types.TitleTypeAlternative {
			d.AlternateName = append(d.AlternateName, t.Title)
		}
	}
	for _, c := range md.Creators {
		d.Author = append(d.Author, fromCreator(c))
	}
	for _, c := range md.Contributors {
		if c.ContributorType == "Editor" {
			d.Editor = append(d.Editor, fromCreator(c.Creator))
		} else {
			d.Contributor = append(d.Contributor, fromCreator(c.Creator))
		}
	}
	if name := md.PublisherName(); name != "" {
		d.Publisher = &agent{Type: "Organization", Name: name}
	}
	if a := md.Abstract(); a != "" {
		d.Description = shape.List[string]{a}
	}
	for _, r := range md.RightsList {
		if r.RightsURI != "" {
			d.License = append(d.License, r.RightsURI)
		}
	}
	d.Keywords = md.Keywords()
	if len(md.Sizes) > 0 {
		d.ContentSize = md.Sizes[0]
	}
	if len(md.Formats) > 0 {
		d.EncodingFormat = md.Formats[0]
	}
	for _, g := range md.GeoLocations {
		d.SpatialCoverage = append(d.SpatialCoverage, fromGeoLocation(g))
	}
	for _, r := range md.RelatedIdentifiers {
		ref := reference{Type: "CreativeWork", ID: r.RelatedIdentifier}
		if r.RelatedIdentifierType == "DOI" {
			ref.ID = doi.URL(r.RelatedIdentifier)
		}
		switch r.RelationType {
		case "References", "Cites":
			d.Citation = append(d.Citation, ref)
		case "IsPartOf":
			if d.IsPartOf == nil {
				d.IsPartOf = &ref
			}
		}
	}
	if c := md.Container(); c != nil && len(c.Titles) > 0 {
		p := &periodical{Type: "Periodical", Name: c.Titles[0].Title}
		if id := c.RelatedItemIdentifier; id != nil && id.RelatedItemIdentifierType == "ISSN" {
			p.ISSN = id.RelatedItemIdentifier
		}
		d.Periodical = p
	}
	for _, f := range md.FundingReferences {
		d.Funder = append(d.Funder, agent{Type: "Organization", ID: f.FunderIdentifier, Name: f.FunderName})
	}

	b, err := json.MarshalIndent(&d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding JSON-LD: %w", err)
	}
	return append(b, '\n'), nil
}

func fromCreator(c types.Creator) agent {
	a := agent{Name: c.Name}
	switch {
	case c.NameType == types.NameTypeOrganizational:
		a.Type = "Organization"
	case c.IsPersonal():
		a.Type = "Person"
		a.FamilyName, a.GivenName = shape.PersonParts(c)
	}
	for _, ni := range c.NameIdentifiers {
		if ni.NameIdentifierScheme == "ORCID" {
			a.ID = ni.NameIdentifier
		}
	}
	for _, af := range c.Affiliations {
		a.Affiliation = append(a.Affiliation, agent{Type: "Organization", ID: af.AffiliationIdentifier, Name: af.Name})
	}
	return a
}

func fromGeoLocation(g types.GeoLocation) place {
	p := place{Type: "Place", Name: g.GeoLocationPlace}
	format := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	if pt := g.GeoLocationPoint; pt != nil {
		lat, lon := shape.Flex(format(pt.PointLatitude)), shape.Flex(format(pt.PointLongitude))
		p.Geo = &geo{Type: "GeoCoordinates", Latitude: &lat, Longitude: &lon}
	} else if b := g.GeoLocationBox; b != nil {
		p.Geo = &geo{Type: "GeoShape", Box: strings.Join([]string{
			format(b.SouthBoundLatitude), format(b.WestBoundLongitude),
			format(b.NorthBoundLatitude), format(b.EastBoundLongitude),
		}, " ")}
	} else if vs := g.GeoLocationPolygon.Vertices(); len(vs) > 0 {
		coords := make([]string, 0, 2*len(vs))
		for _, v := range vs {
			coords = append(coords, format(v.PointLatitude), format(v.PointLongitude))
		}
		p.Geo = &geo{Type: "GeoShape", Polygon: strings.Join(coords, " ")}
	}
	return p
}
