// Package crosscite reads and writes the legacy citation JSON shape: flat
// snake_case keys, "author" instead of creators, and type information
// spread over resource_type_general and resource_type.
package crosscite

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/doireg/internal/codec/shape"
	"github.com/mesh-intelligence/doireg/internal/codec/typemap"
	"github.com/mesh-intelligence/doireg/internal/doi"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

type document struct {
	ID                  string                  `json:"id,omitempty"`
	DOI                 string                  `json:"doi,omitempty"`
	Type                string                  `json:"type,omitempty"`
	ResourceTypeGeneral string                  `json:"resource_type_general,omitempty"`
	ResourceType        string                  `json:"resource_type,omitempty"`
	Author              shape.List[author]      `json:"author,omitempty"`
	Editor              shape.List[author]      `json:"editor,omitempty"`
	Title               shape.List[title]       `json:"title,omitempty"`
	ContainerTitle      string                  `json:"container_title,omitempty"`
	Publisher           string                  `json:"publisher,omitempty"`
	PublicationYear     shape.Flex              `json:"publication_year,omitempty"`
	DatePublished       string                  `json:"date_published,omitempty"`
	DateCreated         string                  `json:"date_created,omitempty"`
	DateModified        string                  `json:"date_modified,omitempty"`
	Keywords            shape.List[string]      `json:"keywords,omitempty"`
	Description         shape.List[description] `json:"description,omitempty"`
	Language            string                  `json:"language,omitempty"`
	Version             shape.Flex              `json:"version,omitempty"`
	License             shape.List[string]      `json:"license,omitempty"`
	AlternateIdentifier shape.List[alternateID] `json:"alternate_identifier,omitempty"`
	RelatedIdentifier   shape.List[relatedID]   `json:"related_identifier,omitempty"`
	Funding             shape.List[funding]     `json:"funding_reference,omitempty"`
	ContentSize         shape.List[string]      `json:"content_size,omitempty"`
	ContentFormat       shape.List[string]      `json:"content_format,omitempty"`
	SchemaVersion       string                  `json:"schema_version,omitempty"`
}

type author struct {
	ID          string             `json:"id,omitempty"`
	Type        string             `json:"type,omitempty"`
	Name        string             `json:"name,omitempty"`
	GivenName   string             `json:"given_name,omitempty"`
	FamilyName  string             `json:"family_name,omitempty"`
	Affiliation shape.List[string] `json:"affiliation,omitempty"`
}

// title accepts both a bare string and {"title","title_type","lang"}.
type title struct {
	Title     string `json:"title"`
	TitleType string `json:"title_type,omitempty"`
	Lang      string `json:"lang,omitempty"`
}

func (t *title) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		*t = title{Title: s}
		return nil
	}
	type plain title
	return json.Unmarshal(b, (*plain)(t))
}

type description struct {
	Description     string `json:"description"`
	DescriptionType string `json:"description_type,omitempty"`
	Lang            string `json:"lang,omitempty"`
}

func (d *description) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		*d = description{Description: s, DescriptionType: types.DescriptionTypeAbstract}
		return nil
	}
	type plain description
	return json.Unmarshal(b, (*plain)(d))
}

type alternateID struct {
	AlternateIdentifier     string `json:"alternate_identifier"`
	AlternateIdentifierType string `json:"alternate_identifier_type"`
}

type relatedID struct {
	RelatedIdentifier     string `json:"related_identifier"`
	RelatedIdentifierType string `json:"related_identifier_type"`
	RelationType          string `json:"relation_type"`
}

type funding struct {
	FunderName           string `json:"funder_name"`
	FunderIdentifier     string `json:"funder_identifier,omitempty"`
	FunderIdentifierType string `json:"funder_identifier_type,omitempty"`
	AwardNumber          string `json:"award_number,omitempty"`
	AwardTitle           string `json:"award_title,omitempty"`
}

// Parse reads legacy citation JSON. Unknown keys are ignored.
func Parse(raw []byte) (*types.Metadata, []types.FieldError, error) {
	var d document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, []types.FieldError{{Code: types.CodeMalformed, Message: "invalid JSON: " + err.Error()}}, nil
	}

	md := &types.Metadata{
		Identifier:      d.DOI,
		PublicationYear: d.PublicationYear.String(),
		Language:        d.Language,
		Version:         d.Version.String(),
		Sizes:           d.ContentSize,
		Formats:         d.ContentFormat,
		SchemaVersion:   d.SchemaVersion,
		Types: types.Types{
			ResourceTypeGeneral: d.ResourceTypeGeneral,
			ResourceType:        d.ResourceType,
		},
	}
	if md.Identifier == "" && strings.Contains(d.ID, "doi.org/") {
		md.Identifier = d.ID
	}
	if md.Types.ResourceTypeGeneral == "" {
		md.Types.ResourceTypeGeneral = typemap.FromSchemaOrg(d.Type)
	}
	if d.Publisher != "" {
		md.Publisher = &types.Publisher{Name: d.Publisher}
	}
	if md.PublicationYear == "" {
		md.PublicationYear = shape.Year(d.DatePublished)
	}
	for _, a := range d.Author {
		md.Creators = append(md.Creators, a.creator())
	}
	for _, a := range d.Editor {
		md.Contributors = append(md.Contributors, types.Contributor{ContributorType: "Editor", Creator: a.creator()})
	}
	for _, t := range d.Title {
		md.Titles = append(md.Titles, types.Title(t))
	}
	for _, k := range d.Keywords {
		md.Subjects = append(md.Subjects, types.Subject{Subject: k})
	}
	for _, desc := range d.Description {
		md.Descriptions = append(md.Descriptions, types.Description(desc))
	}
	for _, l := range d.License {
		md.RightsList = append(md.RightsList, types.Rights{RightsURI: l})
	}
	for _, a := range d.AlternateIdentifier {
		md.AlternateIdentifiers = append(md.AlternateIdentifiers, types.AlternateIdentifier(a))
	}
	for _, r := range d.RelatedIdentifier {
		md.RelatedIdentifiers = append(md.RelatedIdentifiers, types.RelatedIdentifier{
			RelatedIdentifier:     r.RelatedIdentifier,
			RelatedIdentifierType: r.RelatedIdentifierType,
			RelationType:          r.RelationType,
		})
	}
	for _, f := range d.Funding {
		md.FundingReferences = append(md.FundingReferences, types.FundingReference{
			FunderName:           f.FunderName,
			FunderIdentifier:     f.FunderIdentifier,
			FunderIdentifierType: f.FunderIdentifierType,
			AwardNumber:          f.AwardNumber,
			AwardTitle:           f.AwardTitle,
		})
	}
	for _, date := range []struct{ value, kind string }{
		{d.DatePublished, types.DateTypeIssued},
		{d.DateCreated, types.DateTypeCreated},
		{d.DateModified, types.DateTypeUpdated},
	} {
		if date.value != "" {
			md.Dates = append(md.Dates, types.Date{Date: date.value, DateType: date.kind})
		}
	}
	if d.ContainerTitle != "" {
		md.RelatedItems = []types.RelatedItem{{
			RelationType: "IsPublishedIn",
			Titles:       []types.Title{{Title: d.ContainerTitle}},
		}}
	}
	shape.CleanMetadata(md)
	return md, nil, nil
}

func (a author) creator() types.Creator {
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
	if a.ID != "" {
		c.NameIdentifiers = []types.NameIdentifier{{
			NameIdentifier:       a.ID,
			NameIdentifierScheme: nameScheme(a.ID),
		}}
	}
	for _, af := range a.Affiliation {
		c.Affiliations = append(c.Affiliations, types.Affiliation{Name: af})
	}
	return c
}

func nameScheme(id string) string {
	switch {
	case strings.Contains(id, "orcid.org"):
		return "ORCID"
	case strings.Contains(id, "ror.org"):
		return "ROR"
	case strings.Contains(id, "isni.org"):
		return "ISNI"
	}
	return ""
}

// Render writes md as legacy citation JSON.
func Render(md *types.Metadata) ([]byte, error) {
	d := document{
		DOI:                 strings.ToLower(md.Identifier),
		ResourceTypeGeneral: md.Types.ResourceTypeGeneral,
		ResourceType:        md.Types.ResourceType,
		Publisher:           md.PublisherName(),
		PublicationYear:     shape.Flex(md.PublicationYear),
		DatePublished:       md.DateOf(types.DateTypeIssued),
		DateCreated:         md.DateOf(types.DateTypeCreated),
		DateModified:        md.DateOf(types.DateTypeUpdated),
		Keywords:            md.Keywords(),
		Language:            md.Language,
		Version:             shape.Flex(md.Version),
		ContentSize:         md.Sizes,
		ContentFormat:       md.Formats,
		SchemaVersion:       md.SchemaVersion,
	}
	if md.Identifier != "" {
		d.ID = doi.URL(md.Identifier)
	}
	if md.Types.ResourceTypeGeneral != "" {
		d.Type = typemap.SchemaOrg(md.Types.ResourceTypeGeneral)
	}
	for _, c := range md.Creators {
		d.Author = append(d.Author, fromCreator(c))
	}
	for _, c := range md.Contributors {
		if c.ContributorType == "Editor" {
			d.Editor = append(d.Editor, fromCreator(c.Creator))
		}
	}
	for _, t := range md.Titles {
		d.Title = append(d.Title, title(t))
	}
	if c := md.Container(); c != nil && len(c.Titles) > 0 {
		d.ContainerTitle = c.Titles[0].Title
	}
	for _, desc := range md.Descriptions {
		d.Description = append(d.Description, description(desc))
	}
	for _, r := range md.RightsList {
		if r.RightsURI != "" {
			d.License = append(d.License, r.RightsURI)
		}
	}
	for _, a := range md.AlternateIdentifiers {
		d.AlternateIdentifier = append(d.AlternateIdentifier, alternateID(a))
	}
	for _, r := range md.RelatedIdentifiers {
		d.RelatedIdentifier = append(d.RelatedIdentifier, relatedID{
			RelatedIdentifier:     r.RelatedIdentifier,
			RelatedIdentifierType: r.RelatedIdentifierType,
			RelationType:          r.RelationType,
		})
	}
	for _, f := range md.FundingReferences {
		d.Funding = append(d.Funding, funding{
			FunderName:           f.FunderName,
			FunderIdentifier:     f.FunderIdentifier,
			FunderIdentifierType: f.FunderIdentifierType,
			AwardNumber:          f.AwardNumber,
			AwardTitle:           f.AwardTitle,
		})
	}

	b, err := json.MarshalIndent(&d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding citation JSON: %w", err)
	}
	return append(b, '\n'), nil
}

func fromCreator(c types.Creator) author {
	a := author{Name: c.Name}
	switch {
	case c.NameType == types.NameTypeOrganizational:
		a.Type = "Organization"
	case c.IsPersonal():
		a.Type = "Person"
		a.FamilyName, a.GivenName = shape.PersonParts(c)
	}
	for _, ni := range c.NameIdentifiers {
		if ni.NameIdentifier != "" {
			a.ID = ni.NameIdentifier
			break
		}
	}
	for _, af := range c.Affiliations {
		a.Affiliation = append(a.Affiliation, af.Name)
	}
	return a
}
