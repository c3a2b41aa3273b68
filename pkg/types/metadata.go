package types

import "strings"

// Schema namespaces for the primary XML schema generations.
const (
	NamespaceKernel3 = "http://datacite.org/schema/kernel-3"
	NamespaceKernel4 = "http://datacite.org/schema/kernel-4"

	// LastSchemaVersion is declared by parsers of formats that carry no
	// schema namespace of their own.
	LastSchemaVersion = NamespaceKernel4
)

// Metadata is the canonical metadata model. Every parser maps its native
// structure onto this tree and every renderer reads from it. The JSON
// encoding is the DataCite JSON shape.
type Metadata struct {
	Identifier           string                `json:"doi,omitempty"`
	Creators             []Creator             `json:"creators,omitempty"`
	Titles               []Title               `json:"titles,omitempty"`
	Publisher            *Publisher            `json:"publisher,omitempty"`
	PublicationYear      string                `json:"publicationYear,omitempty"`
	Types                Types                 `json:"types,omitzero"`
	Subjects             []Subject             `json:"subjects,omitempty"`
	Contributors         []Contributor         `json:"contributors,omitempty"`
	Dates                []Date                `json:"dates,omitempty"`
	Language             string                `json:"language,omitempty"`
	AlternateIdentifiers []AlternateIdentifier `json:"alternateIdentifiers,omitempty"`
	RelatedIdentifiers   []RelatedIdentifier   `json:"relatedIdentifiers,omitempty"`
	RelatedItems         []RelatedItem         `json:"relatedItems,omitempty"`
	Sizes                []string              `json:"sizes,omitempty"`
	Formats              []string              `json:"formats,omitempty"`
	Version              string                `json:"version,omitempty"`
	RightsList           []Rights              `json:"rightsList,omitempty"`
	Descriptions         []Description         `json:"descriptions,omitempty"`
	GeoLocations         []GeoLocation         `json:"geoLocations,omitempty"`
	FundingReferences    []FundingReference    `json:"fundingReferences,omitempty"`
	ContentURL           []string              `json:"contentUrl,omitempty"`
	SchemaVersion        string                `json:"schemaVersion,omitempty"`
}

// Name types.
const (
	NameTypePersonal       = "Personal"
	NameTypeOrganizational = "Organizational"
)

// Creator is a person or organization responsible for the resource.
type Creator struct {
	Name            string           `json:"name,omitempty"`
	NameType        string           `json:"nameType,omitempty"`
	GivenName       string           `json:"givenName,omitempty"`
	FamilyName      string           `json:"familyName,omitempty"`
	Lang            string           `json:"lang,omitempty"`
	NameIdentifiers []NameIdentifier `json:"nameIdentifiers,omitempty"`
	Affiliations    []Affiliation    `json:"affiliation,omitempty"`
}

// DisplayName returns "Family, Given" when both parts are known and the
// literal name otherwise.
func (c Creator) DisplayName() string {
	if c.FamilyName != "" && c.GivenName != "" {
		return c.FamilyName + ", " + c.GivenName
	}
	if c.Name != "" {
		return c.Name
	}
	return c.FamilyName
}

// IsPersonal reports whether the creator should be treated as a person.
// An untyped name with a comma is read as "Family, Given".
func (c Creator) IsPersonal() bool {
	switch c.NameType {
	case NameTypePersonal:
		return true
	case NameTypeOrganizational:
		return false
	}
	return c.GivenName != "" || c.FamilyName != "" || strings.Contains(c.Name, ",")
}

// Contributor is a creator with a contributor role.
type Contributor struct {
	ContributorType string `json:"contributorType,omitempty"`
	Creator
}

// NameIdentifier identifies a creator or contributor, e.g. an ORCID.
type NameIdentifier struct {
	NameIdentifier       string `json:"nameIdentifier,omitempty"`
	NameIdentifierScheme string `json:"nameIdentifierScheme,omitempty"`
	SchemeURI            string `json:"schemeUri,omitempty"`
}

// Affiliation is an organizational affiliation of a creator or contributor.
type Affiliation struct {
	Name                        string `json:"name,omitempty"`
	AffiliationIdentifier       string `json:"affiliationIdentifier,omitempty"`
	AffiliationIdentifierScheme string `json:"affiliationIdentifierScheme,omitempty"`
	SchemeURI                   string `json:"schemeUri,omitempty"`
}

// Title types.
const (
	TitleTypeAlternative = "AlternativeTitle"
	TitleTypeSubtitle    = "Subtitle"
	TitleTypeTranslated  = "TranslatedTitle"
	TitleTypeOther       = "Other"
)

// Title is a name or title of the resource.
type Title struct {
	Title     string `json:"title,omitempty"`
	TitleType string `json:"titleType,omitempty"`
	Lang      string `json:"lang,omitempty"`
}

// Publisher is always stored structured. Plain-string inputs become
// Publisher{Name: s}.
type Publisher struct {
	Name                      string `json:"name,omitempty"`
	Lang                      string `json:"lang,omitempty"`
	SchemeURI                 string `json:"schemeUri,omitempty"`
	PublisherIdentifier       string `json:"publisherIdentifier,omitempty"`
	PublisherIdentifierScheme string `json:"publisherIdentifierScheme,omitempty"`
}

// Types holds the general and free-text resource type.
type Types struct {
	ResourceTypeGeneral string `json:"resourceTypeGeneral,omitempty"`
	ResourceType        string `json:"resourceType,omitempty"`
}

// Subject is a keyword, classification code or key phrase. Values are kept
// verbatim.
type Subject struct {
	Subject            string `json:"subject,omitempty"`
	SubjectScheme      string `json:"subjectScheme,omitempty"`
	SchemeURI          string `json:"schemeUri,omitempty"`
	ValueURI           string `json:"valueUri,omitempty"`
	ClassificationCode string `json:"classificationCode,omitempty"`
	Lang               string `json:"lang,omitempty"`
}

// Date types used by renderers.
const (
	DateTypeIssued    = "Issued"
	DateTypeCreated   = "Created"
	DateTypeUpdated   = "Updated"
	DateTypeAvailable = "Available"
)

// Date is a dated event in the life of the resource.
type Date struct {
	Date            string `json:"date,omitempty"`
	DateType        string `json:"dateType,omitempty"`
	DateInformation string `json:"dateInformation,omitempty"`
}

// AlternateIdentifier is an identifier other than the primary one.
type AlternateIdentifier struct {
	AlternateIdentifier     string `json:"alternateIdentifier,omitempty"`
	AlternateIdentifierType string `json:"alternateIdentifierType,omitempty"`
}

// RelatedIdentifier links the resource to another identified resource.
type RelatedIdentifier struct {
	RelatedIdentifier     string `json:"relatedIdentifier,omitempty"`
	RelatedIdentifierType string `json:"relatedIdentifierType,omitempty"`
	RelationType          string `json:"relationType,omitempty"`
	RelatedMetadataScheme string `json:"relatedMetadataScheme,omitempty"`
	SchemeURI             string `json:"schemeUri,omitempty"`
	SchemeType            string `json:"schemeType,omitempty"`
	ResourceTypeGeneral   string `json:"resourceTypeGeneral,omitempty"`
}

// RelatedItem describes a related resource inline, typically the journal
// or book the resource was published in.
type RelatedItem struct {
	RelatedItemType       string                 `json:"relatedItemType,omitempty"`
	RelationType          string                 `json:"relationType,omitempty"`
	RelatedItemIdentifier *RelatedItemIdentifier `json:"relatedItemIdentifier,omitempty"`
	Creators              []Creator              `json:"creators,omitempty"`
	Titles                []Title                `json:"titles,omitempty"`
	PublicationYear       string                 `json:"publicationYear,omitempty"`
	Volume                string                 `json:"volume,omitempty"`
	Issue                 string                 `json:"issue,omitempty"`
	Number                string                 `json:"number,omitempty"`
	NumberType            string                 `json:"numberType,omitempty"`
	FirstPage             string                 `json:"firstPage,omitempty"`
	LastPage              string                 `json:"lastPage,omitempty"`
	Publisher             string                 `json:"publisher,omitempty"`
	Edition               string                 `json:"edition,omitempty"`
	Contributors          []Contributor          `json:"contributors,omitempty"`
}

// RelatedItemIdentifier identifies a related item.
type RelatedItemIdentifier struct {
	RelatedItemIdentifier     string `json:"relatedItemIdentifier,omitempty"`
	RelatedItemIdentifierType string `json:"relatedItemIdentifierType,omitempty"`
}

// Rights is a rights statement, usually a license.
type Rights struct {
	Rights                 string `json:"rights,omitempty"`
	RightsURI              string `json:"rightsUri,omitempty"`
	RightsIdentifier       string `json:"rightsIdentifier,omitempty"`
	RightsIdentifierScheme string `json:"rightsIdentifierScheme,omitempty"`
	SchemeURI              string `json:"schemeUri,omitempty"`
	Lang                   string `json:"lang,omitempty"`
}

// Description types.
const (
	DescriptionTypeAbstract = "Abstract"
	DescriptionTypeOther    = "Other"
)

// Description is a free-text description of the resource.
type Description struct {
	Description     string `json:"description,omitempty"`
	DescriptionType string `json:"descriptionType,omitempty"`
	Lang            string `json:"lang,omitempty"`
}

// GeoLocation is a spatial region or named place.
type GeoLocation struct {
	GeoLocationPlace string    `json:"geoLocationPlace,omitempty"`
	GeoLocationPoint *GeoPoint `json:"geoLocationPoint,omitempty"`
	GeoLocationBox   *GeoBox   `json:"geoLocationBox,omitempty"`
	// GeoLocationPolygon lists the polygon's vertices in order, the first
	// repeated as the last, plus at most one inPolygonPoint entry.
	GeoLocationPolygon GeoPolygon `json:"geoLocationPolygon,omitempty"`
}

// GeoPoint is a single latitude/longitude pair.
type GeoPoint struct {
	PointLatitude  float64 `json:"pointLatitude"`
	PointLongitude float64 `json:"pointLongitude"`
}

// GeoPolygon is a closed polygon in the DataCite JSON shape.
type GeoPolygon []GeoPolygonPoint

// GeoPolygonPoint holds exactly one of a vertex or the inside point.
type GeoPolygonPoint struct {
	PolygonPoint   *GeoPoint `json:"polygonPoint,omitempty"`
	InPolygonPoint *GeoPoint `json:"inPolygonPoint,omitempty"`
}

// Vertices returns the polygon's vertices without the inside point.
func (p GeoPolygon) Vertices() []GeoPoint {
	var out []GeoPoint
	for _, pt := range p {
		if pt.PolygonPoint != nil {
			out = append(out, *pt.PolygonPoint)
		}
	}
	return out
}

// Inside returns the polygon's inside point, if any.
func (p GeoPolygon) Inside() *GeoPoint {
	for _, pt := range p {
		if pt.InPolygonPoint != nil {
			return pt.InPolygonPoint
		}
	}
	return nil
}

// GeoBox is a bounding box.
type GeoBox struct {
	WestBoundLongitude float64 `json:"westBoundLongitude"`
	EastBoundLongitude float64 `json:"eastBoundLongitude"`
	SouthBoundLatitude float64 `json:"southBoundLatitude"`
	NorthBoundLatitude float64 `json:"northBoundLatitude"`
}

// FundingReference describes financial support for the resource.
type FundingReference struct {
	FunderName           string `json:"funderName,omitempty"`
	FunderIdentifier     string `json:"funderIdentifier,omitempty"`
	FunderIdentifierType string `json:"funderIdentifierType,omitempty"`
	SchemeURI            string `json:"schemeUri,omitempty"`
	AwardNumber          string `json:"awardNumber,omitempty"`
	AwardURI             string `json:"awardUri,omitempty"`
	AwardTitle           string `json:"awardTitle,omitempty"`
}

// PublisherName returns the plain-string view of the publisher.
func (m *Metadata) PublisherName() string {
	if m == nil || m.Publisher == nil {
		return ""
	}
	return m.Publisher.Name
}

// MainTitle returns the first title without a title type, falling back to
// the first title of any type.
func (m *Metadata) MainTitle() string {
	if m == nil {
		return ""
	}
	for _, t := range m.Titles {
		if t.TitleType == "" {
			return t.Title
		}
	}
	if len(m.Titles) > 0 {
		return m.Titles[0].Title
	}
	return ""
}

// Abstract returns the first abstract description, if any.
func (m *Metadata) Abstract() string {
	if m == nil {
		return ""
	}
	for _, d := range m.Descriptions {
		if d.DescriptionType == DescriptionTypeAbstract {
			return d.Description
		}
	}
	return ""
}

// DateOf returns the first date of the given type.
func (m *Metadata) DateOf(dateType string) string {
	if m == nil {
		return ""
	}
	for _, d := range m.Dates {
		if d.DateType == dateType {
			return d.Date
		}
	}
	return ""
}

// Container returns the related item the resource was published in, or nil.
func (m *Metadata) Container() *RelatedItem {
	if m == nil {
		return nil
	}
	for i := range m.RelatedItems {
		switch m.RelatedItems[i].RelationType {
		case "IsPublishedIn", "IsPartOf":
			return &m.RelatedItems[i]
		}
	}
	return nil
}

// Keywords returns the subject strings.
func (m *Metadata) Keywords() []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, s := range m.Subjects {
		if s.Subject != "" {
			out = append(out, s.Subject)
		}
	}
	return out
}
