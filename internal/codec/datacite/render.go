package datacite

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

// RenderXML writes md as kernel XML in the generation named by its schema
// version, kernel-4 when unset. Element order follows the schema and the
// attributes of <resource> are always xmlns, xmlns:xsi, xsi:schemaLocation.
func RenderXML(md *types.Metadata) ([]byte, error) {
	ns := md.SchemaVersion
	if ns == "" {
		ns = types.LastSchemaVersion
	}
	ns, err := ResolveNamespace(ns, md.Identifier)
	if err != nil {
		return nil, err
	}
	kernel3 := ns == types.NamespaceKernel3

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	w := &xmlWriter{enc: xml.NewEncoder(&buf)}
	w.enc.Indent("", "  ")

	w.start("resource", "xmlns", ns, "xmlns:xsi", xsiNamespace, "xsi:schemaLocation", schemaLocation(ns))
	w.leaf("identifier", md.Identifier, "identifierType", "DOI")

	if len(md.Creators) > 0 {
		w.start("creators")
		for _, c := range md.Creators {
			w.start("creator")
			w.agent(c, "creatorName")
			w.end("creator")
		}
		w.end("creators")
	}
	w.titles(md.Titles)
	if p := md.Publisher; p != nil {
		w.leaf("publisher", p.Name,
			"xml:lang", p.Lang,
			"schemeURI", p.SchemeURI,
			"publisherIdentifier", p.PublisherIdentifier,
			"publisherIdentifierScheme", p.PublisherIdentifierScheme)
	}
	w.optional("publicationYear", md.PublicationYear)
	if md.Types != (types.Types{}) {
		w.leaf("resourceType", md.Types.ResourceType, "resourceTypeGeneral", md.Types.ResourceTypeGeneral)
	}
	if len(md.Subjects) > 0 {
		w.start("subjects")
		for _, s := range md.Subjects {
			w.leaf("subject", s.Subject,
				"subjectScheme", s.SubjectScheme,
				"schemeURI", s.SchemeURI,
				"valueURI", s.ValueURI,
				"classificationCode", s.ClassificationCode,
				"xml:lang", s.Lang)
		}
		w.end("subjects")
	}
	if len(md.Contributors) > 0 {
		w.start("contributors")
		for _, c := range md.Contributors {
			w.start("contributor", "contributorType", c.ContributorType)
			w.agent(c.Creator, "contributorName")
			w.end("contributor")
		}
		w.end("contributors")
	}
	if len(md.Dates) > 0 {
		w.start("dates")
		for _, d := range md.Dates {
			w.leaf("date", d.Date, "dateType", d.DateType, "dateInformation", d.DateInformation)
		}
		w.end("dates")
	}
	w.optional("language", md.Language)
	if len(md.AlternateIdentifiers) > 0 {
		w.start("alternateIdentifiers")
		for _, a := range md.AlternateIdentifiers {
			w.leaf("alternateIdentifier", a.AlternateIdentifier, "alternateIdentifierType", a.AlternateIdentifierType)
		}
		w.end("alternateIdentifiers")
	}
	if len(md.RelatedIdentifiers) > 0 {
		w.start("relatedIdentifiers")
		for _, r := range md.RelatedIdentifiers {
			w.leaf("relatedIdentifier", r.RelatedIdentifier,
				"relatedIdentifierType", r.RelatedIdentifierType,
				"relationType", r.RelationType,
				"relatedMetadataScheme", r.RelatedMetadataScheme,
				"schemeURI", r.SchemeURI,
				"schemeType", r.SchemeType,
				"resourceTypeGeneral", r.ResourceTypeGeneral)
		}
		w.end("relatedIdentifiers")
	}
	w.list("sizes", "size", md.Sizes)
	w.list("formats", "format", md.Formats)
	w.optional("version", md.Version)
	if len(md.RightsList) > 0 {
		w.start("rightsList")
		for _, r := range md.RightsList {
			w.leaf("rights", r.Rights,
				"xml:lang", r.Lang,
				"schemeURI", r.SchemeURI,
				"rightsIdentifierScheme", r.RightsIdentifierScheme,
				"rightsIdentifier", r.RightsIdentifier,
				"rightsURI", r.RightsURI)
		}
		w.end("rightsList")
	}
	if len(md.Descriptions) > 0 {
		w.start("descriptions")
		for _, d := range md.Descriptions {
			w.leaf("description", d.Description, "descriptionType", d.DescriptionType, "xml:lang", d.Lang)
		}
		w.end("descriptions")
	}
	if len(md.GeoLocations) > 0 {
		w.start("geoLocations")
		for _, g := range md.GeoLocations {
			w.geoLocation(g, kernel3)
		}
		w.end("geoLocations")
	}
	if len(md.FundingReferences) > 0 {
		w.start("fundingReferences")
		for _, f := range md.FundingReferences {
			w.start("fundingReference")
			w.optional("funderName", f.FunderName)
			if f.FunderIdentifier != "" || f.FunderIdentifierType != "" || f.SchemeURI != "" {
				w.leaf("funderIdentifier", f.FunderIdentifier, "funderIdentifierType", f.FunderIdentifierType, "schemeURI", f.SchemeURI)
			}
			if f.AwardNumber != "" || f.AwardURI != "" {
				w.leaf("awardNumber", f.AwardNumber, "awardURI", f.AwardURI)
			}
			w.optional("awardTitle", f.AwardTitle)
			w.end("fundingReference")
		}
		w.end("fundingReferences")
	}
	if len(md.RelatedItems) > 0 {
		w.start("relatedItems")
		for _, it := range md.RelatedItems {
			w.relatedItem(it)
		}
		w.end("relatedItems")
	}

	w.end("resource")
	if w.err == nil {
		w.err = w.enc.Flush()
	}
	if w.err != nil {
		return nil, fmt.Errorf("encoding kernel XML: %w", w.err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

type xmlWriter struct {
	enc *xml.Encoder
	err error
}

// start opens an element. attrs are name/value pairs; empty values are
// skipped.
func (w *xmlWriter) start(name string, attrs ...string) {
	if w.err != nil {
		return
	}
	el := xml.StartElement{Name: xml.Name{Local: name}}
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i+1] == "" {
			continue
		}
		el.Attr = append(el.Attr, xml.Attr{Name: xml.Name{Local: attrs[i]}, Value: attrs[i+1]})
	}
	w.err = w.enc.EncodeToken(el)
}

func (w *xmlWriter) end(name string) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *xmlWriter) leaf(name, text string, attrs ...string) {
	w.start(name, attrs...)
	if text != "" && w.err == nil {
		w.err = w.enc.EncodeToken(xml.CharData(text))
	}
	w.end(name)
}

func (w *xmlWriter) optional(name, text string) {
	if text != "" {
		w.leaf(name, text)
	}
}

func (w *xmlWriter) list(wrapper, name string, values []string) {
	if len(values) == 0 {
		return
	}
	w.start(wrapper)
	for _, v := range values {
		w.leaf(name, v)
	}
	w.end(wrapper)
}

func (w *xmlWriter) titles(titles []types.Title) {
	if len(titles) == 0 {
		return
	}
	w.start("titles")
	for _, t := range titles {
		w.leaf("title", t.Title, "xml:lang", t.Lang, "titleType", t.TitleType)
	}
	w.end("titles")
}

func (w *xmlWriter) agent(c types.Creator, nameElement string) {
	w.leaf(nameElement, c.Name, "nameType", c.NameType, "xml:lang", c.Lang)
	w.optional("givenName", c.GivenName)
	w.optional("familyName", c.FamilyName)
	for _, ni := range c.NameIdentifiers {
		w.leaf("nameIdentifier", ni.NameIdentifier, "nameIdentifierScheme", ni.NameIdentifierScheme, "schemeURI", ni.SchemeURI)
	}
	for _, a := range c.Affiliations {
		w.leaf("affiliation", a.Name,
			"affiliationIdentifier", a.AffiliationIdentifier,
			"affiliationIdentifierScheme", a.AffiliationIdentifierScheme,
			"schemeURI", a.SchemeURI)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (w *xmlWriter) geoLocation(g types.GeoLocation, kernel3 bool) {
	w.start("geoLocation")
	w.optional("geoLocationPlace", g.GeoLocationPlace)
	if p := g.GeoLocationPoint; p != nil {
		if kernel3 {
			w.leaf("geoLocationPoint", formatFloat(p.PointLatitude)+" "+formatFloat(p.PointLongitude))
		} else {
			w.point("geoLocationPoint", *p)
		}
	}
	if b := g.GeoLocationBox; b != nil {
		if kernel3 {
			w.leaf("geoLocationBox", formatFloat(b.SouthBoundLatitude)+" "+formatFloat(b.WestBoundLongitude)+" "+
				formatFloat(b.NorthBoundLatitude)+" "+formatFloat(b.EastBoundLongitude))
		} else {
			w.start("geoLocationBox")
			w.leaf("westBoundLongitude", formatFloat(b.WestBoundLongitude))
			w.leaf("eastBoundLongitude", formatFloat(b.EastBoundLongitude))
			w.leaf("southBoundLatitude", formatFloat(b.SouthBoundLatitude))
			w.leaf("northBoundLatitude", formatFloat(b.NorthBoundLatitude))
			w.end("geoLocationBox")
		}
	}
	if len(g.GeoLocationPolygon) > 0 && !kernel3 {
		w.start("geoLocationPolygon")
		for _, pt := range g.GeoLocationPolygon {
			switch {
			case pt.PolygonPoint != nil:
				w.point("polygonPoint", *pt.PolygonPoint)
			case pt.InPolygonPoint != nil:
				w.point("inPolygonPoint", *pt.InPolygonPoint)
			}
		}
		w.end("geoLocationPolygon")
	}
	w.end("geoLocation")
}

func (w *xmlWriter) point(name string, p types.GeoPoint) {
	w.start(name)
	w.leaf("pointLongitude", formatFloat(p.PointLongitude))
	w.leaf("pointLatitude", formatFloat(p.PointLatitude))
	w.end(name)
}

func (w *xmlWriter) relatedItem(it types.RelatedItem) {
	w.start("relatedItem", "relatedItemType", it.RelatedItemType, "relationType", it.RelationType)
	if id := it.RelatedItemIdentifier; id != nil {
		w.leaf("relatedItemIdentifier", id.RelatedItemIdentifier, "relatedItemIdentifierType", id.RelatedItemIdentifierType)
	}
	if len(it.Creators) > 0 {
		w.start("creators")
		for _, c := range it.Creators {
			w.start("creator")
			w.agent(c, "creatorName")
			w.end("creator")
		}
		w.end("creators")
	}
	w.titles(it.Titles)
	w.optional("publicationYear", it.PublicationYear)
	w.optional("volume", it.Volume)
	w.optional("issue", it.Issue)
	if it.Number != "" || it.NumberType != "" {
		w.leaf("number", it.Number, "numberType", it.NumberType)
	}
	w.optional("firstPage", it.FirstPage)
	w.optional("lastPage", it.LastPage)
	w.optional("publisher", it.Publisher)
	w.optional("edition", it.Edition)
	if len(it.Contributors) > 0 {
		w.start("contributors")
		for _, c := range it.Contributors {
			w.start("contributor", "contributorType", c.ContributorType)
			w.agent(c.Creator, "contributorName")
			w.end("contributor")
		}
		w.end("contributors")
	}
	w.end("relatedItem")
}
