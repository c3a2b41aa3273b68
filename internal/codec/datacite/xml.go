// Package datacite reads and writes the DataCite kernel XML schema
// (generations 3 and 4) and the DataCite JSON shape of the canonical model.
package datacite

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/mesh-intelligence/doireg/internal/codec/check"
	"github.com/mesh-intelligence/doireg/internal/codec/shape"
	"github.com/mesh-intelligence/doireg/internal/doi"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

func localName(name string) *xpath.Expr {
	return xpath.MustCompile("*[local-name()='" + name + "']")
}

func localPath(parent, child string) *xpath.Expr {
	return xpath.MustCompile("*[local-name()='" + parent + "']/*[local-name()='" + child + "']")
}

// Section queries, evaluated with the resource element as context.
var (
	exprIdentifier        = localName("identifier")
	exprCreators          = localPath("creators", "creator")
	exprTitles            = localPath("titles", "title")
	exprPublisher         = localName("publisher")
	exprPublicationYear   = localName("publicationYear")
	exprResourceType      = localName("resourceType")
	exprSubjects          = localPath("subjects", "subject")
	exprContributors      = localPath("contributors", "contributor")
	exprDates             = localPath("dates", "date")
	exprLanguage          = localName("language")
	exprAlternateIDs      = localPath("alternateIdentifiers", "alternateIdentifier")
	exprRelatedIDs        = localPath("relatedIdentifiers", "relatedIdentifier")
	exprSizes             = localPath("sizes", "size")
	exprFormats           = localPath("formats", "format")
	exprVersion           = localName("version")
	exprRights            = localPath("rightsList", "rights")
	exprDescriptions      = localPath("descriptions", "description")
	exprGeoLocations      = localPath("geoLocations", "geoLocation")
	exprFundingReferences = localPath("fundingReferences", "fundingReference")
	exprRelatedItems      = localPath("relatedItems", "relatedItem")
	exprFundingSection    = localName("fundingReferences")
	exprRelatedSection    = localName("relatedItems")
)

// ParseXML parses kernel XML. It returns an UnsupportedSchemaError for
// retired or unknown namespaces before looking at anything else. Otherwise
// it returns the metadata it could read together with its problems; a nil
// metadata means the document could not be read at all. Missing required
// elements are not problems here; check.Complete reports them.
func ParseXML(raw []byte) (*types.Metadata, []types.FieldError, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, []types.FieldError{{Code: types.CodeMalformed, Message: "invalid XML: " + err.Error()}}, nil
	}
	root := RootElement(doc)
	if root == nil || root.Data != "resource" {
		name := ""
		if root != nil {
			name = root.Data
		}
		return nil, []types.FieldError{{
			Code:    types.CodeMalformed,
			Message: fmt.Sprintf("Element '%s': No matching global declaration available for the validation root.", name),
		}}, nil
	}

	identifier := ""
	if n := xmlquery.QuerySelector(root, exprIdentifier); n != nil {
		identifier = doi.Normalize(n.InnerText())
	}
	ns, err := ResolveNamespace(RootNamespace(root), identifier)
	if err != nil {
		return nil, nil, err
	}

	p := &xmlParser{root: root, ns: ns, gen: check.VocabularyFor(ns).Generation}
	md := p.metadata()
	md.Identifier = identifier
	return md, append(p.errs, check.Fields(md)...), nil
}

// RootElement returns the document element.
func RootElement(doc *xmlquery.Node) *xmlquery.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

// RootNamespace returns the namespace URI of root, falling back to its
// default namespace declaration.
func RootNamespace(root *xmlquery.Node) string {
	if root.NamespaceURI != "" {
		return root.NamespaceURI
	}
	for _, a := range root.Attr {
		if a.Name.Space == "" && a.Name.Local == "xmlns" {
			return a.Value
		}
	}
	return ""
}

type xmlParser struct {
	root *xmlquery.Node
	ns   string
	gen  int
	errs []types.FieldError
}

func (p *xmlParser) add(field, code, msg string) {
	p.errs = append(p.errs, types.FieldError{Field: field, Code: code, Message: msg})
}

func (p *xmlParser) metadata() *types.Metadata {
	md := &types.Metadata{SchemaVersion: p.ns}

	if n := xmlquery.QuerySelector(p.root, exprIdentifier); n != nil {
		if t := attr(n, "identifierType"); t != "DOI" {
			p.add("doi.identifierType", types.CodeEnumeration,
				fmt.Sprintf("[facet 'enumeration'] The value '%s' is not an element of the set {'DOI'}.", t))
		}
	}
	for _, n := range xmlquery.QuerySelectorAll(p.root, exprCreators) {
		md.Creators = append(md.Creators, p.agent(n, "creatorName"))
	}
	for _, n := range xmlquery.QuerySelectorAll(p.root, exprTitles) {
		md.Titles = append(md.Titles, title(n))
	}
	if n := xmlquery.QuerySelector(p.root, exprPublisher); n != nil {
		md.Publisher = &types.Publisher{
			Name:                      text(n),
			Lang:                      attr(n, "lang"),
			SchemeURI:                 attr(n, "schemeURI"),
			PublisherIdentifier:       attr(n, "publisherIdentifier"),
			PublisherIdentifierScheme: attr(n, "publisherIdentifierScheme"),
		}
	}
	md.PublicationYear = text(xmlquery.QuerySelector(p.root, exprPublicationYear))
	if n := xmlquery.QuerySelector(p.root, exprResourceType); n != nil {
		md.Types = types.Types{ResourceTypeGeneral: attr(n, "resourceTypeGeneral"), ResourceType: text(n)}
	}
	for _, n := range xmlquery.QuerySelectorAll(p.root, exprSubjects) {
		md.Subjects = append(md.Subjects, types.Subject{
			Subject:            text(n),
			SubjectScheme:      attr(n, "subjectScheme"),
			SchemeURI:          attr(n, "schemeURI"),
			ValueURI:           attr(n, "valueURI"),
			ClassificationCode: attr(n, "classificationCode"),
			Lang:               attr(n, "lang"),
		})
	}
	for _, n := range xmlquery.QuerySelectorAll(p.root, exprContributors) {
		md.Contributors = append(md.Contributors, types.Contributor{
			ContributorType: attr(n, "contributorType"),
			Creator:         p.agent(n, "contributorName"),
		})
	}
	for _, n := range xmlquery.QuerySelectorAll(p.root, exprDates) {
		md.Dates = append(md.Dates, types.Date{
			Date:            text(n),
			DateType:        attr(n, "dateType"),
			DateInformation: attr(n, "dateInformation"),
		})
	}
	md.Language = text(xmlquery.QuerySelector(p.root, exprLanguage))
	for _, n := range xmlquery.QuerySelectorAll(p.root, exprAlternateIDs) {
		md.AlternateIdentifiers = append(md.AlternateIdentifiers, types.AlternateIdentifier{
			AlternateIdentifier:     text(n),
			AlternateIdentifierType: attr(n, "alternateIdentifierType"),
		})
	}
	for _, n := range xmlquery.QuerySelectorAll(p.root, exprRelatedIDs) {
		md.RelatedIdentifiers = append(md.RelatedIdentifiers, types.RelatedIdentifier{
			RelatedIdentifier:     text(n),
			RelatedIdentifierType: attr(n, "relatedIdentifierType"),
			RelationType:          attr(n, "relationType"),
			RelatedMetadataScheme: attr(n, "relatedMetadataScheme"),
			SchemeURI:             attr(n, "schemeURI"),
			SchemeType:            attr(n, "schemeType"),
			ResourceTypeGeneral:   attr(n, "resourceTypeGeneral"),
		})
	}
	for _, n := range xmlquery.QuerySelectorAll(p.root, exprSizes) {
		md.Sizes = append(md.Sizes, text(n))
	}
	for _, n := range xmlquery.QuerySelectorAll(p.root, exprFormats) {
		md.Formats = append(md.Formats, text(n))
	}
	md.Version = text(xmlquery.QuerySelector(p.root, exprVersion))
	for _, n := range xmlquery.QuerySelectorAll(p.root, exprRights) {
		md.RightsList = append(md.RightsList, types.Rights{
			Rights:                 text(n),
			RightsURI:              attr(n, "rightsURI"),
			RightsIdentifier:       attr(n, "rightsIdentifier"),
			RightsIdentifierScheme: attr(n, "rightsIdentifierScheme"),
			SchemeURI:              attr(n, "schemeURI"),
			Lang:                   attr(n, "lang"),
		})
	}
	for _, n := range xmlquery.QuerySelectorAll(p.root, exprDescriptions) {
		md.Descriptions = append(md.Descriptions, types.Description{
			Description:     shape.Block(n.InnerText()),
			DescriptionType: attr(n, "descriptionType"),
			Lang:            attr(n, "lang"),
		})
	}
	for _, n := range xmlquery.QuerySelectorAll(p.root, exprGeoLocations) {
		md.GeoLocations = append(md.GeoLocations, p.geoLocation(n, len(md.GeoLocations))...)
	}

	if p.gen < 4 {
		for _, e := range []struct {
			expr *xpath.Expr
			name string
		}{{exprFundingSection, "fundingReferences"}, {exprRelatedSection, "relatedItems"}} {
			if xmlquery.QuerySelector(p.root, e.expr) != nil {
				p.add(e.name, types.CodeNotAllowed, fmt.Sprintf("Element '{%s}%s': This element is not expected.", p.ns, e.name))
			}
		}
	}
	for _, n := range xmlquery.QuerySelectorAll(p.root, exprFundingReferences) {
		md.FundingReferences = append(md.FundingReferences, fundingReference(n))
	}
	for _, n := range xmlquery.QuerySelectorAll(p.root, exprRelatedItems) {
		md.RelatedItems = append(md.RelatedItems, p.relatedItem(n))
	}
	return md
}

func (p *xmlParser) agent(n *xmlquery.Node, nameElement string) types.Creator {
	var c types.Creator
	if name := child(n, nameElement); name != nil {
		c.Name = text(name)
		c.NameType = attr(name, "nameType")
		c.Lang = attr(name, "lang")
	}
	c.GivenName = text(child(n, "givenName"))
	c.FamilyName = text(child(n, "familyName"))
	for _, ni := range children(n, "nameIdentifier") {
		c.NameIdentifiers = append(c.NameIdentifiers, types.NameIdentifier{
			NameIdentifier:       text(ni),
			NameIdentifierScheme: attr(ni, "nameIdentifierScheme"),
			SchemeURI:            attr(ni, "schemeURI"),
		})
	}
	for _, af := range children(n, "affiliation") {
		c.Affiliations = append(c.Affiliations, types.Affiliation{
			Name:                        text(af),
			AffiliationIdentifier:       attr(af, "affiliationIdentifier"),
			AffiliationIdentifierScheme: attr(af, "affiliationIdentifierScheme"),
			SchemeURI:                   attr(af, "schemeURI"),
		})
	}
	return c
}

func title(n *xmlquery.Node) types.Title {
	return types.Title{Title: text(n), TitleType: attr(n, "titleType"), Lang: attr(n, "lang")}
}

// geoLocation reads one geoLocation element starting at index. Polygons
// after the first become polygon-only entries of their own.
func (p *xmlParser) geoLocation(n *xmlquery.Node, index int) []types.GeoLocation {
	path := fmt.Sprintf("geoLocations[%d]", index)
	g := types.GeoLocation{GeoLocationPlace: text(child(n, "geoLocationPlace"))}
	if pt := child(n, "geoLocationPoint"); pt != nil {
		var v []float64
		if child(pt, "pointLatitude") != nil || child(pt, "pointLongitude") != nil {
			v = p.floats(path+".geoLocationPoint", text(child(pt, "pointLatitude")), text(child(pt, "pointLongitude")))
		} else {
			v = p.floats(path+".geoLocationPoint", padFields(text(pt), 2)...)
		}
		g.GeoLocationPoint = &types.GeoPoint{PointLatitude: v[0], PointLongitude: v[1]}
	}
	if box := child(n, "geoLocationBox"); box != nil {
		var v []float64
		if child(box, "westBoundLongitude") != nil {
			v = p.floats(path+".geoLocationBox",
				text(child(box, "westBoundLongitude")), text(child(box, "eastBoundLongitude")),
				text(child(box, "southBoundLatitude")), text(child(box, "northBoundLatitude")))
		} else {
			// south west north east
			f := p.floats(path+".geoLocationBox", padFields(text(box), 4)...)
			v = []float64{f[1], f[3], f[0], f[2]}
		}
		g.GeoLocationBox = &types.GeoBox{
			WestBoundLongitude: v[0],
			EastBoundLongitude: v[1],
			SouthBoundLatitude: v[2],
			NorthBoundLatitude: v[3],
		}
	}

	polygons := children(n, "geoLocationPolygon")
	if len(polygons) > 0 && p.gen < 4 {
		p.add(path+".geoLocationPolygon", types.CodeNotAllowed,
			fmt.Sprintf("Element '{%s}geoLocationPolygon': This element is not expected.", p.ns))
		return []types.GeoLocation{g}
	}
	out := []types.GeoLocation{g}
	for i, poly := range polygons {
		parsed := p.polygon(poly, fmt.Sprintf("geoLocations[%d].geoLocationPolygon", index+i))
		if i == 0 {
			out[0].GeoLocationPolygon = parsed
			continue
		}
		out = append(out, types.GeoLocation{GeoLocationPolygon: parsed})
	}
	return out
}

func (p *xmlParser) polygon(n *xmlquery.Node, path string) types.GeoPolygon {
	var poly types.GeoPolygon
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if c.Data != "polygonPoint" && c.Data != "inPolygonPoint" {
			continue
		}
		pointPath := fmt.Sprintf("%s[%d].%s", path, len(poly), c.Data)
		v := p.floats(pointPath, text(child(c, "pointLatitude")), text(child(c, "pointLongitude")))
		pt := &types.GeoPoint{PointLatitude: v[0], PointLongitude: v[1]}
		if c.Data == "polygonPoint" {
			poly = append(poly, types.GeoPolygonPoint{PolygonPoint: pt})
		} else {
			poly = append(poly, types.GeoPolygonPoint{InPolygonPoint: pt})
		}
	}
	return poly
}

func (p *xmlParser) floats(path string, values ...string) []float64 {
	out := make([]float64, len(values))
	for i, s := range values {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			p.add(path, types.CodeFormat, fmt.Sprintf("'%s' is not a valid value of the atomic type 'xs:float'.", s))
			continue
		}
		out[i] = f
	}
	return out
}

func padFields(s string, n int) []string {
	f := strings.Fields(s)
	for len(f) < n {
		f = append(f, "")
	}
	return f[:n]
}

func fundingReference(n *xmlquery.Node) types.FundingReference {
	f := types.FundingReference{
		FunderName: text(child(n, "funderName")),
		AwardTitle: text(child(n, "awardTitle")),
	}
	if id := child(n, "funderIdentifier"); id != nil {
		f.FunderIdentifier = text(id)
		f.FunderIdentifierType = attr(id, "funderIdentifierType")
		f.SchemeURI = attr(id, "schemeURI")
	}
	if award := child(n, "awardNumber"); award != nil {
		f.AwardNumber = text(award)
		f.AwardURI = attr(award, "awardURI")
	}
	return f
}

func (p *xmlParser) relatedItem(n *xmlquery.Node) types.RelatedItem {
	it := types.RelatedItem{
		RelatedItemType: attr(n, "relatedItemType"),
		RelationType:    attr(n, "relationType"),
		PublicationYear: text(child(n, "publicationYear")),
		Volume:          text(child(n, "volume")),
		Issue:           text(child(n, "issue")),
		FirstPage:       text(child(n, "firstPage")),
		LastPage:        text(child(n, "lastPage")),
		Publisher:       text(child(n, "publisher")),
		Edition:         text(child(n, "edition")),
	}
	if id := child(n, "relatedItemIdentifier"); id != nil {
		it.RelatedItemIdentifier = &types.RelatedItemIdentifier{
			RelatedItemIdentifier:     text(id),
			RelatedItemIdentifierType: attr(id, "relatedItemIdentifierType"),
		}
	}
	if num := child(n, "number"); num != nil {
		it.Number = text(num)
		it.NumberType = attr(num, "numberType")
	}
	if cs := child(n, "creators"); cs != nil {
		for _, c := range children(cs, "creator") {
			it.Creators = append(it.Creators, p.agent(c, "creatorName"))
		}
	}
	if ts := child(n, "titles"); ts != nil {
		for _, t := range children(ts, "title") {
			it.Titles = append(it.Titles, title(t))
		}
	}
	if cs := child(n, "contributors"); cs != nil {
		for _, c := range children(cs, "contributor") {
			it.Contributors = append(it.Contributors, types.Contributor{
				ContributorType: attr(c, "contributorType"),
				Creator:         p.agent(c, "contributorName"),
			})
		}
	}
	return it
}

func child(n *xmlquery.Node, name string) *xmlquery.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			return c
		}
	}
	return nil
}

func children(n *xmlquery.Node, name string) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			out = append(out, c)
		}
	}
	return out
}

// attr matches on the local name only, so xml:lang is "lang".
func attr(n *xmlquery.Node, local string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Name.Local == local && a.Name.Space != "xmlns" {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

func text(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return shape.Text(n.InnerText())
}
