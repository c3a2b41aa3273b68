package datacite

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/doireg/internal/codec/check"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return b
}

func TestParseXML_Kernel4(t *testing.T) {
	md, errs, err := ParseXML(fixture(t, "kernel4.xml"))
	require.NoError(t, err)
	require.Empty(t, errs)
	require.NotNil(t, md)

	assert.Equal(t, "10.5061/DRYAD.8515", md.Identifier)
	assert.Equal(t, types.NamespaceKernel4, md.SchemaVersion)
	require.Len(t, md.Creators, 2)
	assert.Equal(t, "Ollomo, Benjamin", md.Creators[0].Name)
	assert.Equal(t, "Personal", md.Creators[0].NameType)
	assert.Equal(t, "Centre International de Recherches Médicales de Franceville", md.Creators[0].Affiliations[0].Name)
	assert.Equal(t, "ORCID", md.Creators[1].NameIdentifiers[0].NameIdentifierScheme)
	assert.Equal(t, "en", md.Titles[0].Lang)
	assert.Equal(t, "Dryad Digital Repository", md.PublisherName())
	assert.Equal(t, types.Types{ResourceTypeGeneral: "Dataset", ResourceType: "DataPackage"}, md.Types)
	assert.Equal(t, []string{"Phylogeny", "Malaria"}, md.Keywords())
	assert.Equal(t, "2011-02-01", md.DateOf(types.DateTypeIssued))
	assert.Equal(t, &types.GeoPoint{PointLatitude: -0.8, PointLongitude: 11.6}, md.GeoLocations[0].GeoLocationPoint)
	assert.Equal(t, "ANR-09-BLAN-0001", md.FundingReferences[0].AwardNumber)

	c := md.Container()
	require.NotNil(t, c)
	assert.Equal(t, "PLoS Pathogens", c.Titles[0].Title)
	assert.Equal(t, "1553-7366", c.RelatedItemIdentifier.RelatedItemIdentifier)
}

func TestParseXML_Kernel3(t *testing.T) {
	md, errs, err := ParseXML(fixture(t, "kernel3.xml"))
	require.NoError(t, err)
	require.Empty(t, errs)

	assert.Equal(t, types.NamespaceKernel3, md.SchemaVersion)
	assert.Equal(t, "Funder", md.Contributors[0].ContributorType)
	g := md.GeoLocations[0]
	assert.Equal(t, &types.GeoPoint{PointLatitude: -0.8, PointLongitude: 11.6}, g.GeoLocationPoint)
	assert.Equal(t, &types.GeoBox{
		SouthBoundLatitude: -3.9,
		WestBoundLongitude: 8.7,
		NorthBoundLatitude: 2.3,
		EastBoundLongitude: 14.5,
	}, g.GeoLocationBox)
}

func TestParseXML_Kernel2IsRejected(t *testing.T) {
	md, errs, err := ParseXML(fixture(t, "kernel2.xml"))
	assert.Nil(t, md)
	assert.Empty(t, errs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUnsupportedSchemaVersion))
	assert.Equal(t, "DOI 10.5061/DRYAD.8515: Schema http://datacite.org/schema/kernel-2.2 is no longer supported", err.Error())
}

func TestParseXML_LowercaseNameType(t *testing.T) {
	raw := strings.Replace(string(fixture(t, "kernel4.xml")),
		`<creatorName nameType="Personal">Ollomo`, `<creatorName nameType="personal">Ollomo`, 1)

	md, errs, err := ParseXML([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, md)
	require.Len(t, errs, 1)
	assert.Equal(t, "creators[0].nameType", errs[0].Field)
	assert.Equal(t, types.CodeEnumeration, errs[0].Code)
	assert.Equal(t, "[facet 'enumeration'] The value 'personal' is not an element of the set {'Organizational', 'Personal'}.", errs[0].Message)
}

func TestParseXML_MissingCreatorsIsLeftToCompleteness(t *testing.T) {
	raw := string(fixture(t, "kernel4.xml"))
	start := strings.Index(raw, "  <creators>")
	end := strings.Index(raw, "</creators>\n") + len("</creators>\n")
	raw = raw[:start] + raw[end:]

	md, errs, err := ParseXML([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Empty(t, errs)
	assert.Empty(t, md.Creators)
	assert.Equal(t, "Dryad Digital Repository", md.PublisherName())

	missing := check.Complete(md)
	require.Len(t, missing, 1)
	assert.Equal(t, "creators", missing[0].Field)
	assert.Equal(t, "Missing child element(s). Expected is ( {http://datacite.org/schema/kernel-4}creator ).", missing[0].Message)
}

func TestParseXML_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not xml", "<resource"},
		{"wrong root", `<?xml version="1.0"?><record xmlns="http://datacite.org/schema/kernel-4"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, errs, err := ParseXML([]byte(tt.raw))
			require.NoError(t, err)
			assert.Nil(t, md)
			require.Len(t, errs, 1)
			assert.Equal(t, types.CodeMalformed, errs[0].Code)
		})
	}
}

func TestParseXML_FundingNotAllowedInKernel3(t *testing.T) {
	raw := strings.Replace(string(fixture(t, "kernel3.xml")), "</resource>",
		"<fundingReferences><fundingReference><funderName>NSF</funderName></fundingReference></fundingReferences></resource>", 1)

	md, errs, err := ParseXML([]byte(raw))
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, types.CodeNotAllowed, errs[0].Code)
	assert.Equal(t, "NSF", md.FundingReferences[0].FunderName)
}

func TestRenderXML_RoundTrip(t *testing.T) {
	for _, name := range []string{"kernel4.xml", "kernel3.xml"} {
		t.Run(name, func(t *testing.T) {
			md, errs, err := ParseXML(fixture(t, name))
			require.NoError(t, err)
			require.Empty(t, errs)

			out, err := RenderXML(md)
			require.NoError(t, err)

			again, errs, err := ParseXML(out)
			require.NoError(t, err)
			require.Empty(t, errs, string(out))
			assert.Equal(t, md, again)
		})
	}
}

func TestParseXML_Polygons(t *testing.T) {
	md, errs, err := ParseXML(fixture(t, "kernel4-polygon.xml"))
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Len(t, md.GeoLocations, 3, "the second polygon of one geoLocation gets its own entry")

	g := md.GeoLocations[0]
	assert.Equal(t, "Northern Illinois", g.GeoLocationPlace)
	require.Len(t, g.GeoLocationPolygon, 6)
	vs := g.GeoLocationPolygon.Vertices()
	require.Len(t, vs, 5)
	assert.Equal(t, types.GeoPoint{PointLatitude: 42.4935265, PointLongitude: -87.812664}, vs[0])
	assert.Equal(t, vs[0], vs[4])
	assert.Equal(t, &types.GeoPoint{PointLatitude: 42.2195267, PointLongitude: -88.2960624}, g.GeoLocationPolygon.Inside())

	assert.Len(t, md.GeoLocations[1].GeoLocationPolygon, 4)
	assert.Equal(t, types.GeoPoint{PointLatitude: 10, PointLongitude: 10}, md.GeoLocations[2].GeoLocationPolygon.Vertices()[0])
	assert.Empty(t, md.GeoLocations[2].GeoLocationPlace)
}

func TestRenderXML_PolygonRoundTrip(t *testing.T) {
	md, _, err := ParseXML(fixture(t, "kernel4-polygon.xml"))
	require.NoError(t, err)

	out, err := RenderXML(md)
	require.NoError(t, err)
	s := string(out)
	assert.Equal(t, 13, strings.Count(s, "<polygonPoint>"))
	assert.Equal(t, 1, strings.Count(s, "<inPolygonPoint>"))

	again, errs, err := ParseXML(out)
	require.NoError(t, err)
	require.Empty(t, errs, s)
	assert.Equal(t, md, again)

	b, err := RenderJSON(md)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"geoLocationPolygon"`)
	fromJSON, errs, err := ParseJSON(b)
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, md.GeoLocations, fromJSON.GeoLocations)
}

func TestParseXML_PolygonNotAllowedInKernel3(t *testing.T) {
	raw := strings.Replace(string(fixture(t, "kernel3.xml")), "<geoLocationPoint>",
		"<geoLocationPolygon><polygonPoint><pointLatitude>1</pointLatitude><pointLongitude>1</pointLongitude></polygonPoint></geoLocationPolygon><geoLocationPoint>", 1)

	md, errs, err := ParseXML([]byte(raw))
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "geoLocations[0].geoLocationPolygon", errs[0].Field)
	assert.Equal(t, types.CodeNotAllowed, errs[0].Code)
	assert.Empty(t, md.GeoLocations[0].GeoLocationPolygon)
}

func TestParseJSON_PolygonWithStringCoordinates(t *testing.T) {
	md, errs, err := ParseJSON([]byte(`{"doi": "10.14454/10703", "geoLocations": [{"geoLocationPolygon": [
		{"polygonPoint": {"pointLatitude": "42.4935265", "pointLongitude": "-87.812664"}},
		{"polygonPoint": {"pointLatitude": "42.4975767", "pointLongitude": "-88.5872001"}},
		{"polygonPoint": {"pointLatitude": 41.5550023, "pointLongitude": -88.6915703}},
		{"polygonPoint": {"pointLatitude": 41.4624467, "pointLongitude": -87.5270195}},
		{"polygonPoint": {"pointLatitude": 42.4935265, "pointLongitude": -87.812664}},
		{"inPolygonPoint": {"pointLatitude": "42.2195267", "pointLongitude": "-88.2960624"}}
	]}]}`))
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Len(t, md.GeoLocations, 1)
	poly := md.GeoLocations[0].GeoLocationPolygon
	assert.Len(t, poly.Vertices(), 5)
	assert.Equal(t, &types.GeoPoint{PointLatitude: 42.4935265, PointLongitude: -87.812664}, poly[0].PolygonPoint)
	assert.Equal(t, &types.GeoPoint{PointLatitude: 42.2195267, PointLongitude: -88.2960624}, poly.Inside())
}

func TestRenderXML_RootAttributes(t *testing.T) {
	md, _, err := ParseXML(fixture(t, "kernel4.xml"))
	require.NoError(t, err)
	md.SchemaVersion = ""

	out, err := RenderXML(md)
	require.NoError(t, err)
	s := string(out)
	assert.True(t, strings.HasPrefix(s, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, s, `<resource xmlns="http://datacite.org/schema/kernel-4" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="http://datacite.org/schema/kernel-4 http://schema.datacite.org/meta/kernel-4/metadata.xsd">`)
	assert.Contains(t, s, `<title xml:lang="en">`)
	assert.Less(t, strings.Index(s, "<identifier"), strings.Index(s, "<creators>"))
	assert.Less(t, strings.Index(s, "<publisher>"), strings.Index(s, "<publicationYear>"))
}

func TestRenderXML_UnsupportedSchema(t *testing.T) {
	_, err := RenderXML(&types.Metadata{Identifier: "10.5061/X", SchemaVersion: "http://datacite.org/schema/kernel-2.2"})
	assert.ErrorIs(t, err, types.ErrUnsupportedSchemaVersion)
}

func TestParseJSON_Envelope(t *testing.T) {
	md, errs, err := ParseJSON(fixture(t, "kernel4.json"))
	require.NoError(t, err)
	require.Empty(t, errs)

	assert.Equal(t, "10.5061/DRYAD.8515", md.Identifier)
	require.Len(t, md.Creators, 1)
	assert.Equal(t, "CIRMF", md.Creators[0].Affiliations[0].Name)
	assert.Equal(t, "2011", md.PublicationYear)
	assert.Equal(t, "Dryad Digital Repository", md.PublisherName())
}

func TestParseJSON_SchemaVersion(t *testing.T) {
	md, _, err := ParseJSON([]byte(`{"doi":"10.5061/x","titles":[{"title":"t"}]}`))
	require.NoError(t, err)
	assert.Equal(t, types.NamespaceKernel4, md.SchemaVersion)

	_, _, err = ParseJSON([]byte(`{"doi":"10.5061/x","schemaVersion":"http://datacite.org/schema/kernel-2.2"}`))
	assert.ErrorIs(t, err, types.ErrUnsupportedSchemaVersion)
}

func TestJSON_MatchesXML(t *testing.T) {
	fromXML, _, err := ParseXML(fixture(t, "kernel4.xml"))
	require.NoError(t, err)

	b, err := RenderJSON(fromXML)
	require.NoError(t, err)
	fromJSON, errs, err := ParseJSON(b)
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, fromXML, fromJSON)
}
