package schemaorg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

func parseFixture(t *testing.T, name string) *types.Metadata {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	md, errs, err := Parse(raw)
	require.NoError(t, err)
	require.Empty(t, errs)
	require.NotNil(t, md)
	return md
}

func TestParse_Dataset(t *testing.T) {
	md := parseFixture(t, "dataset.jsonld")

	assert.Equal(t, "https://doi.org/10.5061/dryad.8515", md.Identifier)
	assert.Equal(t, types.Types{ResourceTypeGeneral: "Dataset", ResourceType: "DataPackage"}, md.Types)
	require.Len(t, md.Creators, 2)
	assert.Equal(t, "Ollomo, Benjamin", md.Creators[0].Name)
	assert.Equal(t, "ORCID", md.Creators[0].NameIdentifiers[0].NameIdentifierScheme)
	assert.Equal(t, "CIRMF", md.Creators[0].Affiliations[0].Name)
	assert.Equal(t, "Dryad Consortium", md.Creators[1].Name)
	assert.Equal(t, []string{"Phylogeny", "Malaria"}, md.Keywords())
	assert.Equal(t, "2011", md.PublicationYear)
	assert.Equal(t, "Dryad Digital Repository", md.PublisherName())
	assert.Equal(t, &types.GeoPoint{PointLatitude: -0.8, PointLongitude: 11.6}, md.GeoLocations[0].GeoLocationPoint)
	assert.Equal(t, types.RelatedIdentifier{
		RelatedIdentifier:     "10.1371/JOURNAL.PPAT.1000446",
		RelatedIdentifierType: "DOI",
		RelationType:          "References",
	}, md.RelatedIdentifiers[0])
}

func TestParse_Codemeta(t *testing.T) {
	md := parseFixture(t, "software.codemeta.json")

	assert.Equal(t, "https://doi.org/10.5281/zenodo.1234567", md.Identifier)
	assert.Equal(t, "Software", md.Types.ResourceTypeGeneral)
	assert.Equal(t, "2.1", md.Version)
	assert.Equal(t, []string{"https://github.com/example/maltree"}, md.ContentURL)
	assert.Equal(t, "Durand, Patrick", md.Creators[0].Name)
}

func TestParse_BadCoordinates(t *testing.T) {
	md, errs, err := Parse([]byte(`{"@type":"Dataset","spatialCoverage":{"geo":{"latitude":"north","longitude":1}}}`))
	require.NoError(t, err)
	require.NotNil(t, md)
	require.Len(t, errs, 1)
	assert.Equal(t, "spatialCoverage[0].geo.latitude", errs[0].Field)
}

func TestIsCodemeta(t *testing.T) {
	assert.True(t, IsCodemeta(CodemetaContext))
	assert.True(t, IsCodemeta([]any{"http://schema.org", "https://w3id.org/codemeta/3.0"}))
	assert.False(t, IsCodemeta("http://schema.org"))
	assert.False(t, IsCodemeta(nil))
}

func TestRender_ParsesBack(t *testing.T) {
	md := parseFixture(t, "dataset.jsonld")
	md.Identifier = "10.5061/DRYAD.8515"

	for _, profile := range []Profile{ProfileSchemaOrg, ProfileCodemeta} {
		out, err := Render(md, profile)
		require.NoError(t, err)

		back, errs, err := Parse(out)
		require.NoError(t, err)
		require.Empty(t, errs)
		assert.Equal(t, "https://doi.org/10.5061/dryad.8515", back.Identifier)
		assert.Equal(t, md.Creators, back.Creators)
		assert.Equal(t, md.Titles, back.Titles)
		assert.Equal(t, md.Keywords(), back.Keywords())
		assert.Equal(t, md.GeoLocations, back.GeoLocations)
		assert.Equal(t, md.Types, back.Types)
	}
}

func TestRender_PolygonAsGeoShape(t *testing.T) {
	var poly types.GeoPolygon
	for _, c := range [][2]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}} {
		poly = append(poly, types.GeoPolygonPoint{PolygonPoint: &types.GeoPoint{PointLatitude: c[0], PointLongitude: c[1]}})
	}
	inside := types.GeoPolygonPoint{InPolygonPoint: &types.GeoPoint{PointLatitude: 0.5, PointLongitude: 0.5}}
	md := &types.Metadata{
		Types:        types.Types{ResourceTypeGeneral: "Dataset"},
		GeoLocations: []types.GeoLocation{{GeoLocationPlace: "Square", GeoLocationPolygon: append(poly, inside)}},
	}

	out, err := Render(md, ProfileSchemaOrg)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"polygon": "0 0 0 1 1 1 1 0 0 0"`)

	back, errs, err := Parse(out)
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Len(t, back.GeoLocations, 1)
	assert.Equal(t, "Square", back.GeoLocations[0].GeoLocationPlace)
	assert.Equal(t, poly, back.GeoLocations[0].GeoLocationPolygon, "the inside point has no schema.org form")
}

func TestRender_Contexts(t *testing.T) {
	md := &types.Metadata{Types: types.Types{ResourceTypeGeneral: "Software"}}

	out, err := Render(md, ProfileCodemeta)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"@context": "`+CodemetaContext+`"`)
	assert.Contains(t, string(out), `"@type": "SoftwareSourceCode"`)

	out, err = Render(md, ProfileSchemaOrg)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"@context": "http://schema.org"`)
}
