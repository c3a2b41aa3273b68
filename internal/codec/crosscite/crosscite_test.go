package crosscite

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

func TestParse(t *testing.T) {
	raw, err := os.ReadFile("testdata/citation.json")
	require.NoError(t, err)

	md, errs, err := Parse(raw)
	require.NoError(t, err)
	require.Empty(t, errs)

	assert.Equal(t, "https://doi.org/10.5061/dryad.8515", md.Identifier)
	assert.Equal(t, types.Types{ResourceTypeGeneral: "Dataset", ResourceType: "DataPackage"}, md.Types)
	require.Len(t, md.Creators, 2)
	assert.Equal(t, "Ollomo, Benjamin", md.Creators[0].Name)
	assert.Equal(t, "CIRMF", md.Creators[0].Affiliations[0].Name)
	assert.Equal(t, types.NameTypeOrganizational, md.Creators[1].NameType)
	assert.Equal(t, "Data from: A new malaria agent in African hominids.", md.MainTitle())
	assert.Equal(t, "2011", md.PublicationYear)
	assert.Equal(t, "2011-02-01", md.DateOf(types.DateTypeIssued))
	assert.Equal(t, []string{"Phylogeny", "Malaria"}, md.Keywords())
	assert.Equal(t, "Plasmodium falciparum is the major human malaria agent.", md.Abstract())
	assert.Equal(t, "1", md.Version)
	assert.Equal(t, "https://creativecommons.org/publicdomain/zero/1.0/", md.RightsList[0].RightsURI)
	require.NotNil(t, md.Container())
	assert.Empty(t, md.SchemaVersion)
}

func TestParse_Malformed(t *testing.T) {
	md, errs, err := Parse([]byte(`{"author": 5}`))
	require.NoError(t, err)
	assert.Nil(t, md)
	require.Len(t, errs, 1)
	assert.Equal(t, types.CodeMalformed, errs[0].Code)
}

func TestRender_ParsesBack(t *testing.T) {
	md := &types.Metadata{
		Identifier:      "10.5061/DRYAD.8515",
		Creators:        []types.Creator{{Name: "Ollomo, Benjamin", NameType: "Personal", GivenName: "Benjamin", FamilyName: "Ollomo"}},
		Contributors:    []types.Contributor{{ContributorType: "Editor", Creator: types.Creator{Name: "Durand, Patrick"}}},
		Titles:          []types.Title{{Title: "Data from: A new malaria agent in African hominids."}},
		Publisher:       &types.Publisher{Name: "Dryad Digital Repository"},
		PublicationYear: "2011",
		Types:           types.Types{ResourceTypeGeneral: "Dataset"},
	}

	out, err := Render(md)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"id": "https://doi.org/10.5061/dryad.8515"`)
	assert.Contains(t, string(out), `"publication_year": "2011"`)

	back, errs, err := Parse(out)
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, "10.5061/dryad.8515", back.Identifier)
	assert.Equal(t, md.Creators, back.Creators)
	assert.Equal(t, md.Titles, back.Titles)
	assert.Equal(t, md.Publisher, back.Publisher)
	assert.Equal(t, md.Types, back.Types)
	require.Len(t, back.Contributors, 1)
	assert.Equal(t, "Durand, Patrick", back.Contributors[0].Name)
}
