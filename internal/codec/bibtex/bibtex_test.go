package bibtex

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

func TestParse(t *testing.T) {
	raw, err := os.ReadFile("testdata/article.bib")
	require.NoError(t, err)

	md, errs, err := Parse(raw)
	require.NoError(t, err)
	require.Empty(t, errs)

	assert.Equal(t, "10.1371/journal.ppat.1000446", md.Identifier)
	assert.Equal(t, "JournalArticle", md.Types.ResourceTypeGeneral)
	assert.Equal(t, "A New Malaria Agent in African Hominids", md.MainTitle())
	require.Len(t, md.Creators, 3)
	assert.Equal(t, "Ollomo, Benjamin", md.Creators[0].Name)
	assert.Equal(t, "Renaud", md.Creators[1].FamilyName)
	assert.Equal(t, "François", md.Creators[1].GivenName)
	assert.Equal(t, types.NameTypeOrganizational, md.Creators[2].NameType)
	assert.Equal(t, "Centre International de Recherches Médicales de Franceville", md.Creators[2].Name)
	assert.Equal(t, "Public Library of Science", md.PublisherName())
	assert.Equal(t, "2009", md.PublicationYear)
	assert.Equal(t, "2009-05", md.DateOf(types.DateTypeIssued))
	assert.Equal(t, []string{"Malaria", "Phylogeny"}, md.Keywords())
	assert.Equal(t, "Plasmodium falciparum is the major human malaria agent & a public health problem.", md.Abstract())
	assert.Equal(t, "Creative Commons Attribution 4.0", md.RightsList[0].Rights)

	c := md.Container()
	require.NotNil(t, c)
	assert.Equal(t, "Journal", c.RelatedItemType)
	assert.Equal(t, "PLoS Pathogens", c.Titles[0].Title)
	assert.Equal(t, "5", c.Volume)
	assert.Equal(t, "5", c.Issue)
	assert.Equal(t, "e1000446", c.FirstPage)
	assert.Equal(t, "e1000452", c.LastPage)
}

func TestParse_KeyCarriesIdentifier(t *testing.T) {
	md, errs, err := Parse([]byte(`@book{https://doi.org/10.5061/dryad.8515, title="Data"}`))
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, "https://doi.org/10.5061/dryad.8515", md.Identifier)
	assert.Equal(t, "Book", md.Types.ResourceTypeGeneral)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"only comments", "% nothing here\n@comment{still nothing}"},
		{"unbalanced braces", `@article{key, title = {open}`},
		{"missing key comma", `@article{key title = {x}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, errs, err := Parse([]byte(tt.raw))
			require.NoError(t, err)
			assert.Nil(t, md)
			require.Len(t, errs, 1)
			assert.Equal(t, types.CodeMalformed, errs[0].Code)
		})
	}
}

func TestSplitAuthors(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Smith, J.", []string{"Smith, J."}},
		{"A and B AND C", []string{"A", "B", "C"}},
		{"{Barnes and Noble} and Ann Lee", []string{"{Barnes and Noble}", "Ann Lee"}},
		{"Anderson, Sandy", []string{"Anderson, Sandy"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := splitAuthors(tt.in)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender(t *testing.T) {
	md := &types.Metadata{
		Identifier: "10.5061/DRYAD.8515",
		Creators: []types.Creator{
			{Name: "Ollomo, Benjamin", NameType: types.NameTypePersonal, GivenName: "Benjamin", FamilyName: "Ollomo"},
			{Name: "Dryad & Co", NameType: types.NameTypeOrganizational},
		},
		Titles:          []types.Title{{Title: "Data from: A new malaria agent"}},
		Publisher:       &types.Publisher{Name: "Dryad"},
		PublicationYear: "2011",
		Types:           types.Types{ResourceTypeGeneral: "Dataset"},
		Subjects:        []types.Subject{{Subject: "Phylogeny"}, {Subject: "Malaria"}},
		Language:        "en",
		RightsList:      []types.Rights{{Rights: "CC0 1.0"}},
	}

	out, err := Render(md)
	require.NoError(t, err)

	want := `@misc{https://doi.org/10.5061/dryad.8515,
  doi = {10.5061/DRYAD.8515},
  url = {https://doi.org/10.5061/dryad.8515},
  author = {Ollomo, Benjamin and {Dryad \& Co}},
  keywords = {Phylogeny, Malaria},
  language = {en},
  title = {Data from: A new malaria agent},
  publisher = {Dryad},
  year = {2011},
  copyright = {CC0 1.0}
}
`
	assert.Equal(t, want, string(out))

	back, errs, err := Parse(out)
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, md.Creators, back.Creators)
	assert.Equal(t, md.Keywords(), back.Keywords())
	// misc is the generic entry type and does not carry Dataset back.
	assert.Equal(t, "Other", back.Types.ResourceTypeGeneral)
}
