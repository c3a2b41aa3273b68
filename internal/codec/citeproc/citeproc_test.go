package citeproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

const article = `{
  "type": "article-journal",
  "id": "https://doi.org/10.1371/journal.ppat.1000446",
  "author": [{"family": "Ollomo", "given": "Benjamin"}, {"literal": "Dryad Consortium"}],
  "issued": {"date-parts": [["2009", 5, 29]]},
  "title": "A new malaria agent in African hominids",
  "container-title": "PLoS Pathogens",
  "ISSN": "1553-7366",
  "volume": 5,
  "issue": "5",
  "page": "e1000446",
  "publisher": "Public Library of Science",
  "categories": ["Malaria"]
}`

func TestParse(t *testing.T) {
	md, errs, err := Parse([]byte(article))
	require.NoError(t, err)
	require.Empty(t, errs)

	assert.Equal(t, "https://doi.org/10.1371/journal.ppat.1000446", md.Identifier)
	assert.Equal(t, "JournalArticle", md.Types.ResourceTypeGeneral)
	assert.Equal(t, "Ollomo, Benjamin", md.Creators[0].Name)
	assert.Equal(t, "Dryad Consortium", md.Creators[1].Name)
	assert.Equal(t, "2009", md.PublicationYear)
	assert.Equal(t, "2009-05-29", md.DateOf(types.DateTypeIssued))
	assert.Equal(t, "Public Library of Science", md.PublisherName())

	c := md.Container()
	require.NotNil(t, c)
	assert.Equal(t, "PLoS Pathogens", c.Titles[0].Title)
	assert.Equal(t, "5", c.Volume)
	assert.Equal(t, "e1000446", c.FirstPage)
	assert.Equal(t, "1553-7366", c.RelatedItemIdentifier.RelatedItemIdentifier)
}

func TestParse_ListAndErrors(t *testing.T) {
	md, errs, err := Parse([]byte(`[` + article + `]`))
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, "A new malaria agent in African hominids", md.MainTitle())

	tests := []struct {
		name string
		raw  string
	}{
		{"empty list", `[]`},
		{"not json", `{`},
		{"bad date", `{"type":"book","issued":{"date-parts":[["spring"]]}}`},
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

func TestDates(t *testing.T) {
	assert.Equal(t, &Date{DateParts: [][]int{{2011, 2, 1}}}, NewDate("2011-02-01"))
	assert.Equal(t, &Date{DateParts: [][]int{{2011, 2, 1}}}, NewDate("2011-02-01T10:00:00Z"))
	assert.Equal(t, &Date{DateParts: [][]int{{2011}}}, NewDate("2011"))
	assert.Nil(t, NewDate(""))
	assert.Equal(t, "2011-02", (&Date{DateParts: [][]int{{2011, 2}}}).String())
	assert.Equal(t, "", (*Date)(nil).String())
}

func TestRender_ParsesBack(t *testing.T) {
	md, _, err := Parse([]byte(article))
	require.NoError(t, err)
	md.Identifier = "10.1371/JOURNAL.PPAT.1000446"

	out, err := Render(md)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"DOI": "10.1371/journal.ppat.1000446"`)
	assert.Contains(t, string(out), `"type": "article-journal"`)

	back, errs, err := Parse(out)
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, "10.1371/journal.ppat.1000446", back.Identifier)
	assert.Equal(t, md.Creators, back.Creators)
	assert.Equal(t, md.Dates, back.Dates)
	assert.Equal(t, md.RelatedItems, back.RelatedItems)
}

func TestItemOf_DefaultType(t *testing.T) {
	it := ItemOf(&types.Metadata{PublicationYear: "2011"})
	assert.Equal(t, "article", it.Type)
	assert.Equal(t, &Date{DateParts: [][]int{{2011}}}, it.Issued)
}
