package typemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForward(t *testing.T) {
	tests := []struct {
		general   string
		schemaOrg string
		csl       string
		bibtex    string
		ris       string
	}{
		{"Dataset", "Dataset", "dataset", "misc", "DATA"},
		{"JournalArticle", "ScholarlyArticle", "article-journal", "article", "JOUR"},
		{"Software", "SoftwareSourceCode", "software", "misc", "COMP"},
		{"Service", "Service", DefaultCSL, DefaultBibTeX, DefaultRIS},
		{"", DefaultSchemaOrg, DefaultCSL, DefaultBibTeX, DefaultRIS},
		{"Unheard", DefaultSchemaOrg, DefaultCSL, DefaultBibTeX, DefaultRIS},
	}
	for _, tt := range tests {
		t.Run(tt.general, func(t *testing.T) {
			assert.Equal(t, tt.schemaOrg, SchemaOrg(tt.general))
			assert.Equal(t, tt.csl, CSL(tt.general))
			assert.Equal(t, tt.bibtex, BibTeX(tt.general))
			assert.Equal(t, tt.ris, RIS(tt.general))
		})
	}
}

func TestReverse(t *testing.T) {
	assert.Equal(t, "JournalArticle", FromSchemaOrg("ScholarlyArticle"))
	assert.Equal(t, "Dataset", FromSchemaOrg("Dataset"))
	assert.Equal(t, "Other", FromSchemaOrg("CreativeWork"))
	assert.Equal(t, "", FromSchemaOrg("Recipe"))

	assert.Equal(t, "JournalArticle", FromCSL("article-journal"))
	assert.Equal(t, "Other", FromCSL("article"))

	assert.Equal(t, "BookChapter", FromBibTeX("InBook"))
	assert.Equal(t, "Other", FromBibTeX("misc"))

	assert.Equal(t, "Dataset", FromRIS("DATA"))
	assert.Equal(t, "Other", FromRIS("gen"))
}
