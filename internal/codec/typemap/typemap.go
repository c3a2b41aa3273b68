// Package typemap translates the general resource type of the canonical
// model to and from the type vocabularies of schema.org, CSL, BibTeX and
// RIS. Unmapped general types fall back to CreativeWork, article, misc and
// GEN respectively.
package typemap

import "strings"

// Fallbacks used when a general type has no specific translation.
const (
	DefaultSchemaOrg = "CreativeWork"
	DefaultCSL       = "article"
	DefaultBibTeX    = "misc"
	DefaultRIS       = "GEN"
)

type row struct {
	general   string
	schemaOrg string
	csl       string
	bibtex    string
	ris       string
}

// The first row that mentions a native type wins on the way back, so more
// specific general types come first.
var table = []row{
	{"JournalArticle", "ScholarlyArticle", "article-journal", "article", "JOUR"},
	{"Dataset", "Dataset", "dataset", "misc", "DATA"},
	{"Software", "SoftwareSourceCode", "software", "misc", "COMP"},
	{"Book", "Book", "book", "book", "BOOK"},
	{"BookChapter", "Chapter", "chapter", "inbook", "CHAP"},
	{"ConferencePaper", "ScholarlyArticle", "paper-conference", "inproceedings", "CPAPER"},
	{"ConferenceProceeding", "Book", "book", "proceedings", "CONF"},
	{"Dissertation", "Thesis", "thesis", "phdthesis", "THES"},
	{"Report", "Report", "report", "techreport", "RPRT"},
	{"Preprint", "ScholarlyArticle", "article", "misc", "INPR"},
	{"Journal", "Periodical", "periodical", "misc", "JFULL"},
	{"Audiovisual", "MediaObject", "motion_picture", "misc", "MPCT"},
	{"Image", "ImageObject", "graphic", "misc", "FIGURE"},
	{"Sound", "AudioObject", "song", "misc", "SOUND"},
	{"Event", "Event", "event", "misc", "GEN"},
	{"Standard", "CreativeWork", "standard", "misc", "STAND"},
	{"ComputationalNotebook", "SoftwareSourceCode", "software", "misc", "COMP"},
	{"InteractiveResource", "WebPage", "webpage", "misc", "ELEC"},
	{"Service", "Service", "", "", ""},
	{"Collection", "Collection", "", "", ""},
	{"Text", "ScholarlyArticle", "article-journal", "article", "RPRT"},
	{"DataPaper", "ScholarlyArticle", "article-journal", "article", "JOUR"},
	{"Other", DefaultSchemaOrg, DefaultCSL, DefaultBibTeX, DefaultRIS},
}

var (
	byGeneral     = map[string]row{}
	fromSchemaOrg = map[string]string{}
	fromCSL       = map[string]string{}
	fromBibTeX    = map[string]string{}
	fromRIS       = map[string]string{}
)

func init() {
	for _, r := range table {
		byGeneral[r.general] = r
		first(fromSchemaOrg, r.schemaOrg, r.general)
		first(fromCSL, r.csl, r.general)
		first(fromBibTeX, r.bibtex, r.general)
		first(fromRIS, r.ris, r.general)
	}
	// Generic native types translate to Other rather than to the first
	// specific row that happens to share them.
	fromSchemaOrg[DefaultSchemaOrg] = "Other"
	fromCSL[DefaultCSL] = "Other"
	fromBibTeX[DefaultBibTeX] = "Other"
	fromRIS[DefaultRIS] = "Other"
}

func first(m map[string]string, native, general string) {
	if native == "" {
		return
	}
	if _, ok := m[native]; !ok {
		m[native] = general
	}
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// SchemaOrg returns the schema.org @type for a general type.
func SchemaOrg(general string) string { return or(byGeneral[general].schemaOrg, DefaultSchemaOrg) }

// CSL returns the CSL item type for a general type.
func CSL(general string) string { return or(byGeneral[general].csl, DefaultCSL) }

// BibTeX returns the BibTeX entry type for a general type.
func BibTeX(general string) string { return or(byGeneral[general].bibtex, DefaultBibTeX) }

// RIS returns the RIS TY value for a general type.
func RIS(general string) string { return or(byGeneral[general].ris, DefaultRIS) }

// FromSchemaOrg maps a schema.org @type back to a general type. Unknown
// types yield "".
func FromSchemaOrg(t string) string { return fromSchemaOrg[t] }

// FromCSL maps a CSL item type back to a general type.
func FromCSL(t string) string { return fromCSL[t] }

// FromBibTeX maps a BibTeX entry type, case-insensitively, back to a
// general type.
func FromBibTeX(t string) string { return fromBibTeX[strings.ToLower(t)] }

// FromRIS maps a RIS TY value back to a general type.
func FromRIS(t string) string { return fromRIS[strings.ToUpper(t)] }
