// Package citation renders formatted citation text. Styles and locale
// terms are loaded from embedded YAML; unknown styles fall back to apa and
// unknown locales to the closest supported one, else en-US.
package citation

import (
	"bytes"
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/doireg/internal/codec/shape"
	"github.com/mesh-intelligence/doireg/internal/doi"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

// Defaults used when a requested style or locale is unknown.
const (
	DefaultStyle  = "apa"
	DefaultLocale = "en-US"
)

//go:embed styles.yaml
var stylesYAML []byte

//go:embed locales.yaml
var localesYAML []byte

type style struct {
	Title         string `yaml:"title"`
	Names         string `yaml:"names"`
	Delimiter     string `yaml:"delimiter"`
	Pair          string `yaml:"pair"`
	Last          string `yaml:"last"`
	EtAlMin       int    `yaml:"et_al_min"`
	EtAlUseFirst  int    `yaml:"et_al_use_first"`
	EtAlDelimiter string `yaml:"et_al_delimiter"`
	Template      string `yaml:"template"`

	tmpl *template.Template
}

// Terms are the locale-dependent words a template may use.
type Terms struct {
	Tag           string            `yaml:"tag"`
	And           string            `yaml:"and"`
	EtAl          string            `yaml:"et_al"`
	NoDate        string            `yaml:"no_date"`
	Version       string            `yaml:"version"`
	AvailableFrom string            `yaml:"available_from"`
	AvailableAt   string            `yaml:"available_at"`
	Types         map[string]string `yaml:"types"`
}

var (
	styles  map[string]*style
	locales []Terms
	matcher language.Matcher
)

var funcs = template.FuncMap{"dot": dot}

func init() {
	if err := yaml.Unmarshal(stylesYAML, &styles); err != nil {
		panic(fmt.Sprintf("citation styles: %v", err))
	}
	for name, s := range styles {
		s.tmpl = template.Must(template.New(name).Funcs(funcs).Parse(s.Template))
	}
	if err := yaml.Unmarshal(localesYAML, &locales); err != nil {
		panic(fmt.Sprintf("citation locales: %v", err))
	}
	tags := make([]language.Tag, len(locales))
	for i, l := range locales {
		tags[i] = language.MustParse(l.Tag)
	}
	matcher = language.NewMatcher(tags)
}

// Styles lists the supported style names.
func Styles() []string {
	names := make([]string, 0, len(styles))
	for name := range styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Locales lists the supported locale tags, fallback first.
func Locales() []string {
	tags := make([]string, len(locales))
	for i, l := range locales {
		tags[i] = l.Tag
	}
	return tags
}

// ResolveStyle returns name when it is a known style and apa otherwise.
func ResolveStyle(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := styles[name]; ok {
		return name
	}
	return DefaultStyle
}

// ResolveLocale returns the terms of the supported locale closest to tag.
func ResolveLocale(tag string) Terms {
	t, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return locales[0]
	}
	_, i, conf := matcher.Match(t)
	if conf == language.No {
		return locales[0]
	}
	return locales[i]
}

// entry is the data handed to a style template.
type entry struct {
	Authors   string
	Year      string
	Title     string
	Version   string
	Genre     string
	Container string
	Volume    string
	Issue     string
	Pages     string
	Publisher string
	DOI       string
	URL       string
	T         Terms
}

var (
	spaces     = regexp.MustCompile(`\s+`)
	beforeStop = regexp.MustCompile(`\s+([.,;:])`)
	doubleStop = regexp.MustCompile(`\.{2,}`)
)

// Render formats md as one citation in the requested style and locale.
func Render(md *types.Metadata, opts types.RenderOptions) ([]byte, error) {
	st := styles[ResolveStyle(opts.Style)]
	terms := ResolveLocale(opts.Locale)

	e := entry{
		Authors:   formatNames(md.Creators, st, terms),
		Year:      md.PublicationYear,
		Title:     md.MainTitle(),
		Version:   md.Version,
		Genre:     terms.Types[md.Types.ResourceTypeGeneral],
		Publisher: md.PublisherName(),
		T:         terms,
	}
	if e.Year == "" {
		e.Year = terms.NoDate
	}
	if md.Identifier != "" {
		e.DOI = strings.ToLower(doi.Normalize(md.Identifier))
		e.URL = doi.URL(md.Identifier)
	} else if len(md.ContentURL) > 0 {
		e.URL = md.ContentURL[0]
	}
	if c := md.Container(); c != nil {
		if len(c.Titles) > 0 {
			e.Container = c.Titles[0].Title
		}
		e.Volume, e.Issue = c.Volume, c.Issue
		e.Pages = c.FirstPage
		if c.LastPage != "" {
			e.Pages += "-" + c.LastPage
		}
	}

	var buf bytes.Buffer
	if err := st.tmpl.Execute(&buf, e); err != nil {
		return nil, fmt.Errorf("rendering %s citation: %w", st.tmpl.Name(), err)
	}
	out := spaces.ReplaceAllString(buf.String(), " ")
	out = beforeStop.ReplaceAllString(out, "$1")
	out = doubleStop.ReplaceAllString(out, ".")
	return []byte(strings.TrimSpace(out)), nil
}

// dot ends s with a period unless it already ends with punctuation.
func dot(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s[len(s)-1:], ".?!") {
		return s
	}
	return s + "."
}

func formatNames(creators []types.Creator, st *style, terms Terms) string {
	var names []string
	for i, c := range creators {
		names = append(names, formatName(c, st.Names, i))
	}
	if len(names) == 0 {
		return ""
	}
	if st.EtAlMin > 0 && len(names) >= st.EtAlMin {
		return strings.Join(names[:st.EtAlUseFirst], st.Delimiter) + st.EtAlDelimiter + terms.EtAl
	}
	and := func(s string) string { return strings.ReplaceAll(s, "{and}", terms.And) }
	switch len(names) {
	case 1:
		return names[0]
	case 2:
		return names[0] + and(st.Pair) + names[1]
	}
	return strings.Join(names[:len(names)-1], st.Delimiter) + and(st.Last) + names[len(names)-1]
}

// formatName renders one creator. Organizations and names that cannot be
// split are used literally.
func formatName(c types.Creator, form string, position int) string {
	family, given := shape.PersonParts(c)
	if family == "" {
		return c.Name
	}
	if given == "" {
		return family
	}
	switch form {
	case "family-initials":
		return family + ", " + shape.Initials(given, false)
	case "initials-family":
		return shape.Initials(given, false) + " " + family
	case "family-compact":
		return family + " " + shape.Initials(given, true)
	case "family-given-first":
		if position == 0 {
			return family + ", " + given
		}
		return given + " " + family
	}
	return family + ", " + given
}
