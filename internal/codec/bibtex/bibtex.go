// Package bibtex reads and writes BibTeX entries.
package bibtex

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/doireg/internal/codec/shape"
	"github.com/mesh-intelligence/doireg/internal/codec/typemap"
	"github.com/mesh-intelligence/doireg/internal/doi"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

// Parse reads the first regular entry of a BibTeX file. @comment, @string
// and @preamble blocks are skipped; string macros are not expanded.
func Parse(raw []byte) (*types.Metadata, []types.FieldError, error) {
	file, err := bibParser.ParseBytes("", raw)
	if err != nil {
		return nil, []types.FieldError{{Code: types.CodeMalformed, Message: "invalid BibTeX: " + err.Error()}}, nil
	}
	var entry *bibEntry
	for _, it := range file.Items {
		if it.Entry != nil {
			entry = it.Entry
			break
		}
	}
	if entry == nil {
		return nil, []types.FieldError{{Code: types.CodeMalformed, Message: "no BibTeX entry found"}}, nil
	}

	fields := map[string]string{}
	for _, f := range entry.Fields {
		fields[strings.ToLower(f.Name)] = f.raw()
	}
	text := func(name string) string { return shape.Text(unescape(fields[name])) }

	md := &types.Metadata{
		Identifier: text("doi"),
		Language:   text("language"),
		Version:    text("version"),
		Types: types.Types{
			ResourceTypeGeneral: typemap.FromBibTeX(entry.Type()),
			ResourceType:        text("type"),
		},
	}
	if md.Identifier == "" && strings.Contains(entry.Key, "doi.org/") {
		md.Identifier = entry.Key
	}
	if t := text("title"); t != "" {
		md.Titles = []types.Title{{Title: t}}
	}
	for _, name := range splitAuthors(fields["author"]) {
		md.Creators = append(md.Creators, creator(name))
	}
	for _, name := range splitAuthors(fields["editor"]) {
		md.Contributors = append(md.Contributors, types.Contributor{ContributorType: "Editor", Creator: creator(name)})
	}
	publisher := text("publisher")
	if publisher == "" {
		publisher = text("institution")
	}
	if publisher == "" {
		publisher = text("school")
	}
	if publisher != "" {
		md.Publisher = &types.Publisher{Name: publisher}
	}
	md.PublicationYear = shape.Year(text("year"))
	if md.PublicationYear != "" {
		date := md.PublicationYear
		if m := text("month"); m != "" {
			if n := months[strings.ToLower(m)]; n != "" {
				m = n
			}
			if len(m) == 1 {
				m = "0" + m
			}
			date += "-" + m
		}
		md.Dates = []types.Date{{Date: date, DateType: types.DateTypeIssued}}
	}
	for _, k := range strings.Split(text("keywords"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			md.Subjects = append(md.Subjects, types.Subject{Subject: k})
		}
	}
	if a := shape.Block(unescape(fields["abstract"])); a != "" {
		md.Descriptions = []types.Description{{Description: a, DescriptionType: types.DescriptionTypeAbstract}}
	}
	if c := text("copyright"); c != "" {
		md.RightsList = []types.Rights{{Rights: c}}
	}
	if u := text("url"); u != "" && !strings.Contains(u, "doi.org/") {
		md.ContentURL = []string{u}
	}
	if it, ok := container(entry.Type(), text); ok {
		md.RelatedItems = []types.RelatedItem{it}
	}
	shape.CleanMetadata(md)
	return md, nil, nil
}

func container(entryType string, text func(string) string) (types.RelatedItem, bool) {
	it := types.RelatedItem{RelationType: "IsPublishedIn", RelatedItemType: "Journal"}
	title := text("journal")
	if title == "" {
		title = text("booktitle")
		it.RelatedItemType = "Book"
		if entryType == "inproceedings" {
			it.RelatedItemType = "ConferenceProceeding"
		}
	}
	if title == "" {
		return it, false
	}
	it.Titles = []types.Title{{Title: title}}
	it.Volume = text("volume")
	it.Issue = text("number")
	first, last, _ := strings.Cut(text("pages"), "-")
	it.FirstPage = strings.TrimSpace(first)
	it.LastPage = strings.Trim(last, "- ")
	if issn := text("issn"); issn != "" {
		it.RelatedItemIdentifier = &types.RelatedItemIdentifier{RelatedItemIdentifier: issn, RelatedItemIdentifierType: "ISSN"}
	}
	return it, true
}

// splitAuthors splits a name list on " and " outside braces.
func splitAuthors(s string) []string {
	var out []string
	depth, start := 0, 0
	lower := strings.ToLower(s)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ' ':
			if depth == 0 && strings.HasPrefix(lower[i:], " and ") {
				out = append(out, s[start:i])
				start = i + len(" and ")
				i += len(" and ") - 1
			}
		}
	}
	out = append(out, s[start:])
	names := out[:0]
	for _, n := range out {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// creator reads "Family, Given", "Given Family" or a fully braced
// organization name.
func creator(name string) types.Creator {
	if strings.HasPrefix(name, "{") && strings.HasSuffix(name, "}") && !strings.Contains(name[1:len(name)-1], "}") {
		return shape.Organization(unescape(name[1 : len(name)-1]))
	}
	name = shape.Text(unescape(stripBraces(name)))
	if family, given, ok := strings.Cut(name, ","); ok {
		return shape.Person(given, family)
	}
	if i := strings.LastIndexByte(name, ' '); i > 0 {
		return shape.Person(name[:i], name[i+1:])
	}
	return types.Creator{Name: name}
}

var escapes = strings.NewReplacer(`\&`, "&", `\%`, "%", `\_`, "_", `\$`, "$", `\#`, "#", `\{`, "{", `\}`, "}", "--", "-")

func unescape(s string) string {
	return escapes.Replace(stripBraces(s))
}

func stripBraces(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			sb.WriteByte(c)
			sb.WriteByte(s[i+1])
			i++
			continue
		}
		if c != '{' && c != '}' {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

var escaper = strings.NewReplacer("&", `\&`, "%", `\%`, "_", `\_`, "$", `\$`, "#", `\#`, "{", `\{`, "}", `\}`)

// Render writes md as one BibTeX entry keyed by the resolver URL of its
// identifier.
func Render(md *types.Metadata) ([]byte, error) {
	entryType := typemap.BibTeX(md.Types.ResourceTypeGeneral)
	key := "unknown"
	if md.Identifier != "" {
		key = doi.URL(md.Identifier)
	}

	var fields [][2]string
	add := func(name, value string) {
		if value != "" {
			fields = append(fields, [2]string{name, value})
		}
	}
	if md.Identifier != "" {
		add("doi", escaper.Replace(doi.Normalize(md.Identifier)))
		add("url", escaper.Replace(doi.URL(md.Identifier)))
	}
	var authors []string
	for _, c := range md.Creators {
		authors = append(authors, authorName(c))
	}
	add("author", strings.Join(authors, " and "))
	var editors []string
	for _, c := range md.Contributors {
		if c.ContributorType == "Editor" {
			editors = append(editors, authorName(c.Creator))
		}
	}
	add("editor", strings.Join(editors, " and "))
	add("keywords", escaper.Replace(strings.Join(md.Keywords(), ", ")))
	add("language", escaper.Replace(md.Language))
	add("title", escaper.Replace(md.MainTitle()))
	if c := md.Container(); c != nil && len(c.Titles) > 0 {
		if entryType == "article" {
			add("journal", escaper.Replace(c.Titles[0].Title))
		} else {
			add("booktitle", escaper.Replace(c.Titles[0].Title))
		}
		add("volume", escaper.Replace(c.Volume))
		add("number", escaper.Replace(c.Issue))
		pages := c.FirstPage
		if c.LastPage != "" {
			pages += "--" + c.LastPage
		}
		add("pages", escaper.Replace(pages))
	}
	add("publisher", escaper.Replace(md.PublisherName()))
	add("year", md.PublicationYear)
	if a := md.Abstract(); a != "" {
		add("abstract", escaper.Replace(a))
	}
	if len(md.RightsList) > 0 {
		add("copyright", escaper.Replace(md.RightsList[0].Rights))
	}
	add("version", escaper.Replace(md.Version))

	var sb strings.Builder
	fmt.Fprintf(&sb, "@%s{%s", entryType, key)
	for _, f := range fields {
		fmt.Fprintf(&sb, ",\n  %s = {%s}", f[0], f[1])
	}
	sb.WriteString("\n}\n")
	return []byte(sb.String()), nil
}

func authorName(c types.Creator) string {
	if family, given := shape.PersonParts(c); family != "" {
		if given == "" {
			return escaper.Replace(family)
		}
		return escaper.Replace(family + ", " + given)
	}
	return "{" + escaper.Replace(c.Name) + "}"
}
