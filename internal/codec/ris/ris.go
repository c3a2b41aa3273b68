// Package ris reads and writes RIS tagged records.
package ris

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/mesh-intelligence/doireg/internal/codec/shape"
	"github.com/mesh-intelligence/doireg/internal/codec/typemap"
	"github.com/mesh-intelligence/doireg/internal/doi"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

var linePattern = regexp.MustCompile(`^([A-Z][A-Z0-9])  -(?: (.*))?$`)

type record map[string][]string

func (r record) first(tags ...string) string {
	for _, t := range tags {
		if v := r[t]; len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// Parse reads the first record of a RIS file. Lines that are not tagged
// continue the previous value.
func Parse(raw []byte) (*types.Metadata, []types.FieldError, error) {
	rec, err := scan(raw)
	if err != nil {
		return nil, []types.FieldError{{Code: types.CodeMalformed, Message: err.Error()}}, nil
	}

	md := &types.Metadata{
		Identifier: rec.first("DO"),
		Language:   rec.first("LA"),
		Version:    rec.first("ET"),
		Types:      types.Types{ResourceTypeGeneral: typemap.FromRIS(rec.first("TY"))},
	}
	if t := rec.first("T1", "TI"); t != "" {
		md.Titles = []types.Title{{Title: t}}
	}
	for _, a := range append(rec["AU"], rec["A1"]...) {
		if family, given, ok := strings.Cut(a, ","); ok {
			md.Creators = append(md.Creators, shape.Person(given, family))
		} else {
			md.Creators = append(md.Creators, types.Creator{Name: a})
		}
	}
	if pb := rec.first("PB"); pb != "" {
		md.Publisher = &types.Publisher{Name: pb}
	}
	if date := risDate(rec.first("DA", "PY", "Y1")); date != "" {
		md.PublicationYear = shape.Year(date)
		md.Dates = []types.Date{{Date: date, DateType: types.DateTypeIssued}}
	}
	if ab := rec.first("AB", "N2"); ab != "" {
		md.Descriptions = []types.Description{{Description: shape.Block(ab), DescriptionType: types.DescriptionTypeAbstract}}
	}
	for _, kw := range rec["KW"] {
		md.Subjects = append(md.Subjects, types.Subject{Subject: kw})
	}
	if u := rec.first("UR"); u != "" && !strings.Contains(u, "doi.org/") {
		md.ContentURL = []string{u}
	}
	if journal := rec.first("JO", "JF", "T2"); journal != "" {
		it := types.RelatedItem{
			RelatedItemType: "Journal",
			RelationType:    "IsPublishedIn",
			Titles:          []types.Title{{Title: journal}},
			Volume:          rec.first("VL"),
			Issue:           rec.first("IS"),
			FirstPage:       rec.first("SP"),
			LastPage:        rec.first("EP"),
		}
		if sn := rec.first("SN"); sn != "" {
			it.RelatedItemIdentifier = &types.RelatedItemIdentifier{RelatedItemIdentifier: sn, RelatedItemIdentifierType: "ISSN"}
		}
		md.RelatedItems = []types.RelatedItem{it}
	}
	shape.CleanMetadata(md)
	return md, nil, nil
}

func scan(raw []byte) (record, error) {
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var (
		rec     record
		lastTag string
	)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if rec == nil {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		m := linePattern.FindStringSubmatch(line)
		switch {
		case m == nil && rec != nil && len(rec[lastTag]) > 0 && strings.TrimSpace(line) != "":
			vals := rec[lastTag]
			vals[len(vals)-1] += " " + strings.TrimSpace(line)
			continue
		case m == nil:
			continue
		}
		tag, value := m[1], strings.TrimSpace(m[2])
		switch {
		case tag == "TY":
			if rec != nil {
				return nil, fmt.Errorf("line %q: TY inside an open record", line)
			}
			rec = record{"TY": {value}}
		case rec == nil:
			return nil, fmt.Errorf("line %q: record must start with TY", line)
		case tag == "ER":
			return rec, nil
		case value != "":
			rec[tag] = append(rec[tag], value)
		}
		lastTag = tag
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading RIS: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("no RIS record found")
	}
	return nil, fmt.Errorf("record is not terminated by ER")
}

// risDate converts "2009/05/29/" to "2009-05-29".
func risDate(s string) string {
	var parts []string
	for _, p := range strings.Split(strings.TrimSpace(s), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 || shape.Year(parts[0]) == "" {
		return ""
	}
	return strings.Join(parts, "-")
}

// Render writes md as one RIS record.
func Render(md *types.Metadata) ([]byte, error) {
	var sb strings.Builder
	line := func(tag, value string) {
		if value = shape.Text(value); value != "" {
			fmt.Fprintf(&sb, "%s  - %s\r\n", tag, value)
		}
	}

	line("TY", typemap.RIS(md.Types.ResourceTypeGeneral))
	line("T1", md.MainTitle())
	c := md.Container()
	if c != nil && len(c.Titles) > 0 {
		line("T2", c.Titles[0].Title)
	}
	for _, cr := range md.Creators {
		line("AU", cr.DisplayName())
	}
	if md.Identifier != "" {
		line("DO", strings.ToLower(doi.Normalize(md.Identifier)))
		line("UR", doi.URL(md.Identifier))
	}
	line("AB", md.Abstract())
	for _, kw := range md.Keywords() {
		line("KW", kw)
	}
	line("PY", md.PublicationYear)
	line("PB", md.PublisherName())
	line("LA", md.Language)
	if c != nil {
		if id := c.RelatedItemIdentifier; id != nil && id.RelatedItemIdentifierType == "ISSN" {
			line("SN", id.RelatedItemIdentifier)
		}
		line("VL", c.Volume)
		line("IS", c.Issue)
		line("SP", c.FirstPage)
		line("EP", c.LastPage)
	}
	sb.WriteString("ER  - \r\n")
	return []byte(sb.String()), nil
}
