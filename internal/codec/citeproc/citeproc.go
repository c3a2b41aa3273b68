// Package citeproc reads and writes CSL JSON items as consumed by citeproc
// processors.
package citeproc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/doireg/internal/codec/shape"
	"github.com/mesh-intelligence/doireg/internal/codec/typemap"
	"github.com/mesh-intelligence/doireg/internal/doi"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

// Item is one CSL JSON item.
type Item struct {
	Type           string             `json:"type"`
	ID             string             `json:"id,omitempty"`
	Categories     []string           `json:"categories,omitempty"`
	Language       string             `json:"language,omitempty"`
	Author         []Name             `json:"author,omitempty"`
	Editor         []Name             `json:"editor,omitempty"`
	Issued         *Date              `json:"issued,omitempty"`
	Submitted      *Date              `json:"submitted,omitempty"`
	Abstract       string             `json:"abstract,omitempty"`
	ContainerTitle string             `json:"container-title,omitempty"`
	DOI            string             `json:"DOI,omitempty"`
	ISSN           string             `json:"ISSN,omitempty"`
	Volume         shape.Flex         `json:"volume,omitempty"`
	Issue          shape.Flex         `json:"issue,omitempty"`
	Page           string             `json:"page,omitempty"`
	Publisher      string             `json:"publisher,omitempty"`
	Title          string             `json:"title,omitempty"`
	URL            string             `json:"URL,omitempty"`
	Copyright      string             `json:"copyright,omitempty"`
	Version        shape.Flex         `json:"version,omitempty"`
	Genre          string             `json:"genre,omitempty"`
	Dimensions     shape.List[string] `json:"dimensions,omitempty"`
}

// Name is a CSL name: either family/given parts or a literal.
type Name struct {
	Family  string `json:"family,omitempty"`
	Given   string `json:"given,omitempty"`
	Literal string `json:"literal,omitempty"`
}

// Date is a CSL date. Only the first date-parts entry is used.
type Date struct {
	DateParts [][]int `json:"date-parts,omitempty"`
	Raw       string  `json:"raw,omitempty"`
}

// UnmarshalJSON accepts date parts given as numbers or numeric strings.
func (d *Date) UnmarshalJSON(b []byte) error {
	var v struct {
		DateParts [][]shape.Flex `json:"date-parts"`
		Raw       string         `json:"raw"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*d = Date{Raw: v.Raw}
	for _, parts := range v.DateParts {
		var ints []int
		for _, p := range parts {
			n, err := strconv.Atoi(p.String())
			if err != nil {
				return fmt.Errorf("date part %q is not a number", p)
			}
			ints = append(ints, n)
		}
		d.DateParts = append(d.DateParts, ints)
	}
	return nil
}

// String formats the date as YYYY, YYYY-MM or YYYY-MM-DD.
func (d *Date) String() string {
	if d == nil {
		return ""
	}
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return strings.TrimSpace(d.Raw)
	}
	parts := d.DateParts[0]
	out := fmt.Sprintf("%04d", parts[0])
	for _, n := range parts[1:] {
		out += fmt.Sprintf("-%02d", n)
	}
	return out
}

// NewDate builds a CSL date from an ISO date string. It returns nil when
// the string has no leading year.
func NewDate(iso string) *Date {
	year, err := strconv.Atoi(shape.Year(iso))
	if err != nil {
		return nil
	}
	parts := []int{year}
	for _, p := range strings.Split(strings.TrimSpace(iso), "-")[1:] {
		if len(p) > 2 {
			p = p[:2]
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		parts = append(parts, n)
	}
	return &Date{DateParts: [][]int{parts}}
}

// Parse reads a single CSL JSON item, or the first item of a list.
func Parse(raw []byte) (*types.Metadata, []types.FieldError, error) {
	var items shape.List[Item]
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, []types.FieldError{{Code: types.CodeMalformed, Message: "invalid CSL JSON: " + err.Error()}}, nil
	}
	if len(items) == 0 {
		return nil, []types.FieldError{{Code: types.CodeMalformed, Message: "no CSL item found"}}, nil
	}
	it := items[0]

	md := &types.Metadata{
		Identifier: it.DOI,
		Language:   it.Language,
		Version:    it.Version.String(),
		Sizes:      it.Dimensions,
		Types: types.Types{
			ResourceTypeGeneral: typemap.FromCSL(it.Type),
			ResourceType:        it.Genre,
		},
	}
	if md.Identifier == "" && strings.Contains(it.ID, "doi.org/") {
		md.Identifier = it.ID
	}
	if it.Title != "" {
		md.Titles = []types.Title{{Title: it.Title}}
	}
	for _, n := range it.Author {
		md.Creators = append(md.Creators, n.creator())
	}
	for _, n := range it.Editor {
		md.Contributors = append(md.Contributors, types.Contributor{ContributorType: "Editor", Creator: n.creator()})
	}
	if it.Publisher != "" {
		md.Publisher = &types.Publisher{Name: it.Publisher}
	}
	if issued := it.Issued.String(); issued != "" {
		md.PublicationYear = shape.Year(issued)
		md.Dates = append(md.Dates, types.Date{Date: issued, DateType: types.DateTypeIssued})
	}
	if submitted := it.Submitted.String(); submitted != "" {
		md.Dates = append(md.Dates, types.Date{Date: submitted, DateType: "Submitted"})
	}
	if it.Abstract != "" {
		md.Descriptions = []types.Description{{Description: shape.Block(it.Abstract), DescriptionType: types.DescriptionTypeAbstract}}
	}
	for _, c := range it.Categories {
		md.Subjects = append(md.Subjects, types.Subject{Subject: c})
	}
	if it.Copyright != "" {
		md.RightsList = []types.Rights{{Rights: it.Copyright}}
	}
	if it.ContainerTitle != "" {
		md.RelatedItems = []types.RelatedItem{containerItem(it)}
	}
	shape.CleanMetadata(md)
	return md, nil, nil
}

func containerItem(it Item) types.RelatedItem {
	c := types.RelatedItem{
		RelatedItemType: "Journal",
		RelationType:    "IsPublishedIn",
		Titles:          []types.Title{{Title: it.ContainerTitle}},
		Volume:          it.Volume.String(),
		Issue:           it.Issue.String(),
	}
	if it.Type == "chapter" {
		c.RelatedItemType = "Book"
	}
	if it.ISSN != "" {
		c.RelatedItemIdentifier = &types.RelatedItemIdentifier{RelatedItemIdentifier: it.ISSN, RelatedItemIdentifierType: "ISSN"}
	}
	first, last, _ := strings.Cut(it.Page, "-")
	c.FirstPage = strings.TrimSpace(first)
	c.LastPage = strings.TrimSpace(last)
	return c
}

func (n Name) creator() types.Creator {
	if n.Family != "" || n.Given != "" {
		return shape.Person(n.Given, n.Family)
	}
	return types.Creator{Name: shape.Text(n.Literal)}
}

// NameOf converts a creator to a CSL name.
func NameOf(c types.Creator) Name {
	if family, given := shape.PersonParts(c); family != "" {
		return Name{Family: family, Given: given}
	}
	return Name{Literal: c.Name}
}

// ItemOf converts md to a CSL item.
func ItemOf(md *types.Metadata) Item {
	it := Item{
		Type:       typemap.CSL(md.Types.ResourceTypeGeneral),
		Categories: md.Keywords(),
		Language:   md.Language,
		Abstract:   md.Abstract(),
		Publisher:  md.PublisherName(),
		Title:      md.MainTitle(),
		Version:    shape.Flex(md.Version),
		Genre:      md.Types.ResourceType,
		Dimensions: md.Sizes,
	}
	if md.Identifier != "" {
		it.ID = doi.URL(md.Identifier)
		it.DOI = strings.ToLower(doi.Normalize(md.Identifier))
		it.URL = it.ID
	}
	for _, c := range md.Creators {
		it.Author = append(it.Author, NameOf(c))
	}
	for _, c := range md.Contributors {
		if c.ContributorType == "Editor" {
			it.Editor = append(it.Editor, NameOf(c.Creator))
		}
	}
	issued := md.DateOf(types.DateTypeIssued)
	if issued == "" {
		issued = md.PublicationYear
	}
	it.Issued = NewDate(issued)
	it.Submitted = NewDate(md.DateOf("Submitted"))
	if len(md.RightsList) > 0 {
		it.Copyright = md.RightsList[0].Rights
	}
	if c := md.Container(); c != nil {
		if len(c.Titles) > 0 {
			it.ContainerTitle = c.Titles[0].Title
		}
		it.Volume = shape.Flex(c.Volume)
		it.Issue = shape.Flex(c.Issue)
		if id := c.RelatedItemIdentifier; id != nil && id.RelatedItemIdentifierType == "ISSN" {
			it.ISSN = id.RelatedItemIdentifier
		}
		it.Page = c.FirstPage
		if c.LastPage != "" {
			it.Page += "-" + c.LastPage
		}
	}
	return it
}

// Render writes md as a single CSL JSON item.
func Render(md *types.Metadata) ([]byte, error) {
	it := ItemOf(md)
	b, err := json.MarshalIndent(&it, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding CSL JSON: %w", err)
	}
	return append(b, '\n'), nil
}
