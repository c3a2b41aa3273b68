// Package jats renders JATS element-citation XML.
package jats

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/doireg/internal/codec/shape"
	"github.com/mesh-intelligence/doireg/internal/doi"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

type citation struct {
	XMLName         xml.Name     `xml:"element-citation"`
	PublicationType string       `xml:"publication-type,attr"`
	PersonGroup     *personGroup `xml:"person-group,omitempty"`
	ArticleTitle    string       `xml:"article-title,omitempty"`
	ChapterTitle    string       `xml:"chapter-title,omitempty"`
	DataTitle       string       `xml:"data-title,omitempty"`
	Source          string       `xml:"source,omitempty"`
	PublisherName   string       `xml:"publisher-name,omitempty"`
	Year            *year        `xml:"year,omitempty"`
	Volume          string       `xml:"volume,omitempty"`
	Issue           string       `xml:"issue,omitempty"`
	FirstPage       string       `xml:"fpage,omitempty"`
	LastPage        string       `xml:"lpage,omitempty"`
	Version         string       `xml:"version,omitempty"`
	PubID           *pubID       `xml:"pub-id,omitempty"`
	URI             string       `xml:"uri,omitempty"`
}

type personGroup struct {
	Type    string   `xml:"person-group-type,attr"`
	Members []member `xml:",any"`
}

type member struct {
	XMLName    xml.Name
	Surname    string `xml:"surname,omitempty"`
	GivenNames string `xml:"given-names,omitempty"`
	Text       string `xml:",chardata"`
}

type year struct {
	ISODate string `xml:"iso-8601-date,attr,omitempty"`
	Value   string `xml:",chardata"`
}

type pubID struct {
	Type  string `xml:"pub-id-type,attr"`
	Value string `xml:",chardata"`
}

// PublicationType maps a general resource type to a JATS publication-type.
func PublicationType(general string) string {
	switch general {
	case "Dataset":
		return "data"
	case "JournalArticle", "DataPaper", "Preprint", "Text":
		return "journal"
	case "Software", "ComputationalNotebook":
		return "software"
	case "Book", "ConferenceProceeding":
		return "book"
	case "BookChapter":
		return "chapter"
	}
	return "other"
}

// Render writes md as one element-citation.
func Render(md *types.Metadata) ([]byte, error) {
	c := citation{
		PublicationType: PublicationType(md.Types.ResourceTypeGeneral),
		Version:         md.Version,
	}
	if len(md.Creators) > 0 {
		c.PersonGroup = &personGroup{Type: "author"}
		for _, cr := range md.Creators {
			c.PersonGroup.Members = append(c.PersonGroup.Members, memberOf(cr))
		}
	}

	title := md.MainTitle()
	container := ""
	ct := md.Container()
	if ct != nil && len(ct.Titles) > 0 {
		container = ct.Titles[0].Title
	}
	switch c.PublicationType {
	case "journal":
		c.ArticleTitle, c.Source = title, container
	case "chapter":
		c.ChapterTitle, c.Source = title, container
	case "data":
		c.DataTitle, c.Source = title, container
		if c.Source == "" {
			c.Source = md.PublisherName()
		}
	default:
		c.Source = title
	}
	if c.Source != md.PublisherName() {
		c.PublisherName = md.PublisherName()
	}

	if md.PublicationYear != "" {
		c.Year = &year{Value: md.PublicationYear}
		if issued := md.DateOf(types.DateTypeIssued); shape.Year(issued) == md.PublicationYear {
			c.Year.ISODate = issued
		} else {
			c.Year.ISODate = md.PublicationYear
		}
	}
	if ct != nil {
		c.Volume, c.Issue = ct.Volume, ct.Issue
		c.FirstPage, c.LastPage = ct.FirstPage, ct.LastPage
	}
	if md.Identifier != "" {
		c.PubID = &pubID{Type: "doi", Value: strings.ToLower(doi.Normalize(md.Identifier))}
	} else if len(md.ContentURL) > 0 {
		c.URI = md.ContentURL[0]
	}

	b, err := xml.MarshalIndent(&c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding JATS: %w", err)
	}
	return append(b, '\n'), nil
}

func memberOf(cr types.Creator) member {
	if family, given := shape.PersonParts(cr); family != "" {
		return member{XMLName: xml.Name{Local: "name"}, Surname: family, GivenNames: given}
	}
	return member{XMLName: xml.Name{Local: "collab"}, Text: cr.Name}
}
