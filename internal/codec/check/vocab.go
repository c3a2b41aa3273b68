package check

import "strings"

// Vocabulary holds the controlled lists of one schema generation. A nil
// list means the attribute does not exist in that generation.
type Vocabulary struct {
	Generation            int
	NameType              []string
	TitleType             []string
	DateType              []string
	DescriptionType       []string
	ContributorType       []string
	RelatedIdentifierType []string
	RelationType          []string
	ResourceTypeGeneral   []string
	FunderIdentifierType  []string
	NumberType            []string
}

// Kernel4 is the vocabulary of the kernel-4 generation.
var Kernel4 = &Vocabulary{
	Generation: 4,
	NameType:   []string{"Organizational", "Personal"},
	TitleType:  []string{"AlternativeTitle", "Subtitle", "TranslatedTitle", "Other"},
	DateType: []string{
		"Accepted", "Available", "Copyrighted", "Collected", "Coverage", "Created", "Issued",
		"Submitted", "Updated", "Valid", "Withdrawn", "Other",
	},
	DescriptionType: []string{"Abstract", "Methods", "SeriesInformation", "TableOfContents", "TechnicalInfo", "Other"},
	ContributorType: []string{
		"ContactPerson", "DataCollector", "DataCurator", "DataManager", "Distributor", "Editor",
		"HostingInstitution", "Other", "Producer", "ProjectLeader", "ProjectManager", "ProjectMember",
		"RegistrationAgency", "RegistrationAuthority", "RelatedPerson", "ResearchGroup", "RightsHolder",
		"Researcher", "Sponsor", "Supervisor", "Translator", "WorkPackageLeader",
	},
	RelatedIdentifierType: []string{
		"ARK", "arXiv", "bibcode", "CSTR", "DOI", "EAN13", "EISSN", "Handle", "IGSN", "ISBN", "ISSN",
		"ISTC", "LISSN", "LSID", "PMID", "PURL", "RRID", "UPC", "URL", "URN", "w3id",
	},
	RelationType: []string{
		"IsCitedBy", "Cites", "IsSupplementTo", "IsSupplementedBy", "IsContinuedBy", "Continues",
		"IsDescribedBy", "Describes", "HasMetadata", "IsMetadataFor", "HasVersion", "IsVersionOf",
		"IsNewVersionOf", "IsPreviousVersionOf", "IsPartOf", "HasPart", "IsPublishedIn",
		"IsReferencedBy", "References", "IsDocumentedBy", "Documents", "IsCompiledBy", "Compiles",
		"IsVariantFormOf", "IsOriginalFormOf", "IsIdenticalTo", "IsReviewedBy", "Reviews",
		"IsDerivedFrom", "IsSourceOf", "IsRequiredBy", "Requires", "IsObsoletedBy", "Obsoletes",
		"IsCollectedBy", "Collects", "IsTranslationOf", "HasTranslation",
	},
	ResourceTypeGeneral: []string{
		"Audiovisual", "Award", "Book", "BookChapter", "Collection", "ComputationalNotebook",
		"ConferencePaper", "ConferenceProceeding", "DataPaper", "Dataset", "Dissertation", "Event",
		"Image", "Instrument", "InteractiveResource", "Journal", "JournalArticle", "Model",
		"OutputManagementPlan", "PeerReview", "PhysicalObject", "Preprint", "Project", "Report",
		"Service", "Software", "Sound", "Standard", "StudyRegistration", "Text", "Workflow", "Other",
	},
	FunderIdentifierType: []string{"ISNI", "GRID", "ROR", "Crossref Funder ID", "Other"},
	NumberType:           []string{"Article", "Chapter", "Report", "Other"},
}

// Kernel3 is the vocabulary of the kernel-3 generation.
var Kernel3 = &Vocabulary{
	Generation: 3,
	TitleType:  []string{"AlternativeTitle", "Subtitle", "TranslatedTitle"},
	DateType: []string{
		"Accepted", "Available", "Copyrighted", "Collected", "Created", "Issued", "Submitted",
		"Updated", "Valid",
	},
	DescriptionType: []string{"Abstract", "Methods", "SeriesInformation", "TableOfContents", "Other"},
	ContributorType: []string{
		"ContactPerson", "DataCollector", "DataCurator", "DataManager", "Distributor", "Editor",
		"Funder", "HostingInstitution", "Producer", "ProjectLeader", "ProjectManager", "ProjectMember",
		"RegistrationAgency", "RegistrationAuthority", "RelatedPerson", "Researcher", "ResearchGroup",
		"RightsHolder", "Sponsor", "Supervisor", "WorkPackageLeader", "Other",
	},
	RelatedIdentifierType: []string{
		"ARK", "arXiv", "bibcode", "DOI", "EAN13", "EISSN", "Handle", "IGSN", "ISBN", "ISSN", "ISTC",
		"LISSN", "LSID", "PMID", "PURL", "UPC", "URL", "URN",
	},
	RelationType: []string{
		"IsCitedBy", "Cites", "IsSupplementTo", "IsSupplementedBy", "IsContinuedBy", "Continues",
		"HasMetadata", "IsMetadataFor", "IsNewVersionOf", "IsPreviousVersionOf", "IsPartOf", "HasPart",
		"IsReferencedBy", "References", "IsDocumentedBy", "Documents", "IsCompiledBy", "Compiles",
		"IsVariantFormOf", "IsOriginalFormOf", "IsIdenticalTo", "IsReviewedBy", "Reviews",
		"IsDerivedFrom", "IsSourceOf",
	},
	ResourceTypeGeneral: []string{
		"Audiovisual", "Collection", "Dataset", "Event", "Image", "InteractiveResource", "Model",
		"PhysicalObject", "Service", "Software", "Sound", "Text", "Workflow", "Other",
	},
}

// VocabularyFor picks the vocabulary for a schema namespace. Anything that
// is not kernel-3 is checked against kernel-4.
func VocabularyFor(schemaVersion string) *Vocabulary {
	if strings.Contains(schemaVersion, "kernel-3") {
		return Kernel3
	}
	return Kernel4
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func quoteSet(list []string) string {
	q := make([]string, len(list))
	for i, s := range list {
		q[i] = "'" + s + "'"
	}
	return "{" + strings.Join(q, ", ") + "}"
}
