package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormatKind(t *testing.T) {
	tests := []struct {
		in   string
		want FormatKind
	}{
		{"bibtex", FormatBibTeX},
		{"application/x-bibtex", FormatBibTeX},
		{"Application/Vnd.Datacite.Datacite+XML; charset=utf-8", FormatDataCiteXML},
		{"application/xml", FormatDataCiteXML},
		{"application/ld+json", FormatSchemaOrg},
		{"text/x-bibliography", FormatCitation},
		{"text/csv", FormatCSV},
		{"application/vnd.jats+xml", FormatJATS},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormatKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFormatKind("application/pdf")
	assert.ErrorIs(t, err, ErrFormatUnknown)
}

func TestFormatKindTextRoundTrip(t *testing.T) {
	for _, f := range AllFormats() {
		b, err := json.Marshal(f)
		require.NoError(t, err)
		var got FormatKind
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, f, got)
		assert.NotEmpty(t, f.ContentType())
	}
	assert.Equal(t, "unknown", FormatUnknown.String())
	assert.False(t, FormatCSV.Parsable())
	assert.True(t, FormatRIS.Parsable())
}
