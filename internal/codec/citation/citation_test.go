package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

func person(given, family string) types.Creator {
	return types.Creator{Name: family + ", " + given, NameType: types.NameTypePersonal, GivenName: given, FamilyName: family}
}

func dryad() *types.Metadata {
	return &types.Metadata{
		Identifier: "10.5061/DRYAD.8515",
		Creators: []types.Creator{
			person("Benjamin", "Ollomo"),
			person("Patrick", "Durand"),
			person("François", "Renaud"),
		},
		Titles:          []types.Title{{Title: "Data from: A new malaria agent in African hominids"}},
		Publisher:       &types.Publisher{Name: "Dryad"},
		PublicationYear: "2011",
		Types:           types.Types{ResourceTypeGeneral: "Dataset"},
		Version:         "1",
	}
}

func TestRender_Styles(t *testing.T) {
	tests := []struct {
		style string
		want  string
	}{
		{"apa", "Ollomo, B., Durand, P., & Renaud, F. (2011). Data from: A new malaria agent in African hominids (Version 1) [Data set]. Dryad. https://doi.org/10.5061/dryad.8515"},
		{"ieee", `B. Ollomo, P. Durand, and F. Renaud, "Data from: A new malaria agent in African hominids," Dryad, 2011. doi: 10.5061/dryad.8515.`},
		{"vancouver", "Ollomo B, Durand P, Renaud F. Data from: A new malaria agent in African hominids [Data set]. Dryad; 2011. Available from: https://doi.org/10.5061/dryad.8515"},
		{"harvard", "Ollomo, B., Durand, P. and Renaud, F. (2011) Data from: A new malaria agent in African hominids. Dryad. Available at: https://doi.org/10.5061/dryad.8515"},
		{"chicago", `Ollomo, Benjamin, Patrick Durand, and François Renaud. 2011. "Data from: A new malaria agent in African hominids." Dryad. https://doi.org/10.5061/dryad.8515`},
	}
	for _, tt := range tests {
		t.Run(tt.style, func(t *testing.T) {
			out, err := Render(dryad(), types.RenderOptions{Style: tt.style})
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestRender_UnknownStyleFallsBackToAPA(t *testing.T) {
	apa, err := Render(dryad(), types.RenderOptions{})
	require.NoError(t, err)
	out, err := Render(dryad(), types.RenderOptions{Style: "no-such-style", Locale: "xx-invalid-"})
	require.NoError(t, err)
	assert.Equal(t, string(apa), string(out))
}

func TestRender_Locale(t *testing.T) {
	out, err := Render(dryad(), types.RenderOptions{Style: "apa", Locale: "de-AT"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "[Datensatz]")

	out, err = Render(dryad(), types.RenderOptions{Style: "ieee", Locale: "es"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "P. Durand, y F. Renaud")
}

func TestRender_NoDateAndNoAuthors(t *testing.T) {
	md := &types.Metadata{Titles: []types.Title{{Title: "Untitled draft"}}}
	out, err := Render(md, types.RenderOptions{Style: "apa", Locale: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "(s. d.). Untitled draft.", string(out))
}

func TestFormatNames_EtAl(t *testing.T) {
	var creators []types.Creator
	for range 8 {
		creators = append(creators, person("Ann", "Lee"))
	}
	en := ResolveLocale("en-US")
	assert.Equal(t, "A. Lee et al.", formatNames(creators, styles["ieee"], en))
	assert.Equal(t, "Lee A, Lee A, Lee A, Lee A, Lee A, Lee A, et al.", formatNames(creators, styles["vancouver"], en))
	assert.Equal(t, "Lee, A. and Lee, A.", formatNames(creators[:2], styles["harvard"], en))
	assert.Equal(t, "Dryad Consortium", formatNames([]types.Creator{{Name: "Dryad Consortium", NameType: types.NameTypeOrganizational}}, styles["apa"], en))
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "ieee", ResolveStyle(" IEEE "))
	assert.Equal(t, DefaultStyle, ResolveStyle("mla"))

	tests := map[string]string{
		"":      "en-US",
		"en":    "en-US",
		"en-GB": "en-GB",
		"de-CH": "de",
		"fr-CA": "fr",
		"es-MX": "es",
		"ja":    "en-US",
		"!!":    "en-US",
	}
	for in, want := range tests {
		assert.Equal(t, want, ResolveLocale(in).Tag, in)
	}
	assert.Equal(t, []string{"apa", "chicago", "harvard", "ieee", "vancouver"}, Styles())
	assert.Equal(t, DefaultLocale, Locales()[0])
}
