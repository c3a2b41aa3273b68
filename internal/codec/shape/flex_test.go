package shape

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

func TestList_AcceptsSingleValue(t *testing.T) {
	var v struct {
		Keywords List[string] `json:"keywords"`
		Authors  List[struct {
			Name string `json:"name"`
		}] `json:"author"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"keywords":"malaria","author":{"name":"Ollomo"}}`), &v))
	assert.Equal(t, List[string]{"malaria"}, v.Keywords)
	require.Len(t, v.Authors, 1)
	assert.Equal(t, "Ollomo", v.Authors[0].Name)

	require.NoError(t, json.Unmarshal([]byte(`{"keywords":["a","b"],"author":null}`), &v))
	assert.Equal(t, List[string]{"a", "b"}, v.Keywords)
	assert.Nil(t, v.Authors)
}

func TestFlex(t *testing.T) {
	var v struct {
		Year   Flex `json:"year"`
		Volume Flex `json:"volume"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"year":2011,"volume":" 5 "}`), &v))
	assert.Equal(t, "2011", v.Year.String())
	assert.Equal(t, "5", v.Volume.String())

	assert.Error(t, json.Unmarshal([]byte(`{"year":{}}`), &v))
}

func TestYear(t *testing.T) {
	assert.Equal(t, "2011", Year("2011-02-01"))
	assert.Equal(t, "2011", Year("2011"))
	assert.Equal(t, "", Year("11"))
	assert.Equal(t, "", Year("Feb 2011"))
}

func TestNames(t *testing.T) {
	family, given := SplitName("Ollomo, Benjamin")
	assert.Equal(t, "Ollomo", family)
	assert.Equal(t, "Benjamin", given)

	p := Person("Benjamin", "Ollomo")
	assert.Equal(t, "Ollomo, Benjamin", p.Name)
	assert.Equal(t, types.NameTypePersonal, p.NameType)

	family, given = PersonParts(types.Creator{Name: "Durand, Patrick"})
	assert.Equal(t, "Durand", family)
	assert.Equal(t, "Patrick", given)

	family, _ = PersonParts(Organization("Dryad"))
	assert.Equal(t, "", family)

	assert.Equal(t, "J.-P. M.", Initials("Jean-Paul Marie", false))
	assert.Equal(t, "JPM", Initials("Jean-Paul Marie", true))
	assert.Equal(t, "B.", Initials("Benjamin", false))
}
