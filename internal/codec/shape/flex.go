package shape

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

// List decodes either a JSON array or a single bare value into a slice.
type List[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (l *List[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*l = nil
		return nil
	case len(b) > 0 && b[0] == '[':
		var s []T
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = s
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*l = List[T]{v}
	return nil
}

// Flex is a scalar that may arrive as a JSON string or number. Numbers are
// kept in their shortest decimal form.
type Flex string

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Flex(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = Flex(n.String())
	return nil
}

// String returns the value as a string.
func (f Flex) String() string { return string(f) }

// Year returns the leading four-digit year of a date string, or "".
func Year(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return ""
	}
	if _, err := strconv.Atoi(date[:4]); err != nil {
		return ""
	}
	return date[:4]
}

// SplitName splits "Family, Given" into its parts. Names without a comma
// are returned as family only.
func SplitName(name string) (family, given string) {
	family, given, _ = strings.Cut(name, ",")
	return Text(family), Text(given)
}

// Person builds a personal creator from name parts. The display name is
// "Family, Given" when both are known.
func Person(given, family string) types.Creator {
	c := types.Creator{
		NameType:   types.NameTypePersonal,
		GivenName:  Text(given),
		FamilyName: Text(family),
	}
	c.Name = c.DisplayName()
	return c
}

// Organization builds an organizational creator.
func Organization(name string) types.Creator {
	return types.Creator{Name: Text(name), NameType: types.NameTypeOrganizational}
}

// Initials returns the initials of a given name, e.g. "Jean-Paul Marie" ->
// "J.-P. M.". With compact set the result is "JPM".
func Initials(given string, compact bool) string {
	var parts []string
	for _, word := range strings.Fields(given) {
		var hy []string
		for _, piece := range strings.Split(word, "-") {
			r := []rune(piece)
			if len(r) == 0 {
				continue
			}
			if compact {
				hy = append(hy, string(r[0]))
			} else {
				hy = append(hy, string(r[0])+".")
			}
		}
		if compact {
			parts = append(parts, strings.Join(hy, ""))
		} else {
			parts = append(parts, strings.Join(hy, "-"))
		}
	}
	if compact {
		return strings.Join(parts, "")
	}
	return strings.Join(parts, " ")
}

// PersonParts returns the family and given names of c, splitting an
// untyped "Family, Given" name when the parts are missing.
func PersonParts(c types.Creator) (family, given string) {
	if c.FamilyName != "" || c.GivenName != "" {
		return c.FamilyName, c.GivenName
	}
	if !c.IsPersonal() {
		return "", ""
	}
	return SplitName(c.Name)
}
