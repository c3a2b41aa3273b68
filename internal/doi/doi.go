// Package doi normalizes, validates and mints DOI-shaped identifiers.
package doi

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

// Resolver is the base of the URL form of an identifier.
const Resolver = "https://doi.org/"

var (
	doiPattern    = regexp.MustCompile(`^10\.\d{4,5}/[-._;()/:a-zA-Z0-9*~$=]+$`)
	prefixPattern = regexp.MustCompile(`^10\.\d{4,5}$`)
)

// resolverPrefixes are stripped by Normalize, longest first.
var resolverPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// Normalize strips resolver and scheme prefixes, trims whitespace and
// upper-cases the identifier. It does not validate.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, p := range resolverPrefixes {
		if strings.HasPrefix(lower, p) {
			s = s[len(p):]
			break
		}
	}
	return strings.ToUpper(s)
}

// Validate reports whether s, after normalization, is a well-formed DOI.
func Validate(s string) error {
	if !doiPattern.MatchString(Normalize(s)) {
		return fmt.Errorf("%w: %q", types.ErrInvalidIdentifier, s)
	}
	return nil
}

// Valid is Validate as a predicate.
func Valid(s string) bool {
	return Validate(s) == nil
}

// Prefix returns the registrant prefix ("10.5061") of a DOI.
func Prefix(s string) string {
	s = Normalize(s)
	if i := strings.IndexByte(s, '/'); i > 0 {
		return s[:i]
	}
	return ""
}

// URL returns the resolver URL form, lower-cased.
func URL(s string) string {
	if s == "" {
		return ""
	}
	return Resolver + strings.ToLower(Normalize(s))
}

const (
	crockford = "0123456789abcdefghjkmnpqrstvwxyz"
	checksum  = crockford + "*~$=u"
	bodyLen   = 7
)

// Mint returns a new DOI under prefix with a random "xxxx-xxxx" suffix.
// The last suffix character is a mod-37 check symbol.
func Mint(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if !prefixPattern.MatchString(prefix) {
		return "", fmt.Errorf("%w: prefix %q", types.ErrInvalidIdentifier, prefix)
	}
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generating suffix entropy: %w", err)
	}
	n := binary.BigEndian.Uint64(u[:8]) % (1 << (5 * bodyLen))
	return Normalize(prefix + "/" + EncodeSuffix(n)), nil
}

// EncodeSuffix renders n as seven Crockford base32 digits plus a check
// symbol, split into two groups of four.
func EncodeSuffix(n uint64) string {
	var body [bodyLen]byte
	v := n
	for i := bodyLen - 1; i >= 0; i-- {
		body[i] = crockford[v%32]
		v /= 32
	}
	s := string(body[:]) + string(checksum[n%37])
	return s[:4] + "-" + s[4:]
}

// CheckSuffix verifies the check symbol of a minted suffix.
func CheckSuffix(suffix string) bool {
	s := strings.ToLower(strings.ReplaceAll(suffix, "-", ""))
	if len(s) != bodyLen+1 {
		return false
	}
	var n uint64
	for i := 0; i < bodyLen; i++ {
		d := strings.IndexByte(crockford, s[i])
		if d < 0 {
			return false
		}
		n = n*32 + uint64(d)
	}
	return s[bodyLen] == checksum[n%37]
}
