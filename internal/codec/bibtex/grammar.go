package bibtex

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// bibLexer tokenizes BibTeX. Text outside entries is a comment. Braced
// values switch to a state that only tracks nesting, so anything but
// braces is literal text there.
var bibLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Special", Pattern: `@(?i:comment|preamble|string)\s*\{`, Action: lexer.Push("Braced")},
		{Name: "EntryStart", Pattern: `@[A-Za-z]+\s*\{`, Action: lexer.Push("Entry")},
		{Name: "Comment", Pattern: `[^@]+|@`},
	},
	"Entry": {
		{Name: "EntrySpace", Pattern: `\s+`},
		{Name: "EntryEnd", Pattern: `\}`, Action: lexer.Pop()},
		{Name: "LBrace", Pattern: `\{`, Action: lexer.Push("Braced")},
		{Name: "Quoted", Pattern: `"(?:[^"\\]|\\.)*"`},
		{Name: "Punct", Pattern: `[=,#]`},
		{Name: "Word", Pattern: `[^\s=,#{}"]+`},
	},
	"Braced": {
		{Name: "NestedLBrace", Pattern: `\{`, Action: lexer.Push("Braced")},
		{Name: "RBrace", Pattern: `\}`, Action: lexer.Pop()},
		{Name: "BracedText", Pattern: `[^{}]+`},
	},
})

type bibFile struct {
	Items []*bibItem `@@*`
}

type bibItem struct {
	Skipped *bibSkipped `  @@`
	Entry   *bibEntry   `| @@`
}

// bibSkipped is an @comment, @preamble or @string block.
type bibSkipped struct {
	Start string     `@Special`
	Body  *bibBraced `@@`
}

type bibEntry struct {
	Start  string      `@EntryStart`
	Key    string      `@Word ","`
	Fields []*bibField `( @@ ","? )* EntryEnd`
}

type bibField struct {
	Name  string      `@Word "="`
	Parts []*bibValue `@@ ( "#" @@ )*`
}

type bibValue struct {
	Quoted *string    `  @Quoted`
	Braced *bibBraced `| LBrace @@`
	Word   *string    `| @Word`
}

type bibBraced struct {
	Parts []*bibBracedPart `@@* RBrace`
}

type bibBracedPart struct {
	Text   *string    `  @BracedText`
	Nested *bibBraced `| NestedLBrace @@`
}

var bibParser = participle.MustBuild[bibFile](
	participle.Lexer(bibLexer),
	participle.Elide("Comment", "EntrySpace"),
	participle.UseLookahead(2),
)

// Type returns the lower-cased entry type, e.g. "article".
func (e *bibEntry) Type() string {
	t := strings.TrimPrefix(e.Start, "@")
	t = strings.TrimSuffix(t, "{")
	return strings.ToLower(strings.TrimSpace(t))
}

// raw reconstructs the braced content with inner braces kept.
func (b *bibBraced) raw() string {
	var sb strings.Builder
	for _, p := range b.Parts {
		switch {
		case p.Text != nil:
			sb.WriteString(*p.Text)
		case p.Nested != nil:
			sb.WriteByte('{')
			sb.WriteString(p.Nested.raw())
			sb.WriteByte('}')
		}
	}
	return sb.String()
}

// raw returns the field value with string concatenation applied and
// braces kept. Bare words are month macros or numbers.
func (f *bibField) raw() string {
	var sb strings.Builder
	for _, v := range f.Parts {
		switch {
		case v.Quoted != nil:
			sb.WriteString(strings.TrimSuffix(strings.TrimPrefix(*v.Quoted, `"`), `"`))
		case v.Braced != nil:
			sb.WriteString(v.Braced.raw())
		case v.Word != nil:
			if m, ok := months[strings.ToLower(*v.Word)]; ok {
				sb.WriteString(m)
			} else {
				sb.WriteString(*v.Word)
			}
		}
	}
	return sb.String()
}

var months = map[string]string{
	"jan": "1", "feb": "2", "mar": "3", "apr": "4", "may": "5", "jun": "6",
	"jul": "7", "aug": "8", "sep": "9", "oct": "10", "nov": "11", "dec": "12",
}
