// Package encoding decodes file bytes according to per-path encoding rules.
package encoding

import (
	"bytes"
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Rule assigns the encoding named by a WHATWG label to paths matching a
// doublestar pattern.
type Rule struct {
	Pattern  string
	Encoding string
}

type compiledRule struct {
	pattern string
	name    string
	enc     encoding.Encoding
}

// Decoder turns raw file content into UTF-8 text. The most specific rule
// (longest pattern) wins; unmatched paths are treated as UTF-8.
type Decoder struct {
	rules []compiledRule
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// New resolves every rule's encoding label.
func New(rules []Rule) (*Decoder, error) {
	d := &Decoder{}
	for _, r := range rules {
		if !doublestar.ValidatePattern(r.Pattern) {
			return nil, fmt.Errorf("invalid encoding pattern %q", r.Pattern)
		}
		enc, err := htmlindex.Get(r.Encoding)
		if err != nil {
			return nil, fmt.Errorf("encoding for %q: %w", r.Pattern, err)
		}
		name, _ := htmlindex.Name(enc)
		d.rules = append(d.rules, compiledRule{pattern: r.Pattern, name: name, enc: enc})
	}
	slices.SortStableFunc(d.rules, func(a, b compiledRule) int {
		return cmp.Compare(len(b.pattern), len(a.pattern))
	})
	return d, nil
}

func (d *Decoder) lookup(path string) (compiledRule, bool) {
	if path == "" {
		return compiledRule{}, false
	}
	path = filepath.ToSlash(path)
	for _, r := range d.rules {
		if doublestar.MatchUnvalidated(r.pattern, path) {
			return r, true
		}
	}
	return compiledRule{}, false
}

// EncodingFor returns the canonical name of the encoding used for path.
func (d *Decoder) EncodingFor(path string) string {
	if r, ok := d.lookup(path); ok {
		return r.name
	}
	return "utf-8"
}

// Decode converts raw to a valid UTF-8 string. A decoding failure falls
// back to lossy UTF-8.
func (d *Decoder) Decode(path string, raw []byte) string {
	if r, ok := d.lookup(path); ok && r.enc != unicode.UTF8 {
		if out, err := r.enc.NewDecoder().Bytes(raw); err == nil {
			return string(out)
		}
	}
	return strings.ToValidUTF8(string(bytes.TrimPrefix(raw, utf8BOM)), "�")
}
