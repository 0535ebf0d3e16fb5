// Package delimit splits plain text into prompt units at every match of a
// delimiter pattern.
package delimit

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/ragutil/internal/apperr"
	"github.com/dgallion1/ragutil/internal/parser"
	"github.com/dgallion1/ragutil/internal/unit"
)

// Flags are the regex modifiers applied to both patterns.
type Flags struct {
	CaseInsensitive bool `json:"caseInsensitive"`
	MultiLine       bool `json:"multiLine"`
	DotAll          bool `json:"dotAll"`
}

// ParseFlags reads a flag string made of the characters i, m and s.
// Other characters are ignored.
func ParseFlags(s string) Flags {
	var f Flags
	for _, c := range s {
		switch c {
		case 'i':
			f.CaseInsensitive = true
		case 'm':
			f.MultiLine = true
		case 's':
			f.DotAll = true
		}
	}
	return f
}

func (f Flags) prefix() string {
	var b strings.Builder
	if f.CaseInsensitive {
		b.WriteByte('i')
	}
	if f.MultiLine {
		b.WriteByte('m')
	}
	if f.DotAll {
		b.WriteByte('s')
	}
	if b.Len() == 0 {
		return ""
	}
	return "(?" + b.String() + ")"
}

// Config describes how to segment a document. An empty Delimiter is
// rejected as an invalid pattern rather than matching at every position.
type Config struct {
	Delimiter string `json:"delimiter"`
	IDCapture string `json:"idCapture,omitempty"`
	Flags     Flags  `json:"flags"`
}

type compiled struct {
	delim *regexp.Regexp
	id    *regexp.Regexp // nil when no id pattern was given
}

// compile builds both patterns once per call.
func (c Config) compile() (*compiled, error) {
	if c.Delimiter == "" {
		return nil, apperr.InvalidPattern("extract delimited", "delimiter", c.Delimiter, errors.New("empty pattern"))
	}
	prefix := c.Flags.prefix()

	delim, err := regexp.Compile(prefix + c.Delimiter)
	if err != nil {
		return nil, apperr.InvalidPattern("extract delimited", "delimiter", c.Delimiter, err)
	}
	out := &compiled{delim: delim}
	if c.IDCapture != "" {
		out.id, err = regexp.Compile(prefix + c.IDCapture)
		if err != nil {
			return nil, apperr.InvalidPattern("extract delimited", "idCapture", c.IDCapture, err)
		}
	}
	return out, nil
}

// ExtractFile reads path as plain text and extracts units from it.
func ExtractFile(path string, cfg Config) ([]unit.PromptUnit, error) {
	re, err := cfg.compile()
	if err != nil {
		return nil, err
	}
	text, err := parser.ReadText(path)
	if err != nil {
		return nil, err
	}
	return re.extract(text), nil
}

// Extract segments text at each delimiter match start. A document with no
// match becomes one unit.
func Extract(text string, cfg Config) ([]unit.PromptUnit, error) {
	re, err := cfg.compile()
	if err != nil {
		return nil, err
	}
	return re.extract(text), nil
}

func (c *compiled) extract(text string) []unit.PromptUnit {
	units := []unit.PromptUnit{}
	matches := c.delim.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		body := strings.TrimSpace(text)
		if body == "" {
			return units
		}
		id, ok := c.captureID(text)
		if !ok {
			id = "1"
		}
		return append(units, unit.PromptUnit{ID: id, Body: body})
	}

	bounds := make([]int, 0, len(matches)+2)
	bounds = append(bounds, 0)
	for _, m := range matches {
		bounds = append(bounds, m[0])
	}
	bounds = append(bounds, len(text))

	for i := 0; i+1 < len(bounds); i++ {
		body := strings.TrimSpace(text[bounds[i]:bounds[i+1]])
		if body == "" {
			continue
		}
		id, ok := c.captureID(body)
		if !ok {
			id = strconv.Itoa(len(units) + 1)
		}
		units = append(units, unit.PromptUnit{ID: id, Body: body})
	}
	return units
}

func (c *compiled) captureID(segment string) (string, bool) {
	if c.id == nil {
		return "", false
	}
	m := c.id.FindStringSubmatchIndex(segment)
	if len(m) < 4 || m[2] < 0 {
		return "", false
	}
	return segment[m[2]:m[3]], true
}
