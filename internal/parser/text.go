package parser

import (
	"io"

	"github.com/dgallion1/ragutil/internal/textio"
)

// TextParser decodes bytes as UTF-8, replacing invalid sequences.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return textio.DecodeLossy(data), nil
}
