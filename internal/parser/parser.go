// Package parser converts source documents into the text or markup the
// extractors operate on.
package parser

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/ragutil/internal/apperr"
	"github.com/rotisserie/eris"
)

// Parser converts raw document bytes into a string.
type Parser interface {
	Parse(r io.Reader, filename string) (string, error)
}

// PDFFallback enables the pdftotext fallback for PDFs the Go reader cannot
// handle. It is set once at startup.
var PDFFallback = true

// ForText returns the parser that yields plain text for a filename. Only
// docx and pdf are converted; everything else, markup included, is read as
// lossily decoded text so patterns can match tags and attributes.
func ForText(filename string) Parser {
	switch ext(filename) {
	case ".docx":
		return &DOCXParser{}
	case ".pdf":
		return &PDFParser{FallbackPdftotext: PDFFallback}
	default:
		return &TextParser{}
	}
}

// ForMarkup returns the parser that yields HTML for a filename. Markdown is
// rendered; everything else is taken as markup already.
func ForMarkup(filename string) Parser {
	switch ext(filename) {
	case ".md", ".markdown":
		return &MarkdownParser{}
	default:
		return &TextParser{}
	}
}

// ReadText loads path and converts it to plain text.
func ReadText(path string) (string, error) {
	return read(path, ForText(path))
}

// ReadMarkup loads path and converts it to HTML.
func ReadMarkup(path string) (string, error) {
	return read(path, ForMarkup(path))
}

func read(path string, p Parser) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperr.Wrap(eris.Wrap(err, "read source"), apperr.KindNotFound, "read source", "file not found", path)
		}
		return "", apperr.Wrap(eris.Wrap(err, "read source"), apperr.KindIO, "read source", "cannot read file", path)
	}
	out, err := p.Parse(bytes.NewReader(data), filepath.Base(path))
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindIO, "read source", "cannot convert file", path)
	}
	return out, nil
}

func ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
