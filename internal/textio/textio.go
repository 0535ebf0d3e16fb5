// Package textio reads local files into text for the extractors and the
// file-selection surface.
package textio

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/dgallion1/ragutil/internal/apperr"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
)

// DefaultMaxBytes caps how much of each file ReadTextFiles returns.
const DefaultMaxBytes = 512 * 1024

// FileText is the filtered content of one selected file.
type FileText struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

// ASCIIOnly keeps tab, newline, carriage return and printable ASCII,
// dropping every other byte.
func ASCIIOnly(buf []byte) string {
	out := make([]byte, 0, len(buf))
	for _, b := range buf {
		switch {
		case b == '\t' || b == '\n' || b == '\r':
			out = append(out, b)
		case b >= 0x20 && b <= 0x7e:
			out = append(out, b)
		}
	}
	return string(out)
}

// ReadASCII reads at most maxBytes from r and filters the result with ASCIIOnly.
func ReadASCII(r io.Reader, maxBytes int64) (string, error) {
	buf, err := io.ReadAll(io.LimitReader(r, maxBytes))
	if err != nil {
		return "", err
	}
	return ASCIIOnly(buf), nil
}

// DecodeLossy decodes buf as UTF-8, replacing invalid sequences with U+FFFD.
func DecodeLossy(buf []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(buf)
	if err != nil {
		return string(buf)
	}
	return string(out)
}

// ReadLossy reads a whole file and decodes it with DecodeLossy.
func ReadLossy(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ioError("read file", path, err)
	}
	return DecodeLossy(data), nil
}

// ReadTextFiles returns the ASCII-filtered head of every path that is a
// regular file. Paths that are not regular files are skipped; an open or read
// failure fails the whole call. Output order follows paths.
func ReadTextFiles(ctx context.Context, paths []string, maxBytes int64, concurrency int) ([]FileText, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*FileText, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := os.Stat(p)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
			text, err := readHead(p, maxBytes)
			if err != nil {
				return err
			}
			results[i] = &FileText{Path: p, Text: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]FileText, 0, len(paths))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func readHead(path string, maxBytes int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", ioError("open file", path, err)
	}
	defer f.Close()

	text, err := ReadASCII(bufio.NewReader(f), maxBytes)
	if err != nil {
		return "", ioError("read file", path, err)
	}
	return text, nil
}

func ioError(op, path string, err error) error {
	if os.IsNotExist(err) {
		return apperr.Wrap(eris.Wrap(err, op), apperr.KindNotFound, "textio", "file not found", path)
	}
	return apperr.Wrap(eris.Wrap(err, op), apperr.KindIO, "textio", op+" failed", path)
}
