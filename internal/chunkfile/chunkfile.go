// Package chunkfile writes extracted chunks to disk under collision-free,
// filesystem-safe names.
package chunkfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/ragutil/internal/apperr"
	"github.com/rotisserie/eris"
)

const (
	DefaultBase = "chunk"
	DefaultExt  = "md"
	maxAttempts = 9999
)

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	underscores = regexp.MustCompile(`_+`)
)

// Sanitize keeps ASCII letters, digits, dot, dash and underscore, mapping
// everything else to a single underscore and trimming underscores at the ends.
func Sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	s = underscores.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// Save writes contents to dir as base.ext, or base--N.ext for the first N
// that does not exist yet. It returns the path written.
func Save(dir, base, ext, contents string) (string, error) {
	const op = "save chunk"
	if strings.TrimSpace(dir) == "" {
		return "", apperr.New(apperr.KindInvalid, op, "dir is required", "")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", apperr.Wrap(eris.Wrap(err, "mkdir"), apperr.KindIO, op, "mkdir failed", dir)
	}

	ext = Sanitize(strings.Trim(ext, "."))
	if ext == "" {
		ext = DefaultExt
	}
	base = Sanitize(base)
	if base == "" {
		base = DefaultBase
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		name := fmt.Sprintf("%s.%s", base, ext)
		if attempt > 1 {
			name = fmt.Sprintf("%s--%d.%s", base, attempt, ext)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", apperr.Wrap(eris.Wrap(err, "create"), apperr.KindIO, op, "write failed", path)
		}
		_, werr := f.WriteString(contents)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			return "", apperr.Wrap(eris.Wrap(errors.Join(werr, cerr), "write"), apperr.KindIO, op, "write failed", path)
		}
		return path, nil
	}
	return "", apperr.New(apperr.KindIO, op, "too many conflicts", filepath.Join(dir, base+"."+ext))
}
