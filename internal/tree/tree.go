// Package tree scans a directory into an ordered FileNode hierarchy, honoring
// a single .gitignore found at the scan root.
package tree

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgallion1/ragutil/internal/apperr"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

// IgnoreFile is the only ignore-pattern file consulted, and only at the root.
const IgnoreFile = ".gitignore"

// FileNode is one filesystem entry. Directories always carry a non-nil
// Children slice; files carry nil.
type FileNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	IsDir    bool        `json:"isDir"`
	Children []*FileNode `json:"children"`
}

// Scan walks root depth-first and returns its tree. Entries whose name starts
// with a dot are skipped, as is anything matched by the root .gitignore.
func Scan(root string) (*FileNode, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound("scan", "path", root)
		}
		return nil, apperr.Wrap(eris.Wrap(err, "stat root"), apperr.KindIO, "scan", "cannot read path", root)
	}
	if !info.IsDir() {
		return nil, apperr.New(apperr.KindIO, "scan", "not a directory", root)
	}

	s := &scanner{root: root, matcher: loadIgnore(root)}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, apperr.Wrap(eris.Wrap(err, "read root"), apperr.KindIO, "scan", "cannot read directory", root)
	}
	return &FileNode{
		Name:     nodeName(root),
		Path:     root,
		IsDir:    true,
		Children: s.children(root, entries),
	}, nil
}

type scanner struct {
	root    string
	matcher gitignore.Matcher // nil when no usable ignore file exists
}

// loadIgnore parses <root>/.gitignore. Any failure means no filtering.
func loadIgnore(root string) gitignore.Matcher {
	f, err := os.Open(filepath.Join(root, IgnoreFile))
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []gitignore.Pattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if err := sc.Err(); err != nil {
		log.Debug().Err(err).Str("root", root).Msg("ignore file unreadable, scanning unfiltered")
		return nil
	}
	if len(patterns) == 0 {
		return nil
	}
	return gitignore.NewMatcher(patterns)
}

func (s *scanner) ignored(path string, isDir bool) bool {
	if s.matcher == nil {
		return false
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." {
		return false
	}
	return s.matcher.Match(strings.Split(filepath.ToSlash(rel), "/"), isDir)
}

func (s *scanner) dir(path string) *FileNode {
	node := &FileNode{
		Name:     nodeName(path),
		Path:     path,
		IsDir:    true,
		Children: []*FileNode{},
	}
	// An ignored directory is reported but not descended into.
	if s.ignored(path, true) {
		return node
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("skipping unreadable directory")
		return node
	}
	node.Children = s.children(path, entries)
	return node
}

func (s *scanner) children(dir string, entries []os.DirEntry) []*FileNode {
	children := make([]*FileNode, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, err := e.Info(); err != nil {
			log.Debug().Err(err).Str("name", name).Msg("skipping entry without metadata")
			continue
		}
		p := filepath.Join(dir, name)
		isDir := e.IsDir()
		if s.ignored(p, isDir) {
			continue
		}
		if isDir {
			children = append(children, s.dir(p))
			continue
		}
		children = append(children, &FileNode{Name: name, Path: p})
	}
	sortNodes(children)
	return children
}

// sortNodes orders directories before files, then by case-insensitive name.
func sortNodes(nodes []*FileNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}

func nodeName(path string) string {
	name := filepath.Base(filepath.Clean(path))
	if name == "." || name == string(filepath.Separator) {
		return path
	}
	return name
}
