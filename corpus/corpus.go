// Package corpus locates the document corpus and enumerates its files.
package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrDuplicateDocumentID = errors.New("duplicate document id")

const DefaultPattern = "*.pdf"

// Document is a source file in the corpus. ID is the file name without its
// extension and is the prefix of every chunk id derived from the file.
type Document struct {
	ID   string
	Name string
	Path string
}

// Exists reports whether dir is an existing directory.
func Exists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// Discover lists the files in dir matching pattern, sorted by name. A file
// whose id is already taken by an earlier name is left out and returned in
// duplicates instead.
func Discover(dir, pattern string) (docs []Document, duplicates []string, err error) {
	if pattern == "" {
		pattern = DefaultPattern
	}

	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, nil, err
	}

	// sorted by file name
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	docs = make([]Document, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// case-insensitive so that FOO.PDF is picked up alongside foo.pdf
		ok, _ := filepath.Match(strings.ToLower(pattern), strings.ToLower(name))
		if !ok {
			continue
		}

		id := strings.TrimSuffix(name, filepath.Ext(name))
		if seen[id] {
			duplicates = append(duplicates, name)
			continue
		}
		seen[id] = true

		docs = append(docs, Document{
			ID:   id,
			Name: name,
			Path: filepath.Join(dir, name),
		})
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Name < docs[j].Name
	})

	return docs, duplicates, nil
}

// FindRoot walks upward from start until it finds a directory containing
// one of markers. It returns start when no such directory exists.
func FindRoot(start string, markers ...string) string {
	abs, err := filepath.Abs(start)
	if err != nil {
		return start
	}

	current := abs
	for {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return abs
		}

		current = parent
	}
}
