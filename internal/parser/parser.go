// Package parser reads migration documents from files and converts them to
// the migration.Document the rest of relcore operates on. The format is
// picked from the file extension.
package parser

import (
	"io"
	"path/filepath"
	"strings"

	"relcore/internal/migration"
	"relcore/internal/parser/toml"
)

// Parser reads a migration document in one format.
type Parser interface {
	Parse(r io.Reader) (*migration.Document, error)
	ParseFile(path string) (*migration.Document, error)
}

// ForPath returns the parser for the file's extension.
func ForPath(path string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.NewParser(), nil
	default:
		return nil, &UnsupportedFormatError{Path: path}
	}
}

// ParseFile parses the migration document at path.
func ParseFile(path string) (*migration.Document, error) {
	p, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	return p.ParseFile(path)
}

type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return "unsupported file format: " + e.Path
}
