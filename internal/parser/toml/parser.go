// Package toml provides a parser for relcore TOML migration documents.
// A document lists DDL steps in order; each step is converted into the
// statement the migration engine applies.
//
//	[migration]
//	name = "hr schema"
//
//	[[steps]]
//	action = "create_table"
//	table = "departments"
//
//	[[steps.columns]]
//	name = "id"
//	type = "INTEGER"
//	primary_key = true
package toml

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"relcore/internal/ast"
	"relcore/internal/core"
	"relcore/internal/migration"
)

// Step actions.
const (
	ActionCreateTable = "create_table"
	ActionDropTable   = "drop_table"
	ActionCreateIndex = "create_index"
	ActionDropIndex   = "drop_index"
	ActionAlterTable  = "alter_table"
)

// documentFile is the top-level TOML document.
type documentFile struct {
	Migration tomlMigration `toml:"migration"`
	Steps     []tomlStep    `toml:"steps"`
}

// tomlMigration maps [migration].
type tomlMigration struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Dialect     string `toml:"dialect"`
}

// tomlStep maps [[steps]]. Which keys are meaningful depends on Action;
// columns is decoded late because create_table takes column tables while
// create_index takes column names.
type tomlStep struct {
	Action      string           `toml:"action"`
	Table       string           `toml:"table"`
	Name        string           `toml:"name"`
	IfExists    bool             `toml:"if_exists"`
	IfNotExists bool             `toml:"if_not_exists"`
	Behavior    string           `toml:"behavior"`
	Unique      bool             `toml:"unique"`
	Columns     toml.Primitive   `toml:"columns"`
	PrimaryKey  []string         `toml:"primary_key"`
	Uniques     [][]string       `toml:"uniques"`
	Checks      []string         `toml:"checks"`
	ForeignKeys []tomlForeignKey `toml:"foreign_keys"`
	Operations  []tomlOperation  `toml:"operations"`
}

// Parser reads relcore TOML migration documents.
type Parser struct{}

// NewParser creates a new TOML migration parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile opens the file at the given path and parses it as a migration document.
func (p *Parser) ParseFile(path string) (*migration.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("toml: open file %q: %w", path, err)
	}
	defer f.Close()

	return p.Parse(f)
}

// Parse reads TOML content from r and returns the migration document.
// Unknown keys are rejected so that typos do not silently change a migration.
func (p *Parser) Parse(r io.Reader) (*migration.Document, error) {
	var df documentFile
	md, err := toml.NewDecoder(r).Decode(&df)
	if err != nil {
		return nil, fmt.Errorf("toml: decode error: %w", err)
	}

	doc, err := newConverter(&df, md).convert()
	if err != nil {
		return nil, err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, core.Errorf(core.KindInvalidSchema, "toml: unknown keys: %s", strings.Join(keys, ", "))
	}
	return doc, nil
}

type converter struct {
	df *documentFile
	md toml.MetaData
}

func newConverter(df *documentFile, md toml.MetaData) *converter {
	return &converter{df: df, md: md}
}

func (c *converter) convert() (*migration.Document, error) {
	dialect, err := validateDialect(c.df.Migration.Dialect)
	if err != nil {
		return nil, err
	}

	doc := &migration.Document{
		Name:        c.df.Migration.Name,
		Description: c.df.Migration.Description,
		Dialect:     dialect,
		Statements:  make([]ast.Statement, 0, len(c.df.Steps)),
	}
	for i := range c.df.Steps {
		step := &c.df.Steps[i]
		stmt, err := c.convertStep(step)
		if err != nil {
			return nil, core.NewError(core.KindInvalidSchema, fmt.Sprintf("toml: step %d (%s)", i+1, step.label()), err)
		}
		doc.Statements = append(doc.Statements, stmt)
	}
	return doc, nil
}

func (c *converter) convertStep(s *tomlStep) (ast.Statement, error) {
	switch strings.ToLower(strings.TrimSpace(s.Action)) {
	case ActionCreateTable:
		return c.convertCreateTable(s)
	case ActionDropTable:
		return convertDropTable(s)
	case ActionCreateIndex:
		return c.convertCreateIndex(s)
	case ActionDropIndex:
		return convertDropIndex(s)
	case ActionAlterTable:
		return convertAlterTable(s)
	case "":
		return nil, fmt.Errorf("missing action")
	default:
		return nil, fmt.Errorf("unknown action %q", s.Action)
	}
}

func (s *tomlStep) label() string {
	target := s.Table
	if target == "" {
		target = s.Name
	}
	if target == "" {
		return s.Action
	}
	return s.Action + " " + target
}

// validateDialect validates the raw dialect string.
// Empty is allowed (dialect is optional); an unrecognized non-empty value is an error.
func validateDialect(raw string) (*core.Dialect, error) {
	if raw == "" {
		return nil, nil
	}
	if !core.IsValidDialect(raw) {
		return nil, core.Errorf(core.KindInvalidSchema, "toml: unsupported dialect %q; supported: %v", raw, core.SupportedDialects())
	}
	d := core.Dialect(strings.ToLower(raw))
	return &d, nil
}

func requireName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s is required", kind)
	}
	return nil
}
