package mapper

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Statement names every mapper file must define.
const (
	StatementSave     = "save"
	StatementUpdate   = "update"
	StatementFindByID = "findById"
	StatementFindAll  = "findAll"
)

var requiredStatements = []string{StatementSave, StatementUpdate, StatementFindByID, StatementFindAll}

//go:embed item_mapper.yaml
var defaultFile []byte

var (
	whereBlock    = regexp.MustCompile(`(?s)<where>(.*?)</where>`)
	leadingAndOr  = regexp.MustCompile(`(?i)^(AND|OR)\s+`)
	repeatedSpace = regexp.MustCompile(`\s+`)
)

// fileSpec is the YAML layout of a mapper file.
type fileSpec struct {
	Namespace  string                   `yaml:"namespace"`
	Statements map[string]statementSpec `yaml:"statements"`
}

type statementSpec struct {
	SQL       string `yaml:"sql"`
	KeyColumn string `yaml:"key_column"`
}

// Statement is a compiled mapper statement.
type Statement struct {
	Name      string
	KeyColumn string
	tmpl      *template.Template
}

// Render executes the statement template with data and resolves <where>
// blocks. The result still uses :name parameters.
func (s *Statement) Render(data any) (string, error) {
	var sb strings.Builder
	if err := s.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render statement %s: %w", s.Name, err)
	}
	return resolveWhere(sb.String()), nil
}

// File holds the statements of one mapper file.
type File struct {
	Namespace  string
	statements map[string]*Statement
}

// Statement returns the named statement.
func (f *File) Statement(name string) (*Statement, error) {
	st, ok := f.statements[name]
	if !ok {
		return nil, fmt.Errorf("mapper %s: unknown statement %q", f.Namespace, name)
	}
	return st, nil
}

// Default returns the mapper file embedded in the binary.
func Default() (*File, error) {
	return Parse(strings.NewReader(string(defaultFile)))
}

// LoadFile reads a mapper file from disk.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapper file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes and compiles a mapper file. Unknown keys and missing
// statements are errors.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var spec fileSpec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode mapper file: %w", err)
	}

	file := &File{
		Namespace:  spec.Namespace,
		statements: make(map[string]*Statement, len(spec.Statements)),
	}
	for name, st := range spec.Statements {
		if strings.TrimSpace(st.SQL) == "" {
			return nil, fmt.Errorf("mapper %s: statement %q has no sql", spec.Namespace, name)
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(st.SQL)
		if err != nil {
			return nil, fmt.Errorf("mapper %s: parse statement %q: %w", spec.Namespace, name, err)
		}
		file.statements[name] = &Statement{Name: name, KeyColumn: st.KeyColumn, tmpl: tmpl}
	}

	for _, name := range requiredStatements {
		if _, ok := file.statements[name]; !ok {
			return nil, fmt.Errorf("mapper %s: missing statement %q", spec.Namespace, name)
		}
	}
	return file, nil
}

func resolveWhere(sql string) string {
	return whereBlock.ReplaceAllStringFunc(sql, func(block string) string {
		body := strings.TrimSpace(whereBlock.FindStringSubmatch(block)[1])
		if body == "" {
			return ""
		}
		body = leadingAndOr.ReplaceAllString(body, "")
		return "WHERE " + repeatedSpace.ReplaceAllString(body, " ")
	})
}
