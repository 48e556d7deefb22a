// Package layout loads YAML table definitions that name and type the
// columns of WDC2 tables. A file looks like:
//
//	tables:
//	  - name: Map
//	    layout_hashes: [0xA1B2C3D4]
//	    fields:
//	      - {name: ID, type: int32}
//	      - {name: Directory, type: string}
//	      - {name: Flags, type: int32, array: 2}
//	      - {name: ParentMapID, type: int32, index: 9}
//
// Fields without an index take the next column in order.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samcharles93/db2kit/pkg/wdc2"
)

// ErrInvalid reports a definition that cannot be compiled to field specs.
var ErrInvalid = errors.New("layout: invalid definition")

// Field is one named column.
type Field struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Array int    `yaml:"array,omitempty"`
	Index *int   `yaml:"index,omitempty"`
}

// Definition describes one table. An empty LayoutHashes list matches any
// file with the same name.
type Definition struct {
	Name         string   `yaml:"name"`
	LayoutHashes []uint32 `yaml:"layout_hashes,omitempty"`
	Fields       []Field  `yaml:"fields"`

	specs []wdc2.FieldSpec
}

type file struct {
	Tables []*Definition `yaml:"tables"`
}

// Catalog indexes definitions by lower-cased table name.
type Catalog struct {
	defs map[string][]*Definition
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string][]*Definition)}
}

// Load reads every path; directories contribute their *.yaml and *.yml files.
func Load(paths ...string) (*Catalog, error) {
	c := NewCatalog()
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		files := []string{p}
		if st.IsDir() {
			files, err = yamlFiles(p)
			if err != nil {
				return nil, err
			}
		}
		for _, f := range files {
			data, err := os.ReadFile(f)
			if err != nil {
				return nil, err
			}
			if err := c.Add(data); err != nil {
				return nil, fmt.Errorf("%s: %w", f, err)
			}
		}
	}
	return c, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(out)
	return out, nil
}

// Add parses one YAML document and adds its definitions.
func (c *Catalog) Add(data []byte) error {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for _, d := range f.Tables {
		if d == nil {
			continue
		}
		if err := d.compile(); err != nil {
			return err
		}
		key := strings.ToLower(d.Name)
		c.defs[key] = append(c.defs[key], d)
	}
	return nil
}

func (d *Definition) compile() error {
	if d.Name == "" {
		return fmt.Errorf("%w: table without a name", ErrInvalid)
	}
	seen := make(map[string]bool, len(d.Fields))
	next := 0
	d.specs = make([]wdc2.FieldSpec, 0, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %s: field %d has no name", ErrInvalid, d.Name, next)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %s: duplicate field %s", ErrInvalid, d.Name, f.Name)
		}
		seen[f.Name] = true
		typ, err := wdc2.ParseType(f.Type)
		if err != nil {
			return fmt.Errorf("%w: %s.%s: %v", ErrInvalid, d.Name, f.Name, err)
		}
		if f.Array < 0 {
			return fmt.Errorf("%w: %s.%s: negative array size", ErrInvalid, d.Name, f.Name)
		}
		idx := next
		if f.Index != nil {
			idx = *f.Index
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s.%s: negative index", ErrInvalid, d.Name, f.Name)
		}
		d.specs = append(d.specs, wdc2.FieldSpec{Name: f.Name, Index: idx, Type: typ, ArraySize: f.Array})
		next = idx + 1
	}
	return nil
}

// Specs returns the compiled field specs in declaration order.
func (d *Definition) Specs() []wdc2.FieldSpec {
	return slices.Clone(d.specs)
}

// Matches reports whether the definition applies to a file with hash.
func (d *Definition) Matches(hash uint32) bool {
	return len(d.LayoutHashes) == 0 || slices.Contains(d.LayoutHashes, hash)
}

// Lookup finds the definition for a table name and layout hash. Definitions
// listing the hash explicitly win over hash-agnostic ones.
func (c *Catalog) Lookup(name string, hash uint32) (*Definition, bool) {
	var fallback *Definition
	for _, d := range c.defs[strings.ToLower(name)] {
		if len(d.LayoutHashes) == 0 {
			if fallback == nil {
				fallback = d
			}
			continue
		}
		if d.Matches(hash) {
			return d, true
		}
	}
	return fallback, fallback != nil
}

// Len is the number of definitions.
func (c *Catalog) Len() int {
	n := 0
	for _, ds := range c.defs {
		n += len(ds)
	}
	return n
}

// Resolve picks the specs for t: the matching definition validated against
// the table, or inferred specs when the catalog has none. The second result
// reports whether a definition was used.
func (c *Catalog) Resolve(name string, t *wdc2.Table) ([]wdc2.FieldSpec, bool, error) {
	if c == nil {
		return t.InferSpecs(), false, nil
	}
	d, ok := c.Lookup(name, t.Header().LayoutHash)
	if !ok {
		return t.InferSpecs(), false, nil
	}
	specs := d.Specs()
	if err := wdc2.ValidateSpecs(t, specs); err != nil {
		return nil, true, fmt.Errorf("layout %s: %w", d.Name, err)
	}
	return specs, true, nil
}

// TableName derives the table name from a file path: Map.db2 and
// Map.db2.zst both name "Map".
func TableName(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".zst", ".db2"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			base = base[:len(base)-len(ext)]
		}
	}
	return base
}
