package bank

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"digital.vasic.predicates/pkg/logging"
	"digital.vasic.predicates/pkg/predicate"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// DefaultPattern matches bank files at any depth.
const DefaultPattern = "**/*.{yaml,yml,json}"

// Bank manages predicate definitions loaded from files.
type Bank struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
	sources     []string
	logger      logging.Logger
}

// Option configures a Bank.
type Option func(*Bank)

// WithLogger sets the logger used while loading files.
func WithLogger(logger logging.Logger) Option {
	return func(b *Bank) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a new empty Bank.
func New(opts ...Option) *Bank {
	b := &Bank{
		definitions: make(map[string]*Definition),
		logger:      logging.NullLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// LoadFile validates and loads the definitions in a YAML or
// JSON bank file. A name already loaded from another file is
// reported as a *predicate.DuplicateNameError.
func (b *Bank) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read bank file %s: %w", path, err)
	}

	return b.load(data, path)
}

func (b *Bank) load(data []byte, source string) error {
	if verrs := ValidateBytes(data); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = ve
		}
		return fmt.Errorf("invalid bank file %s: %w", source, errors.Join(errs...))
	}

	var file BankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse bank file %s: %w", source, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range file.Predicates {
		if _, exists := b.definitions[file.Predicates[i].Name]; exists {
			return fmt.Errorf(
				"bank file %s: %w", source,
				&predicate.DuplicateNameError{Name: file.Predicates[i].Name},
			)
		}
	}
	for i := range file.Predicates {
		def := file.Predicates[i]
		b.definitions[def.Name] = &def
	}
	b.sources = append(b.sources, source)

	b.logger.Debug("bank file loaded",
		logging.StringField("source", source),
		logging.StringField("bank", file.Name),
		logging.IntField("predicates", len(file.Predicates)),
	)
	return nil
}

// LoadDir loads every file under dir matching pattern, in
// lexical order. An empty pattern means DefaultPattern.
func (b *Bank) LoadDir(dir, pattern string) error {
	if pattern == "" {
		pattern = DefaultPattern
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("bank directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("bank directory %s: not a directory", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern)
	if err != nil {
		return fmt.Errorf("glob bank directory %s: %w", dir, err)
	}
	sort.Strings(matches)

	for _, m := range matches {
		p := filepath.Join(dir, filepath.FromSlash(m))
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		if info.IsDir() {
			continue
		}
		if err := b.LoadFile(p); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves a definition by name.
func (b *Bank) Get(name string) (*Definition, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	def, ok := b.definitions[name]
	return def, ok
}

// All returns all loaded definitions sorted by name.
func (b *Bank) All() []*Definition {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Definition, 0, len(b.definitions))
	for _, def := range b.definitions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Count returns the number of loaded definitions.
func (b *Bank) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.definitions)
}

// Sources returns the list of loaded file paths.
func (b *Bank) Sources() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.sources))
	copy(out, b.sources)
	return out
}

// Install compiles every definition and registers it in reg.
// Definitions are installed in dependency order so they may
// reference each other regardless of file order. References
// must resolve to a predicate in the bank or already in reg.
// Nothing is registered unless every definition compiles and
// no name is already taken in reg.
func (b *Bank) Install(reg predicate.Registry) error {
	b.mu.RLock()
	ordered, err := topologicalSort(b.definitions)
	b.mu.RUnlock()
	if err != nil {
		return err
	}

	staged := &overlay{
		Registry: reg,
		staged:   make(map[string]*predicate.Predicate, len(ordered)),
	}
	compiled := make([]*predicate.Predicate, 0, len(ordered))
	for _, def := range ordered {
		if reg.Has(def.Name) {
			return fmt.Errorf("install %s: %w", def.Name,
				&predicate.DuplicateNameError{Name: def.Name})
		}
		p, err := def.Compile(staged)
		if err != nil {
			return fmt.Errorf("predicate %s: %w", def.Name, err)
		}
		staged.staged[p.Name] = p
		compiled = append(compiled, p)
	}

	for _, p := range compiled {
		if err := reg.RegisterPredicate(p); err != nil {
			return fmt.Errorf("install %s: %w", p.Name, err)
		}
	}

	b.logger.Debug("bank installed",
		logging.IntField("predicates", len(compiled)),
		logging.IntField("sources", len(b.Sources())),
	)
	return nil
}

// overlay resolves staged predicates before falling back to the
// target registry.
type overlay struct {
	predicate.Registry
	staged map[string]*predicate.Predicate
}

func (o *overlay) Lookup(name string) (*predicate.Predicate, error) {
	if p, ok := o.staged[name]; ok {
		return p, nil
	}
	return o.Registry.Lookup(name)
}

func (o *overlay) Has(name string) bool {
	_, ok := o.staged[name]
	return ok || o.Registry.Has(name)
}

// Compile resolves the definition's references in reg and
// builds a predicate.
func (d *Definition) Compile(reg predicate.Registry) (*predicate.Predicate, error) {
	var clauses []predicate.Func

	if len(d.AllOf) > 0 {
		preds, err := lookupAll(reg, d.AllOf)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, predicate.AllOf(preds...))
	}
	if len(d.AnyOf) > 0 {
		preds, err := lookupAll(reg, d.AnyOf)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, predicate.AnyOf(preds...))
	}
	if d.Not != "" {
		p, err := reg.Lookup(d.Not)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, predicate.Not(p))
	}
	if len(d.HasKeys) > 0 {
		clauses = append(clauses, predicate.HasKeys(d.HasKeys...))
	}

	return &predicate.Predicate{
		Name:        d.Name,
		Description: d.Description,
		Test: func(value any) bool {
			for _, c := range clauses {
				if !c(value) {
					return false
				}
			}
			return true
		},
	}, nil
}

func lookupAll(reg predicate.Registry, names []string) ([]*predicate.Predicate, error) {
	out := make([]*predicate.Predicate, 0, len(names))
	for _, n := range names {
		p, err := reg.Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadFS is like LoadDir but reads from an fs.FS, which lets
// callers ship banks with go:embed.
func (b *Bank) LoadFS(fsys fs.FS, pattern string) error {
	if pattern == "" {
		pattern = DefaultPattern
	}
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return fmt.Errorf("glob bank fs: %w", err)
	}
	sort.Strings(matches)

	for _, m := range matches {
		info, err := fs.Stat(fsys, m)
		if err != nil {
			return fmt.Errorf("stat %s: %w", m, err)
		}
		if info.IsDir() {
			continue
		}
		data, err := fs.ReadFile(fsys, m)
		if err != nil {
			return fmt.Errorf("read bank file %s: %w", m, err)
		}
		if err := b.load(data, m); err != nil {
			return err
		}
	}
	return nil
}
