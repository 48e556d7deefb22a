package tablestore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/samcharles93/db2kit/internal/layout"
	"github.com/samcharles93/db2kit/internal/logger"
	"github.com/samcharles93/db2kit/pkg/wdc2"
)

// Config configures a Store. Layouts and Metrics may be nil.
type Config struct {
	Dir     string
	Layouts *layout.Catalog
	Metrics *Metrics
	Logger  logger.Logger
}

// Store caches parsed tables by name. Tables are immutable once loaded and
// shared by all readers.
type Store struct {
	cfg   Config
	log   logger.Logger
	group singleflight.Group

	mu    sync.Mutex
	cache map[string]*Entry
}

// New returns an empty store over cfg.Dir.
func New(cfg Config) *Store {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Store{
		cfg:   cfg,
		log:   log.With("component", "tablestore"),
		cache: make(map[string]*Entry),
	}
}

// List returns the table files in the store directory, sorted by name.
func (s *Store) List() ([]File, error) {
	if strings.TrimSpace(s.cfg.Dir) == "" {
		return nil, fmt.Errorf("tables directory is required")
	}
	return scanDir(s.cfg.Dir)
}

// Cached reports whether name is loaded.
func (s *Store) Cached(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cache[strings.ToLower(name)]
	return ok
}

// Get returns the loaded table called name, loading it on first use.
// Concurrent first requests share one load.
func (s *Store) Get(ctx context.Context, name string) (*Entry, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	s.mu.Lock()
	entry, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return entry, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		s.mu.Lock()
		existing, ok := s.cache[key]
		s.mu.Unlock()
		if ok {
			return existing, nil
		}

		file, err := s.find(key)
		if err != nil {
			return nil, err
		}
		entry, err := s.load(file)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.cache[key] = entry
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

func (s *Store) find(key string) (File, error) {
	files, err := s.List()
	if err != nil {
		return File{}, err
	}
	for _, f := range files {
		if strings.ToLower(f.Name) == key {
			return f, nil
		}
	}
	return File{}, fmt.Errorf("%w: %s", ErrTableNotFound, key)
}

func (s *Store) load(f File) (*Entry, error) {
	start := time.Now()
	tbl, err := Open(f.Path)
	if err != nil {
		s.cfg.Metrics.observeLoad(time.Since(start), 0, err)
		s.log.Error("table load failed", "table", f.Name, "path", f.Path, "error", err)
		return nil, fmt.Errorf("load %s: %w", f.Name, err)
	}
	specs, named, err := s.cfg.Layouts.Resolve(f.Name, tbl)
	if err != nil {
		s.cfg.Metrics.observeLoad(time.Since(start), 0, err)
		s.log.Error("layout does not fit table", "table", f.Name, "error", err)
		return nil, err
	}
	if rows := tbl.Len() - len(tbl.CopyTable()); rows != tbl.RecordCount() {
		s.log.Debug("row count differs from header", "table", f.Name, "rows", rows, "declared", tbl.RecordCount())
	}
	elapsed := time.Since(start)
	s.cfg.Metrics.observeLoad(elapsed, tbl.Len(), nil)
	s.log.Info("table loaded",
		"table", f.Name,
		"rows", tbl.Len(),
		"fields", tbl.FieldCount(),
		"layout", fmt.Sprintf("%08X", tbl.Header().LayoutHash),
		"named", named,
		"elapsed", elapsed)
	return &Entry{
		Name:     f.Name,
		File:     f,
		Table:    tbl,
		Specs:    specs,
		Named:    named,
		LoadedAt: time.Now(),
		metrics:  s.cfg.Metrics,
	}, nil
}

// Preload loads the named tables, or every table in the directory when
// names is empty, with at most limit loads in flight. The first failure
// cancels the rest.
func (s *Store) Preload(ctx context.Context, names []string, limit int) error {
	if len(names) == 0 {
		files, err := s.List()
		if err != nil {
			return err
		}
		for _, f := range files {
			names = append(names, f.Name)
		}
	}
	if limit <= 0 {
		limit = 4
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, name := range names {
		g.Go(func() error {
			_, err := s.Get(ctx, name)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("preload: %w", err)
	}
	s.log.Info("preload complete", "tables", len(names))
	return nil
}

// Entry is one cached table plus the field specs used to decode it.
type Entry struct {
	Name     string
	File     File
	Table    *wdc2.Table
	Specs    []wdc2.FieldSpec
	Named    bool
	LoadedAt time.Time

	metrics *Metrics
}

// Record decodes the row stored under id.
func (e *Entry) Record(id int32) (Record, error) {
	row, ok := e.Table.Row(id)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s id %d", ErrRowNotFound, e.Name, id)
	}
	vals, err := row.Clone().Read(e.Specs)
	if err != nil {
		return Record{}, err
	}
	e.metrics.observeDecoded(1)
	return Record{ID: id, Fields: vals}, nil
}

// Records decodes up to limit rows in id order starting at offset.
func (e *Entry) Records(offset, limit int) ([]Record, error) {
	ids := e.Table.IDs()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) || limit <= 0 {
		return []Record{}, nil
	}
	ids = ids[offset:min(len(ids), offset+limit)]
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := e.Record(id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
