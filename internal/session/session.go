package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/xqdb/internal/importer"
	"github.com/roach88/xqdb/internal/node"
	"github.com/roach88/xqdb/internal/query"
	"github.com/roach88/xqdb/internal/store"
	"github.com/roach88/xqdb/internal/table"
)

// DefaultCacheSize is the default number of compiled queries kept.
const DefaultCacheSize = 128

// Session serves queries and updates over the documents of one store.
//
// Thread-safety model:
//   - Query, QueryAll, Documents, Table: safe from any goroutine (read lock)
//   - Create, Drop, Insert, InsertAttribute, Delete: safe from any
//     goroutine (write lock); they wait for open Results to close
type Session struct {
	mu     sync.RWMutex
	id     string
	store  *store.Store
	tables map[string]*table.Table
	clock  *Clock
	cache  *lru.Cache[string, *query.Compiled]
	closed bool

	logger    *slog.Logger
	ids       IDGenerator
	timeout   time.Duration
	maxSteps  int64
	cacheSize int
	importing importer.Options
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithTimeout bounds the run time of each query. 0 means no bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithMaxSteps limits the clause steps of each query. 0 means unlimited.
func WithMaxSteps(n int64) Option {
	return func(s *Session) { s.maxSteps = n }
}

// WithCacheSize sets the number of compiled queries kept.
func WithCacheSize(n int) Option {
	return func(s *Session) { s.cacheSize = n }
}

// WithIDGenerator replaces the UUIDv7 id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Session) { s.ids = g }
}

// WithImportOptions sets how documents and fragments are parsed.
func WithImportOptions(o importer.Options) Option {
	return func(s *Session) { s.importing = o }
}

// Open opens the store at path and loads all of its documents.
func Open(ctx context.Context, path string, opts ...Option) (*Session, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, st, opts...)
	if err != nil {
		st.Close()
		return nil, err
	}
	return s, nil
}

// New creates a session over an open store. The session takes ownership
// of the store and closes it in Close.
func New(ctx context.Context, st *store.Store, opts ...Option) (*Session, error) {
	s := &Session{
		store:     st,
		tables:    make(map[string]*table.Table),
		logger:    slog.Default(),
		ids:       UUIDv7Generator{},
		maxSteps:  query.DefaultMaxSteps,
		cacheSize: DefaultCacheSize,
		importing: importer.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}

	cache, err := lru.New[string, *query.Compiled](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	s.cache = cache
	s.id = s.ids.Generate()
	s.logger = s.logger.With("session", s.id)

	seq, err := st.MaxSeq(ctx)
	if err != nil {
		return nil, err
	}
	s.clock = NewClockAt(seq)

	docs, err := st.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		t, err := st.LoadTable(ctx, d.Name)
		if err != nil {
			return nil, err
		}
		s.tables[d.Name] = t
	}
	s.logger.Info("session opened", "documents", len(docs), "seq", seq)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Close releases the store. Open Results must be closed first.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.tables = nil
	s.cache.Purge()
	s.logger.Info("session closed")
	return s.store.Close()
}

// Documents lists the stored documents ordered by name.
func (s *Session) Documents(ctx context.Context) ([]store.DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, &Error{Code: ErrCodeClosed, Op: "documents"}
	}
	return s.store.ListDocuments(ctx)
}

// Table calls fn with the loaded table of name under the read lock. The
// table must not be retained or modified.
func (s *Session) Table(name string, fn func(*table.Table) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table("table", name)
	if err != nil {
		return err
	}
	return fn(t)
}

// Create parses r as XML and stores it as document name. uri is the
// document URI; it defaults to name.
func (s *Session) Create(ctx context.Context, name string, r io.Reader, uri string) (store.DocumentInfo, error) {
	if uri == "" {
		uri = name
	}
	t, err := importer.Parse(r, name, uri, s.importing)
	if err != nil {
		return store.DocumentInfo{}, fmt.Errorf("create %s: %w", name, err)
	}
	return s.CreateTable(ctx, t)
}

// CreateTable stores a table built elsewhere under its name.
func (s *Session) CreateTable(ctx context.Context, t *table.Table) (store.DocumentInfo, error) {
	name := t.Name()
	if err := validName(name); err != nil {
		return store.DocumentInfo{}, &Error{Code: ErrCodeInvalidTarget, Op: "create", Document: name, Err: err}
	}
	if err := t.Validate(); err != nil {
		return store.DocumentInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.DocumentInfo{}, &Error{Code: ErrCodeClosed, Op: "create"}
	}
	if _, ok := s.tables[name]; ok {
		return store.DocumentInfo{}, &Error{Code: ErrCodeExists, Op: "create", Document: name}
	}
	info, err := s.store.SaveTable(ctx, t, s.clock.Next())
	if err != nil {
		return store.DocumentInfo{}, err
	}
	s.tables[name] = t
	s.logger.Info("document created", "document", name, "nodes", info.Nodes, "seq", info.Updated)
	return info, nil
}

// Drop removes document name.
func (s *Session) Drop(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.table("drop", name); err != nil {
		return err
	}
	if err := s.store.DropDocument(ctx, name); err != nil {
		return err
	}
	delete(s.tables, name)
	s.logger.Info("document dropped", "document", name)
	return nil
}

// Insert parses fragment and appends its nodes as the last children of
// the node at parent in document name.
func (s *Session) Insert(ctx context.Context, name string, parent int, fragment string) (store.DocumentInfo, error) {
	frag, err := importer.ParseFragment(strings.NewReader(fragment), s.importing)
	if err != nil {
		return store.DocumentInfo{}, fmt.Errorf("insert into %s: %w", name, err)
	}
	return s.update(ctx, "insert", name, func(t *table.Table) error {
		for _, root := range frag.Roots() {
			if _, err := t.InsertSubtree(parent, frag, root); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertAttribute adds an attribute to the element at pre.
func (s *Session) InsertAttribute(ctx context.Context, name string, pre int, attr, value string) (store.DocumentInfo, error) {
	return s.update(ctx, "insert attribute", name, func(t *table.Table) error {
		_, err := t.InsertAttr(pre, attr, value)
		return err
	})
}

// Delete removes the node at pre and its subtree. The document node
// itself cannot be deleted; use Drop.
func (s *Session) Delete(ctx context.Context, name string, pre int) (store.DocumentInfo, error) {
	return s.update(ctx, "delete", name, func(t *table.Table) error {
		if pre == 0 {
			return fmt.Errorf("cannot delete the document node")
		}
		return t.Delete(pre)
	})
}

// update applies fn to the table of name and persists the result. If fn
// or the write fails, the table is reloaded from the store.
func (s *Session) update(ctx context.Context, op, name string, fn func(*table.Table) error) (store.DocumentInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(op, name)
	if err != nil {
		return store.DocumentInfo{}, err
	}

	if err := fn(t); err != nil {
		s.restore(ctx, name)
		return store.DocumentInfo{}, &Error{Code: ErrCodeInvalidTarget, Op: op, Document: name, Err: err}
	}
	if err := t.Validate(); err != nil {
		s.restore(ctx, name)
		return store.DocumentInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	info, err := s.store.SaveTable(ctx, t, s.clock.Next())
	if err != nil {
		s.restore(ctx, name)
		return store.DocumentInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info("document updated", "op", op, "document", name, "nodes", info.Nodes, "seq", info.Updated)
	return info, nil
}

// restore reloads name from the store after a failed update.
func (s *Session) restore(ctx context.Context, name string) {
	t, err := s.store.LoadTable(ctx, name)
	if err != nil {
		s.logger.Error("restore failed", "document", name, "error", err)
		delete(s.tables, name)
		return
	}
	s.tables[name] = t
}

// table returns the loaded table of name. Callers hold the lock.
func (s *Session) table(op, name string) (*table.Table, error) {
	if s.closed {
		return nil, &Error{Code: ErrCodeClosed, Op: op}
	}
	t, ok := s.tables[name]
	if !ok {
		return nil, &Error{Code: ErrCodeNotFound, Op: op, Document: name}
	}
	return t, nil
}

// resolveDoc implements fn:doc over the loaded tables. A database name
// resolves to its first node; "db/uri" to the document uri in db; any
// other uri to the first document with that uri, by database name.
// Callers hold the read lock.
func (s *Session) resolveDoc(uri string) (*node.Node, error) {
	if t, ok := s.tables[uri]; ok && t.Len() > 0 {
		return node.Root(t), nil
	}
	if db, rest, ok := strings.Cut(uri, "/"); ok {
		if t, ok := s.tables[db]; ok {
			if p, ok := t.Document(rest); ok {
				return node.New(t, p), nil
			}
		}
	}
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := s.tables[name]
		if p, ok := t.Document(uri); ok {
			return node.New(t, p), nil
		}
	}
	return nil, nil
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("document name is empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("document name %q contains a path separator", name)
	}
	return nil
}
