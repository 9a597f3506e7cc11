package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/xqdb/internal/table"
)

// DocumentInfo describes a stored document.
type DocumentInfo struct {
	Name    string `json:"name"`
	Nodes   int    `json:"nodes"`
	Hash    string `json:"hash"`
	Created int64  `json:"created_seq"`
	Updated int64  `json:"updated_seq"`
}

// Document returns the description of one document.
func (s *Store) Document(ctx context.Context, name string) (DocumentInfo, error) {
	info := DocumentInfo{Name: name}
	err := s.db.QueryRowContext(ctx, `
		SELECT node_count, content_hash, created_seq, updated_seq
		FROM documents WHERE name = ?
	`, name).Scan(&info.Nodes, &info.Hash, &info.Created, &info.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return DocumentInfo{}, fmt.Errorf("document %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("query document: %w", err)
	}
	return info, nil
}

// ListDocuments returns all documents ordered by name.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	docs := []DocumentInfo{}
	err := s.each(ctx, func(rows *sql.Rows) error {
		var d DocumentInfo
		if err := rows.Scan(&d.Name, &d.Nodes, &d.Hash, &d.Created, &d.Updated); err != nil {
			return err
		}
		docs = append(docs, d)
		return nil
	}, `
		SELECT name, node_count, content_hash, created_seq, updated_seq
		FROM documents
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// MaxSeq returns the largest logical time recorded, or 0 for an empty
// store. Used to resume a logical clock.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(updated_seq), 0) FROM documents`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq, nil
}

// ReadRecords returns up to count records of a document starting at
// position from, without loading the table.
func (s *Store) ReadRecords(ctx context.Context, name string, from, count int) ([]table.Record, error) {
	if _, err := s.Document(ctx, name); err != nil {
		return nil, err
	}
	recs := []table.Record{}
	err := s.each(ctx, func(rows *sql.Rows) error {
		r, err := scanRecord(rows)
		if err != nil {
			return err
		}
		recs = append(recs, r)
		return nil
	}, `
		SELECT kind, name_id, size, att_size, text_id, ns_id
		FROM nodes
		WHERE doc = ? AND pre >= ?
		ORDER BY pre ASC
		LIMIT ?
	`, name, from, count)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return recs, nil
}

// LoadTable reads a whole document back into a table and validates it.
// A stored image that violates the table invariants is reported as a
// *table.StructuralError.
func (s *Store) LoadTable(ctx context.Context, name string) (*table.Table, error) {
	if _, err := s.Document(ctx, name); err != nil {
		return nil, err
	}
	t := table.New(name)

	err := s.each(ctx, func(rows *sql.Rows) error {
		var id int32
		var n string
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		if got := t.Names().Index(n); got != id {
			return fmt.Errorf("name %q stored as id %d, loaded as %d", n, id, got)
		}
		return nil
	}, `SELECT id, name FROM names WHERE doc = ? ORDER BY id ASC`, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: names: %w", name, err)
	}

	err = s.each(ctx, func(rows *sql.Rows) error {
		var id int32
		var v string
		if err := rows.Scan(&id, &v); err != nil {
			return err
		}
		if got := t.AddText(v); got != id {
			return fmt.Errorf("text stored as id %d, loaded as %d", id, got)
		}
		return nil
	}, `SELECT id, value FROM texts WHERE doc = ? ORDER BY id ASC`, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: texts: %w", name, err)
	}

	var (
		curID = int32(-1)
		decls []table.NSBinding
	)
	flush := func() error {
		if curID < 0 {
			return nil
		}
		if got := t.AddNamespaces(decls); got != curID {
			return fmt.Errorf("namespaces stored as id %d, loaded as %d", curID, got)
		}
		decls = nil
		return nil
	}
	err = s.each(ctx, func(rows *sql.Rows) error {
		var id int32
		var b table.NSBinding
		if err := rows.Scan(&id, &b.Prefix, &b.URI); err != nil {
			return err
		}
		if id != curID {
			if err := flush(); err != nil {
				return err
			}
			curID = id
		}
		decls = append(decls, b)
		return nil
	}, `SELECT id, prefix, uri FROM namespaces WHERE doc = ? ORDER BY id ASC, pos ASC`, name)
	if err == nil {
		err = flush()
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: namespaces: %w", name, err)
	}

	err = s.each(ctx, func(rows *sql.Rows) error {
		r, err := scanRecord(rows)
		if err != nil {
			return err
		}
		t.Append(r)
		return nil
	}, `
		SELECT kind, name_id, size, att_size, text_id, ns_id
		FROM nodes WHERE doc = ? ORDER BY pre ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: nodes: %w", name, err)
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return t, nil
}

func scanRecord(rows *sql.Rows) (table.Record, error) {
	var (
		r    table.Record
		kind int
	)
	if err := rows.Scan(&kind, &r.Name, &r.Size, &r.AttSize, &r.Text, &r.NS); err != nil {
		return table.Record{}, err
	}
	r.Kind = table.Kind(kind)
	return r, nil
}

// each runs query and calls fn for every row.
func (s *Store) each(ctx context.Context, fn func(*sql.Rows) error, query string, args ...any) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
