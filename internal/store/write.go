package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/xqdb/internal/table"
)

// SaveTable writes t under its name, replacing any previous image of the
// document. seq is the logical time of the write; the creation time of an
// existing document is kept.
func (s *Store) SaveTable(ctx context.Context, t *table.Table, seq int64) (DocumentInfo, error) {
	if t.InMemory() {
		return DocumentInfo{}, errors.New("save table: table has no name")
	}
	info := DocumentInfo{
		Name:    t.Name(),
		Nodes:   t.Len(),
		Hash:    ContentHash(t),
		Created: seq,
		Updated: seq,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("save table: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `SELECT created_seq FROM documents WHERE name = ?`, info.Name).Scan(&info.Created)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return DocumentInfo{}, fmt.Errorf("save table: %w", err)
	}
	if err := deleteDocument(ctx, tx, info.Name); err != nil {
		return DocumentInfo{}, fmt.Errorf("save table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (name, node_count, content_hash, created_seq, updated_seq)
		VALUES (?, ?, ?, ?, ?)
	`, info.Name, info.Nodes, info.Hash, info.Created, info.Updated); err != nil {
		return DocumentInfo{}, fmt.Errorf("save table: %w", err)
	}
	if err := writeDictionaries(ctx, tx, t); err != nil {
		return DocumentInfo{}, fmt.Errorf("save table: %w", err)
	}
	if err := writeNodes(ctx, tx, t); err != nil {
		return DocumentInfo{}, fmt.Errorf("save table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return DocumentInfo{}, fmt.Errorf("save table: %w", err)
	}
	return info, nil
}

// DropDocument removes a document and all of its rows.
func (s *Store) DropDocument(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("drop document: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE name = ?`, name).Scan(&n); err != nil {
		return fmt.Errorf("drop document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("drop document %q: %w", name, ErrNotFound)
	}
	if err := deleteDocument(ctx, tx, name); err != nil {
		return fmt.Errorf("drop document: %w", err)
	}
	return tx.Commit()
}

// deleteDocument removes every row of name. Child tables are cleared
// explicitly so the result does not depend on foreign key enforcement.
func deleteDocument(ctx context.Context, tx *sql.Tx, name string) error {
	for _, tbl := range []string{"nodes", "names", "texts", "namespaces"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+tbl+" WHERE doc = ?", name); err != nil {
			return fmt.Errorf("delete %s: %w", tbl, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func writeDictionaries(ctx context.Context, tx *sql.Tx, t *table.Table) error {
	name := t.Name()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO names (doc, id, name) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for id, n := range t.Names().All() {
		if id == 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, name, id, n); err != nil {
			return fmt.Errorf("write name %d: %w", id, err)
		}
	}

	textStmt, err := tx.PrepareContext(ctx, `INSERT INTO texts (doc, id, value) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer textStmt.Close()
	for id, v := range t.Texts() {
		if _, err := textStmt.ExecContext(ctx, name, id, v); err != nil {
			return fmt.Errorf("write text %d: %w", id, err)
		}
	}

	nsStmt, err := tx.PrepareContext(ctx, `INSERT INTO namespaces (doc, id, pos, prefix, uri) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nsStmt.Close()
	for id, decls := range t.NSDecls() {
		for pos, b := range decls {
			if _, err := nsStmt.ExecContext(ctx, name, id, pos, b.Prefix, b.URI); err != nil {
				return fmt.Errorf("write namespaces %d: %w", id, err)
			}
		}
	}
	return nil
}

func writeNodes(ctx context.Context, tx *sql.Tx, t *table.Table) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (doc, pre, kind, name_id, size, att_size, text_id, ns_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	name := t.Name()
	for pre, r := range t.Records(0, t.Len()) {
		if _, err := stmt.ExecContext(ctx, name, pre, int(r.Kind), r.Name, r.Size, r.AttSize, r.Text, r.NS); err != nil {
			return fmt.Errorf("write node %d: %w", pre, err)
		}
	}
	return nil
}
