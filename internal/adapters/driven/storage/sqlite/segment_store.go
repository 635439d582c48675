package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
)

// segmentStore implements driven.SegmentStore.
type segmentStore struct {
	store *Store
}

var _ driven.SegmentStore = (*segmentStore)(nil)

const documentColumns = `id, source, uri, title, content, encoding, metadata, created_at`

// SaveDocument stores or updates a document.
func (s *segmentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	metadata, err := marshalJSON(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			uri = excluded.uri,
			title = excluded.title,
			content = excluded.content,
			encoding = excluded.encoding,
			metadata = excluded.metadata
	`, doc.ID, string(doc.Source), doc.URI, doc.Title, doc.Text, doc.Encoding, metadata, doc.CreatedAt.UTC())

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *segmentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// ListDocuments returns all documents, newest first.
func (s *segmentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// SaveSegments replaces the segments of a document.
func (s *segmentStore) SaveSegments(ctx context.Context, documentID string, segments []domain.Segment) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE id = ?", documentID).Scan(&exists); err != nil {
		return fmt.Errorf("checking document: %w", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM segments WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing segments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO segments (document_id, ordinal, start_offset, end_offset, byte_start, byte_end,
			content, digest, boundary, degraded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range segments {
		seg := &segments[i]
		if _, err := stmt.ExecContext(ctx, documentID, seg.Ordinal, seg.Start, seg.End,
			seg.ByteStart, seg.ByteEnd, seg.Text, seg.Digest, string(seg.Boundary), seg.Degraded); err != nil {
			return fmt.Errorf("saving segment %d: %w", seg.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetSegments returns a document's segments in ordinal order.
func (s *segmentStore) GetSegments(ctx context.Context, documentID string) ([]domain.Segment, error) {
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, ordinal, start_offset, end_offset, byte_start, byte_end,
			content, digest, boundary, degraded
		FROM segments WHERE document_id = ?
		ORDER BY ordinal
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying segments: %w", err)
	}
	defer rows.Close()

	var segments []domain.Segment //nolint:prealloc // size unknown from query
	for rows.Next() {
		var seg domain.Segment
		var boundary string
		if err := rows.Scan(&seg.DocumentID, &seg.Ordinal, &seg.Start, &seg.End, &seg.ByteStart,
			&seg.ByteEnd, &seg.Text, &seg.Digest, &boundary, &seg.Degraded); err != nil {
			return nil, fmt.Errorf("scanning segment: %w", err)
		}
		seg.Boundary = domain.BoundaryKind(boundary)
		segments = append(segments, seg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating segments: %w", err)
	}
	return segments, nil
}

// DeleteDocument removes a document and, by cascade, its segments.
func (s *segmentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var source string
	var metadata sql.NullString
	var createdAt sql.NullTime
	if err := row.Scan(&doc.ID, &source, &doc.URI, &doc.Title, &doc.Text,
		&doc.Encoding, &metadata, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Source = domain.SourceKind(source)
	if err := unmarshalJSON(metadata, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}
	return &doc, nil
}
