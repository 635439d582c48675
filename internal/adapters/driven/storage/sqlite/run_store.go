package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

const runColumns = `id, document_id, source, title, stages, status, report, created_at, updated_at`

// SaveRun stores or updates a run.
func (s *runStore) SaveRun(ctx context.Context, run *domain.PipelineRun) error {
	stages, err := marshalJSON(run.Stages)
	if err != nil {
		return fmt.Errorf("marshalling stages: %w", err)
	}
	if !stages.Valid {
		stages = sql.NullString{String: "[]", Valid: true}
	}
	report, err := marshalJSON(run.Report)
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}

	updatedAt := run.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			source = excluded.source,
			title = excluded.title,
			stages = excluded.stages,
			status = excluded.status,
			report = excluded.report,
			updated_at = excluded.updated_at
	`, run.ID, run.DocumentID, string(run.Source), run.Title, stages, string(run.Status), report,
		run.CreatedAt.UTC(), updatedAt.UTC())

	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *runStore) GetRun(ctx context.Context, id string) (*domain.PipelineRun, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return run, err
}

// ListRuns returns up to limit runs, newest first. Zero means no limit.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.PipelineRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// SaveEntities replaces the entities recorded for a run.
func (s *runStore) SaveEntities(ctx context.Context, runID string, entities []domain.Entity) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", runID).Scan(&exists); err != nil {
		return fmt.Errorf("checking run: %w", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM run_entities WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("clearing entities: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_entities (run_id, id, type, name, scalars, sets, provenance)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range entities {
		e := &entities[i]
		scalars, err := marshalJSON(e.Scalars)
		if err != nil {
			return fmt.Errorf("marshalling scalars: %w", err)
		}
		sets, err := marshalJSON(e.Sets)
		if err != nil {
			return fmt.Errorf("marshalling sets: %w", err)
		}
		provenance, err := marshalJSON(e.Provenance)
		if err != nil {
			return fmt.Errorf("marshalling provenance: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, runID, e.ID, e.Type, e.Name, scalars, sets, provenance); err != nil {
			return fmt.Errorf("saving entity %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetEntities returns the entities recorded for a run, sorted by ID.
func (s *runStore) GetEntities(ctx context.Context, runID string) ([]domain.Entity, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, type, name, scalars, sets, provenance
		FROM run_entities WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var entities []domain.Entity //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.Entity
		var scalars, sets, provenance sql.NullString
		if err := rows.Scan(&e.ID, &e.Type, &e.Name, &scalars, &sets, &provenance); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		if err := unmarshalJSON(scalars, &e.Scalars); err != nil {
			return nil, fmt.Errorf("unmarshalling scalars: %w", err)
		}
		if err := unmarshalJSON(sets, &e.Sets); err != nil {
			return nil, fmt.Errorf("unmarshalling sets: %w", err)
		}
		if err := unmarshalJSON(provenance, &e.Provenance); err != nil {
			return nil, fmt.Errorf("unmarshalling provenance: %w", err)
		}
		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities: %w", err)
	}
	return entities, nil
}

// DeleteRun removes a run and, by cascade, its entities.
func (s *runStore) DeleteRun(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	return nil
}

func scanRun(row scanner) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	var source, status string
	var stages, report sql.NullString
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&run.ID, &run.DocumentID, &source, &run.Title, &stages, &status,
		&report, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	run.Source = domain.SourceKind(source)
	run.Status = domain.RunStatus(status)
	if err := unmarshalJSON(stages, &run.Stages); err != nil {
		return nil, fmt.Errorf("unmarshalling stages: %w", err)
	}
	if report.Valid && report.String != jsonNull {
		run.Report = &domain.RunReport{}
		if err := unmarshalJSON(report, run.Report); err != nil {
			return nil, fmt.Errorf("unmarshalling report: %w", err)
		}
	}
	if createdAt.Valid {
		run.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		run.UpdatedAt = updatedAt.Time
	}
	return &run, nil
}
