package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/venohr/stepflow/pkg/models"
	"github.com/venohr/stepflow/pkg/persistence"
)

// ProcessRepository handles process and step database operations.
type ProcessRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewProcessRepository creates a new process repository.
func NewProcessRepository(db *sql.DB, logger *slog.Logger) *ProcessRepository {
	return &ProcessRepository{db: db, logger: logger}
}

func (r *ProcessRepository) CreateProcess(ctx context.Context, process *models.Process) error {
	if process.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate process ID: %w", err)
		}

		process.ID = id.String()
	}

	if process.CreatedAt.IsZero() {
		process.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO processes (id, process_type, created_at) VALUES ($1, $2, $3)`

	_, err := r.db.ExecContext(ctx, query, process.ID, process.Type, process.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create process: %w", err)
	}

	return nil
}

func (r *ProcessRepository) ProcessByID(ctx context.Context, id string) (*models.Process, error) {
	query := `SELECT id, process_type, created_at FROM processes WHERE id = $1`

	var process models.Process

	err := r.db.QueryRowContext(ctx, query, id).Scan(&process.ID, &process.Type, &process.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewProcessError("ProcessByID", id, persistence.ErrProcessNotFound)
		}

		return nil, fmt.Errorf("failed to query process: %w", err)
	}

	return &process, nil
}

func (r *ProcessRepository) Steps(ctx context.Context, processID string) ([]*models.ProcessStep, error) {
	if _, err := r.ProcessByID(ctx, processID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, process_id, step_type, step_status, COALESCE(message, ''), created_at
		FROM process_steps
		WHERE process_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to query process steps: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	steps := make([]*models.ProcessStep, 0)

	for rows.Next() {
		var step models.ProcessStep

		err := rows.Scan(&step.ID, &step.ProcessID, &step.Type, &step.Status, &step.Message, &step.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan process step: %w", err)
		}

		steps = append(steps, &step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating process steps: %w", err)
	}

	return steps, nil
}

func (r *ProcessRepository) EnqueueStep(ctx context.Context, processID string, stepType models.StepType) (*models.ProcessStep, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists bool

	err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM processes WHERE id = $1)`, processID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check process existence: %w", err)
	}

	if !exists {
		err = persistence.NewProcessError("EnqueueStep", processID, persistence.ErrProcessNotFound)

		return nil, err
	}

	step, err := insertStep(ctx, tx, processID, stepType)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return step, nil
}

// insertStep appends a step row inside an open transaction, downgrading it to
// DUPLICATE when a TODO row of the same type already exists.
func insertStep(ctx context.Context, tx *sql.Tx, processID string, stepType models.StepType) (*models.ProcessStep, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate step ID: %w", err)
	}

	step := &models.ProcessStep{
		ID:        id.String(),
		ProcessID: processID,
		Type:      stepType,
		Status:    models.StepStatusTodo,
		CreatedAt: time.Now().UTC(),
	}

	var duplicate bool

	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM process_steps
			WHERE process_id = $1 AND step_type = $2 AND step_status = 'TODO'
		)
	`, processID, stepType).Scan(&duplicate)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate TODO step: %w", err)
	}

	if duplicate {
		step.Status = models.StepStatusDuplicate
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO process_steps (id, process_id, step_type, step_status, message, created_at)
		VALUES ($1, $2, $3, $4, NULL, $5)
	`, step.ID, step.ProcessID, step.Type, step.Status, step.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert process step: %w", err)
	}

	return step, nil
}

func (r *ProcessRepository) FinalizeStep(ctx context.Context, stepID string, status models.StepStatus, message string, successors []models.StepType) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Optimistic guard: only a TODO row may transition. RowsAffected = 0
	// means another worker finalized the step first.
	var processID string

	err = tx.QueryRowContext(ctx, `
		UPDATE process_steps
		SET step_status = $2, message = NULLIF($3, '')
		WHERE id = $1 AND step_status = 'TODO'
		RETURNING process_id
	`, stepID, status, message).Scan(&processID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = tx.Rollback()

			return false, nil
		}

		return false, fmt.Errorf("failed to finalize process step: %w", err)
	}

	for _, successor := range successors {
		if _, err = insertStep(ctx, tx, processID, successor); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

func (r *ProcessRepository) RetriggerStep(ctx context.Context, processID string, stepType models.StepType) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		stepID string
		status models.StepStatus
	)

	err = tx.QueryRowContext(ctx, `
		SELECT id, step_status
		FROM process_steps
		WHERE process_id = $1 AND step_type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`, processID, stepType).Scan(&stepID, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.NewProcessError("RetriggerStep", processID, persistence.ErrStepNotFound)
		} else {
			err = fmt.Errorf("failed to query step for retrigger: %w", err)
		}

		return err
	}

	if !status.Retriggerable() {
		err = persistence.NewProcessError("RetriggerStep", processID, persistence.ErrStepNotRetriggerable)

		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE process_steps SET step_status = 'TODO', message = NULL WHERE id = $1
	`, stepID)
	if err != nil {
		return fmt.Errorf("failed to re-arm process step: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *ProcessRepository) PendingProcesses(ctx context.Context, before time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT process_id
		FROM process_steps
		WHERE step_status = 'TODO' AND created_at < $1
		ORDER BY process_id
	`

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending processes: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	var ids []string

	for rows.Next() {
		var id string

		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan process id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending processes: %w", err)
	}

	return ids, nil
}
