package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/finflowhq/finflow_backend/internal/apperrors"
	"github.com/finflowhq/finflow_backend/internal/core/domain"
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxSagaRepository struct {
	BaseRepository
}

// newPgxSagaRepository creates a new repository for saga instances. Steps and
// accumulated errors are stored as jsonb.
func newPgxSagaRepository(pool *pgxpool.Pool) portsrepo.SagaRepositoryFacade {
	return &PgxSagaRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.SagaRepositoryFacade = (*PgxSagaRepository)(nil)

func (r *PgxSagaRepository) SaveSaga(ctx context.Context, saga domain.SagaInstance) error {
	steps, errs, err := marshalSagaFields(saga)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO saga_instances (saga_id, kind, steps, current_step, status, data, errors, started_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err = r.q(ctx).Exec(ctx, query,
		saga.SagaID,
		string(saga.Kind),
		steps,
		saga.CurrentStep,
		string(saga.Status),
		saga.Data,
		errs,
		saga.StartedAt,
		saga.UpdatedAt,
		saga.CompletedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert saga "+saga.SagaID, err)
	}
	return nil
}

func (r *PgxSagaRepository) UpdateSaga(ctx context.Context, saga domain.SagaInstance) error {
	steps, errs, err := marshalSagaFields(saga)
	if err != nil {
		return err
	}
	query := `
		UPDATE saga_instances
		SET steps = $1, current_step = $2, status = $3, data = $4, errors = $5, updated_at = $6, completed_at = $7
		WHERE saga_id = $8;
	`
	tag, err := r.q(ctx).Exec(ctx, query,
		steps,
		saga.CurrentStep,
		string(saga.Status),
		saga.Data,
		errs,
		saga.UpdatedAt,
		saga.CompletedAt,
		saga.SagaID,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update saga "+saga.SagaID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: saga %s", apperrors.ErrNotFound, saga.SagaID)
	}
	return nil
}

func (r *PgxSagaRepository) FindSagaByID(ctx context.Context, sagaID string) (*domain.SagaInstance, error) {
	query := `
		SELECT saga_id, kind, steps, current_step, status, data, errors, started_at, updated_at, completed_at
		FROM saga_instances
		WHERE saga_id = $1;
	`
	var s domain.SagaInstance
	var steps, errs []byte
	err := r.q(ctx).QueryRow(ctx, query, sagaID).Scan(
		&s.SagaID,
		&s.Kind,
		&steps,
		&s.CurrentStep,
		&s.Status,
		&s.Data,
		&errs,
		&s.StartedAt,
		&s.UpdatedAt,
		&s.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: saga %s", apperrors.ErrNotFound, sagaID)
		}
		return nil, apperrors.NewAppError(500, "failed to find saga "+sagaID, err)
	}
	if err := json.Unmarshal(steps, &s.Steps); err != nil {
		return nil, apperrors.NewAppError(500, "failed to decode saga steps for "+sagaID, err)
	}
	if len(errs) > 0 {
		if err := json.Unmarshal(errs, &s.Errors); err != nil {
			return nil, apperrors.NewAppError(500, "failed to decode saga errors for "+sagaID, err)
		}
	}
	return &s, nil
}

// DeleteTerminalBefore discards terminal instances whose last update is older
// than cutoff.
func (r *PgxSagaRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM saga_instances
		WHERE status = ANY($1) AND updated_at < $2;
	`
	terminal := []string{
		string(domain.SagaCompleted),
		string(domain.SagaCompensated),
		string(domain.SagaCompensationFailed),
	}
	tag, err := r.q(ctx).Exec(ctx, query, terminal, cutoff)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to purge terminal sagas", err)
	}
	return tag.RowsAffected(), nil
}

func marshalSagaFields(saga domain.SagaInstance) ([]byte, []byte, error) {
	steps, err := json.Marshal(saga.Steps)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to encode saga steps for "+saga.SagaID, err)
	}
	errs, err := json.Marshal(saga.Errors)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to encode saga errors for "+saga.SagaID, err)
	}
	return steps, errs, nil
}
