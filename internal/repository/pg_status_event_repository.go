package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studioworks/backend/internal/model"
)

// PgStatusEventRepository は StatusEventRepository の PostgreSQL 実装
type PgStatusEventRepository struct {
	pool *pgxpool.Pool
}

// NewPgStatusEventRepository は PgStatusEventRepository を生成する
func NewPgStatusEventRepository(pool *pgxpool.Pool) *PgStatusEventRepository {
	return &PgStatusEventRepository{pool: pool}
}

var _ StatusEventRepository = (*PgStatusEventRepository)(nil)

func (r *PgStatusEventRepository) Append(ctx context.Context, ev *model.StatusEvent) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO request_status_events (request_id, from_status, to_status, operator)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id::text, created_at`,
		ev.RequestID, string(ev.FromStatus), string(ev.ToStatus), ev.Operator,
	).Scan(&ev.ID, &ev.CreatedAt)
	return storageErr("append status event", err)
}

func (r *PgStatusEventRepository) ListByRequestID(ctx context.Context, requestID string) ([]*model.StatusEvent, error) {
	if _, err := uuid.Parse(requestID); err != nil {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, request_id::text, from_status, to_status, operator, created_at
		 FROM request_status_events WHERE request_id = $1
		 ORDER BY created_at, id`,
		requestID,
	)
	if err != nil {
		return nil, storageErr("list status events", err)
	}
	defer rows.Close()

	var events []*model.StatusEvent
	for rows.Next() {
		var ev model.StatusEvent
		var from, to string
		if err := rows.Scan(&ev.ID, &ev.RequestID, &from, &to, &ev.Operator, &ev.CreatedAt); err != nil {
			return nil, storageErr("scan status event", err)
		}
		ev.FromStatus = model.Status(from)
		ev.ToStatus = model.Status(to)
		events = append(events, &ev)
	}
	return events, storageErr("list status events", rows.Err())
}
