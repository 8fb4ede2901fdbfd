package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/studioworks/backend/internal/model"
)

// SQLiteStatusEventRepository is the embedded SQLite implementation of StatusEventRepository.
type SQLiteStatusEventRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStatusEventRepository creates a SQLiteStatusEventRepository on db.
func NewSQLiteStatusEventRepository(db *sql.DB) *SQLiteStatusEventRepository {
	return &SQLiteStatusEventRepository{db: db, now: time.Now}
}

var _ StatusEventRepository = (*SQLiteStatusEventRepository)(nil)

func (r *SQLiteStatusEventRepository) Append(ctx context.Context, ev *model.StatusEvent) error {
	id := uuid.NewString()
	now := r.now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO request_status_events (id, request_id, from_status, to_status, operator, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, ev.RequestID, string(ev.FromStatus), string(ev.ToStatus), ev.Operator, now.UnixNano(),
	)
	if err != nil {
		return storageErr("append status event", err)
	}
	ev.ID = id
	ev.CreatedAt = now
	return nil
}

func (r *SQLiteStatusEventRepository) ListByRequestID(ctx context.Context, requestID string) ([]*model.StatusEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, request_id, from_status, to_status, operator, created_at
		 FROM request_status_events WHERE request_id = ?
		 ORDER BY created_at, rowid`,
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
		var createdAt int64
		if err := rows.Scan(&ev.ID, &ev.RequestID, &from, &to, &ev.Operator, &createdAt); err != nil {
			return nil, storageErr("scan status event", err)
		}
		ev.FromStatus = model.Status(from)
		ev.ToStatus = model.Status(to)
		ev.CreatedAt = time.Unix(0, createdAt).UTC()
		events = append(events, &ev)
	}
	return events, storageErr("list status events", rows.Err())
}
