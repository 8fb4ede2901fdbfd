package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/studioworks/backend/internal/model"
)

const sqliteRequestColumns = `id, name, email, company, services, budget, message, status, created_at, updated_at`

// SQLiteRequestRepository is the embedded SQLite implementation of
// RequestRepository used in local mode. Services are stored as a JSON array
// and timestamps as unix nanoseconds.
type SQLiteRequestRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRequestRepository creates a SQLiteRequestRepository on db.
func NewSQLiteRequestRepository(db *sql.DB) *SQLiteRequestRepository {
	return &SQLiteRequestRepository{db: db, now: time.Now}
}

var _ RequestRepository = (*SQLiteRequestRepository)(nil)

func (r *SQLiteRequestRepository) Create(ctx context.Context, req *model.Request) error {
	if req.Services == nil {
		req.Services = []string{}
	}
	services, err := json.Marshal(req.Services)
	if err != nil {
		return storageErr("encode services", err)
	}
	id := uuid.NewString()
	now := r.now().UTC()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO requests (`+sqliteRequestColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, req.Name, req.Email, req.Company, string(services), string(req.Budget), req.Message,
		string(req.Status), now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return storageErr("create request", err)
	}
	req.ID = id
	req.CreatedAt = now
	req.UpdatedAt = now
	return nil
}

func (r *SQLiteRequestRepository) List(ctx context.Context, opts model.RequestListOptions) ([]*model.Request, error) {
	var args []any
	where := ""
	switch {
	case opts.Status != "":
		args = append(args, string(opts.Status))
		where = "WHERE status = ?"
	case !opts.IncludeArchived:
		args = append(args, string(model.StatusArchived))
		where = "WHERE status <> ?"
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sqliteRequestColumns+` FROM requests `+where+` ORDER BY created_at DESC, rowid DESC`,
		args...,
	)
	if err != nil {
		return nil, storageErr("list requests", err)
	}
	defer rows.Close()

	var requests []*model.Request
	for rows.Next() {
		req, err := scanSQLiteRequest(rows)
		if err != nil {
			return nil, storageErr("scan request", err)
		}
		requests = append(requests, req)
	}
	return requests, storageErr("list requests", rows.Err())
}

func (r *SQLiteRequestRepository) GetByID(ctx context.Context, id string) (*model.Request, error) {
	req, err := scanSQLiteRequest(r.db.QueryRowContext(ctx,
		`SELECT `+sqliteRequestColumns+` FROM requests WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get request", err)
	}
	return req, nil
}

func (r *SQLiteRequestRepository) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Request, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE requests SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), r.now().UTC().UnixNano(), id,
	)
	if err != nil {
		return nil, storageErr("update request status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, storageErr("update request status", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *SQLiteRequestRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete request", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRequestRepository) CountByStatus(ctx context.Context) ([]model.StatusCount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM requests GROUP BY status`)
	if err != nil {
		return nil, storageErr("count requests", err)
	}
	defer rows.Close()

	var counts []model.StatusCount
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, storageErr("scan request count", err)
		}
		counts = append(counts, model.StatusCount{Status: model.Status(status), Count: n})
	}
	return counts, storageErr("count requests", rows.Err())
}

func scanSQLiteRequest(row rowScanner) (*model.Request, error) {
	var req model.Request
	var services, budget, status string
	var createdAt, updatedAt int64
	if err := row.Scan(&req.ID, &req.Name, &req.Email, &req.Company, &services,
		&budget, &req.Message, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(services), &req.Services); err != nil {
		return nil, err
	}
	if req.Services == nil {
		req.Services = []string{}
	}
	req.Budget = model.Budget(budget)
	req.Status = model.Status(status)
	req.CreatedAt = time.Unix(0, createdAt).UTC()
	req.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &req, nil
}
