package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studioworks/backend/internal/model"
)

const pgRequestColumns = `id::text, name, email, COALESCE(company, ''), services,
	COALESCE(budget, ''), COALESCE(message, ''), status, created_at, updated_at`

// PgRequestRepository is the PostgreSQL implementation of RequestRepository.
type PgRequestRepository struct {
	pool *pgxpool.Pool
}

// NewPgRequestRepository creates a PgRequestRepository backed by the given pool.
func NewPgRequestRepository(pool *pgxpool.Pool) *PgRequestRepository {
	return &PgRequestRepository{pool: pool}
}

var _ RequestRepository = (*PgRequestRepository)(nil)

// Create inserts a new requests row and populates req.ID and timestamps
// from the database RETURNING clause.
func (r *PgRequestRepository) Create(ctx context.Context, req *model.Request) error {
	if req.Services == nil {
		req.Services = []string{}
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO requests (name, email, company, services, budget, message, status)
		 VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		 RETURNING id::text, created_at, updated_at`,
		req.Name, req.Email, req.Company, req.Services, string(req.Budget), req.Message, string(req.Status),
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	return storageErr("create request", err)
}

// List returns requests newest first. Archived rows are excluded unless
// opts asks for them.
func (r *PgRequestRepository) List(ctx context.Context, opts model.RequestListOptions) ([]*model.Request, error) {
	var args []any
	where := ""
	switch {
	case opts.Status != "":
		args = append(args, string(opts.Status))
		where = "WHERE status = $1"
	case !opts.IncludeArchived:
		args = append(args, string(model.StatusArchived))
		where = "WHERE status <> $1"
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+pgRequestColumns+` FROM requests `+where+` ORDER BY created_at DESC, id DESC`,
		args...,
	)
	if err != nil {
		return nil, storageErr("list requests", err)
	}
	defer rows.Close()

	var requests []*model.Request
	for rows.Next() {
		req, err := scanPgRequest(rows)
		if err != nil {
			return nil, storageErr("scan request", err)
		}
		requests = append(requests, req)
	}
	return requests, storageErr("list requests", rows.Err())
}

// GetByID returns the request with the given id. Ids that are not UUIDs
// cannot exist and yield ErrNotFound without a round trip.
func (r *PgRequestRepository) GetByID(ctx context.Context, id string) (*model.Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	req, err := scanPgRequest(r.pool.QueryRow(ctx,
		`SELECT `+pgRequestColumns+` FROM requests WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get request", err)
	}
	return req, nil
}

// UpdateStatus sets status and updated_at in one statement and returns the row.
func (r *PgRequestRepository) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	req, err := scanPgRequest(r.pool.QueryRow(ctx,
		`UPDATE requests SET status = $1, updated_at = NOW() WHERE id = $2
		 RETURNING `+pgRequestColumns,
		string(status), id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("update request status", err)
	}
	return req, nil
}

// Delete physically removes a request and, by cascade, its status events.
func (r *PgRequestRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return storageErr("delete request", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus returns one entry per status that has at least one request.
func (r *PgRequestRepository) CountByStatus(ctx context.Context) ([]model.StatusCount, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM requests GROUP BY status`)
	if err != nil {
		return nil, storageErr("count requests", err)
	}
	defer rows.Close()

	var counts []model.StatusCount
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, storageErr("scan request count", err)
		}
		counts = append(counts, model.StatusCount{Status: model.Status(status), Count: int(n)})
	}
	return counts, storageErr("count requests", rows.Err())
}

func scanPgRequest(row rowScanner) (*model.Request, error) {
	var req model.Request
	var budget, status string
	if err := row.Scan(&req.ID, &req.Name, &req.Email, &req.Company, &req.Services,
		&budget, &req.Message, &status, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}
	req.Budget = model.Budget(budget)
	req.Status = model.Status(status)
	if req.Services == nil {
		req.Services = []string{}
	}
	return &req, nil
}
