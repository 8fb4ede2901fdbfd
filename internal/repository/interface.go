package repository

import (
	"context"

	"github.com/studioworks/backend/internal/model"
)

// DB は DB 接続の生存確認を行うインターフェース
type DB interface {
	Ping(ctx context.Context) error
}

// RequestRepository persists contact-form requests.
type RequestRepository interface {
	// Create inserts req and fills its ID and timestamps.
	Create(ctx context.Context, req *model.Request) error
	// List returns matching requests, newest first.
	List(ctx context.Context, opts model.RequestListOptions) ([]*model.Request, error)
	GetByID(ctx context.Context, id string) (*model.Request, error)
	// UpdateStatus stores status and returns the updated record.
	UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Request, error)
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) ([]model.StatusCount, error)
}

// StatusEventRepository stores the transition log of requests.
type StatusEventRepository interface {
	Append(ctx context.Context, ev *model.StatusEvent) error
	// ListByRequestID returns events oldest first.
	ListByRequestID(ctx context.Context, requestID string) ([]*model.StatusEvent, error)
}

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
