package service

import (
	"context"

	"github.com/studioworks/backend/internal/model"
)

// RequestService defines the business logic for contact-form requests.
type RequestService interface {
	// Submit validates input and stores a new request with status "discover".
	// Validation failures are *model.ValidationError and persist nothing.
	Submit(ctx context.Context, input model.RequestInput) (*model.Request, error)

	// List returns requests according to the given options, newest first.
	List(ctx context.Context, opts model.RequestListOptions) ([]*model.Request, error)

	GetByID(ctx context.Context, id string) (*model.Request, error)

	// Delete is the separate administrative hard delete.
	Delete(ctx context.Context, id string) error

	// Summary returns a count for every status in canonical order, including zeros.
	Summary(ctx context.Context) ([]model.StatusCount, error)
}
