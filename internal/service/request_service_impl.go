package service

import (
	"context"

	"github.com/studioworks/backend/internal/model"
	"github.com/studioworks/backend/internal/repository"
)

// requestServiceImpl is the production implementation of RequestService.
type requestServiceImpl struct {
	repo repository.RequestRepository
}

// NewRequestService creates a RequestService backed by the given repository.
func NewRequestService(repo repository.RequestRepository) RequestService {
	return &requestServiceImpl{repo: repo}
}

func (s *requestServiceImpl) Submit(ctx context.Context, input model.RequestInput) (*model.Request, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}
	req := model.NewRequest(input)
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *requestServiceImpl) List(ctx context.Context, opts model.RequestListOptions) ([]*model.Request, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, &model.ValidationError{Field: "status", Code: "invalid_status"}
	}
	return s.repo.List(ctx, opts)
}

func (s *requestServiceImpl) GetByID(ctx context.Context, id string) (*model.Request, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *requestServiceImpl) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *requestServiceImpl) Summary(ctx context.Context) ([]model.StatusCount, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byStatus := make(map[model.Status]int, len(counts))
	for _, c := range counts {
		byStatus[c.Status] = c.Count
	}
	statuses := model.Statuses()
	summary := make([]model.StatusCount, 0, len(statuses))
	for _, st := range statuses {
		summary = append(summary, model.StatusCount{Status: st, Count: byStatus[st]})
	}
	return summary, nil
}
