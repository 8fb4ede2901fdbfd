package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/studioworks/backend/internal/model"
	"github.com/studioworks/backend/internal/repository"
	"golang.org/x/sync/singleflight"
)

// LifecycleService moves requests between statuses on behalf of an operator.
//
// Any status may be reached from any other; there is no adjacency rule
// between stages and no transition is refused because of the current status.
type LifecycleService interface {
	// Transition validates target against the closed status set, persists it
	// and records the change in the request's history.
	Transition(ctx context.Context, operator, id, target string) (*TransitionResult, error)

	// History returns the applied transitions of a request, oldest first.
	History(ctx context.Context, id string) ([]*model.StatusEvent, error)
}

// TransitionResult describes an applied transition.
type TransitionResult struct {
	Request *model.Request
	From    model.Status
	// LeftActiveList is true when the target is archived: the dashboard
	// drops the record from its active list instead of updating it in place.
	LeftActiveList bool
}

type lifecycleServiceImpl struct {
	requests repository.RequestRepository
	events   repository.StatusEventRepository
	inflight singleflight.Group
}

// NewLifecycleService creates a LifecycleService on the given repositories.
func NewLifecycleService(requests repository.RequestRepository, events repository.StatusEventRepository) LifecycleService {
	return &lifecycleServiceImpl{requests: requests, events: events}
}

// transitionTimeout bounds the shared write once it is detached from the
// callers' contexts.
const transitionTimeout = 10 * time.Second

// Transition coalesces concurrent identical calls (same id and target) into a
// single write, so a double-clicked control produces one update and one
// history entry. Different targets for the same id are not serialized: the
// last write wins.
//
// The shared write does not inherit any caller's cancellation. A caller whose
// context ends stops waiting and gets ctx.Err(); the others still receive the
// result.
func (s *lifecycleServiceImpl) Transition(ctx context.Context, operator, id, target string) (*TransitionResult, error) {
	to, err := model.ParseStatus(target)
	if err != nil {
		return nil, err
	}

	ch := s.inflight.DoChan(id+"\x00"+string(to), func() (any, error) {
		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), transitionTimeout)
		defer cancel()
		return s.apply(workCtx, operator, id, to)
	})

	select {
	case <-ctx.Done():
		slog.Warn("transition caller gave up waiting",
			"inquiry_id", id, "to", to, "operator", operator, "error", ctx.Err())
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			slog.Debug("coalesced duplicate transition", "inquiry_id", id, "to", to, "operator", operator)
		}
		res := *r.Val.(*TransitionResult)
		return &res, nil
	}
}

func (s *lifecycleServiceImpl) apply(ctx context.Context, operator, id string, to model.Status) (*TransitionResult, error) {
	current, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.requests.UpdateStatus(ctx, id, to)
	if err != nil {
		return nil, err
	}

	// Re-applying the current status is a plain write with no history entry.
	if current.Status != to {
		ev := &model.StatusEvent{
			RequestID:  id,
			FromStatus: current.Status,
			ToStatus:   to,
			Operator:   operator,
		}
		if err := s.events.Append(ctx, ev); err != nil {
			slog.Error("append status event failed",
				"inquiry_id", id, "from", current.Status, "to", to, "error", err)
		}
	}

	return &TransitionResult{
		Request:        updated,
		From:           current.Status,
		LeftActiveList: !model.RequestListOptions{}.Matches(updated),
	}, nil
}

func (s *lifecycleServiceImpl) History(ctx context.Context, id string) ([]*model.StatusEvent, error) {
	if _, err := s.requests.GetByID(ctx, id); err != nil {
		return nil, err
	}
	events, err := s.events.ListByRequestID(ctx, id)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*model.StatusEvent{}
	}
	return events, nil
}
