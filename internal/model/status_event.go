package model

import "time"

// StatusEvent records one applied status transition of a request.
type StatusEvent struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	Operator   string    `json:"operator,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// StatusCount is the number of requests currently holding Status.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}
