package model

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// Status is the lifecycle position of a request.
type Status string

const (
	StatusDiscover  Status = "discover"
	StatusDefine    Status = "define"
	StatusDesign    Status = "design"
	StatusDevelop   Status = "develop"
	StatusDeliver   Status = "deliver"
	StatusMaintain  Status = "maintain"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// InitialStatus is assigned to every newly submitted request.
const InitialStatus = StatusDiscover

var stages = []Status{
	StatusDiscover,
	StatusDefine,
	StatusDesign,
	StatusDevelop,
	StatusDeliver,
	StatusMaintain,
}

var allStatuses = append(append([]Status{}, stages...), StatusCompleted, StatusArchived)

// Stages returns the six ordered progress stages.
func Stages() []Status {
	return append([]Status(nil), stages...)
}

// Statuses returns every valid status: the six stages followed by completed and archived.
func Statuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts s into a Status. Anything outside the closed set is
// rejected with a ValidationError.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", &ValidationError{Field: "status", Code: "invalid_status"}
	}
	return st, nil
}

// Valid reports whether s is one of the eight allowed values.
func (s Status) Valid() bool {
	for _, v := range allStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// StageIndex returns the 0-based position on the progress track, or -1 for
// statuses outside it (completed, archived, invalid).
func (s Status) StageIndex() int {
	for i, v := range stages {
		if v == s {
			return i
		}
	}
	return -1
}

// IsActive reports whether a request with this status belongs in the active list.
func (s Status) IsActive() bool {
	return s != StatusArchived
}

// Budget is one of the fixed bracket values offered by the contact form.
type Budget string

var budgets = []Budget{"under-5k", "5k-15k", "15k-30k", "30k-50k", "50k-plus"}

// Budgets returns the allowed budget brackets.
func Budgets() []Budget {
	return append([]Budget(nil), budgets...)
}

func (b Budget) valid() bool {
	if b == "" {
		return true
	}
	for _, v := range budgets {
		if v == b {
			return true
		}
	}
	return false
}

// Request is a customer inquiry submitted through the contact form.
type Request struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	Services  []string  `json:"services"`
	Budget    Budget    `json:"budget,omitempty"`
	Message   string    `json:"message,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RequestListOptions filters List results. The zero value returns active
// (non-archived) requests.
type RequestListOptions struct {
	IncludeArchived bool
	// Status restricts results to a single status when non-empty.
	Status Status
}

// Matches reports whether r belongs in a list built with these options.
func (o RequestListOptions) Matches(r *Request) bool {
	if o.Status != "" {
		return r.Status == o.Status
	}
	return o.IncludeArchived || r.Status.IsActive()
}

const (
	maxNameLength    = 200
	maxEmailLength   = 254
	maxCompanyLength = 200
	maxServices      = 10
	maxServiceLength = 100
	MaxMessageLength = 5000
)

// RequestInput carries the contact-form fields for a new request.
type RequestInput struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Company  string   `json:"company,omitempty"`
	Services []string `json:"services,omitempty"`
	Budget   Budget   `json:"budget,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// Normalize trims every field and collapses services into an ordered set.
func (in *RequestInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Company = strings.TrimSpace(in.Company)
	in.Budget = Budget(strings.TrimSpace(string(in.Budget)))
	in.Message = strings.TrimSpace(in.Message)

	seen := make(map[string]bool, len(in.Services))
	services := make([]string, 0, len(in.Services))
	for _, s := range in.Services {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		services = append(services, s)
	}
	in.Services = services
}

// Validate checks required fields and limits. Call Normalize first.
func (in *RequestInput) Validate() error {
	switch {
	case in.Name == "":
		return &ValidationError{Field: "name", Code: "name_required"}
	case utf8.RuneCountInString(in.Name) > maxNameLength:
		return &ValidationError{Field: "name", Code: "name_too_long"}
	case in.Email == "":
		return &ValidationError{Field: "email", Code: "email_required"}
	case len(in.Email) > maxEmailLength:
		return &ValidationError{Field: "email", Code: "email_too_long"}
	case utf8.RuneCountInString(in.Company) > maxCompanyLength:
		return &ValidationError{Field: "company", Code: "company_too_long"}
	case len(in.Services) > maxServices:
		return &ValidationError{Field: "services", Code: "too_many_services"}
	case !in.Budget.valid():
		return &ValidationError{Field: "budget", Code: "invalid_budget"}
	case utf8.RuneCountInString(in.Message) > MaxMessageLength:
		return &ValidationError{Field: "message", Code: "message_too_long"}
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return &ValidationError{Field: "email", Code: "invalid_email"}
	}
	for _, s := range in.Services {
		if utf8.RuneCountInString(s) > maxServiceLength {
			return &ValidationError{Field: "services", Code: "service_too_long"}
		}
	}
	return nil
}

// NewRequest builds an unsaved Request from validated input.
func NewRequest(in RequestInput) *Request {
	services := in.Services
	if services == nil {
		services = []string{}
	}
	return &Request{
		Name:     in.Name,
		Email:    in.Email,
		Company:  in.Company,
		Services: services,
		Budget:   in.Budget,
		Message:  in.Message,
		Status:   InitialStatus,
	}
}

// ValidationError reports malformed input. Code is the machine-readable
// reason returned to API clients.
type ValidationError struct {
	Field string
	Code  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Code)
}
