package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// RequestKind distinguishes returns from replacements
type RequestKind string

const (
	RequestKindReturn      RequestKind = "return"
	RequestKindReplacement RequestKind = "replacement"
)

// IsValid checks if the kind is known
func (k RequestKind) IsValid() bool {
	return k == RequestKindReturn || k == RequestKindReplacement
}

// requestedStatus is the order status while a request of this kind is open
func (k RequestKind) requestedStatus() Status {
	if k == RequestKindReplacement {
		return StatusReplacementRequested
	}
	return StatusReturnRequested
}

// finalStatus is the order status once every request of this kind completed
func (k RequestKind) finalStatus() Status {
	if k == RequestKindReplacement {
		return StatusReplaced
	}
	return StatusReturned
}

// RequestStatus is the review state of an after-sales request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCompleted RequestStatus = "completed"
)

// IsOpen returns true while the request still blocks a new one for the same item
func (s RequestStatus) IsOpen() bool {
	return s == RequestStatusPending || s == RequestStatusApproved
}

// AfterSalesRequest is a customer's return or replacement request for one order item
type AfterSalesRequest struct {
	shared.BaseEntity
	OrderID     uuid.UUID
	OrderItemID uuid.UUID
	Kind        RequestKind
	Status      RequestStatus
	Reason      string
	AdminNote   string
	DecidedAt   *time.Time
	CompletedAt *time.Time
}

func newAfterSalesRequest(orderID, itemID uuid.UUID, kind RequestKind, reason string) (*AfterSalesRequest, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_REQUEST_KIND", "Request kind must be return or replacement")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "A reason is required")
	}
	if len(reason) > 1000 {
		return nil, shared.NewDomainError("INVALID_REASON", "Reason cannot exceed 1000 characters")
	}
	return &AfterSalesRequest{
		BaseEntity:  shared.NewBaseEntity(),
		OrderID:     orderID,
		OrderItemID: itemID,
		Kind:        kind,
		Status:      RequestStatusPending,
		Reason:      reason,
	}, nil
}

func (r *AfterSalesRequest) approve(note string) error {
	if r.Status != RequestStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending requests can be approved")
	}
	now := time.Now()
	r.Status = RequestStatusApproved
	r.AdminNote = note
	r.DecidedAt = &now
	r.UpdatedAt = now
	return nil
}

func (r *AfterSalesRequest) reject(note string) error {
	if r.Status != RequestStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending requests can be rejected")
	}
	if strings.TrimSpace(note) == "" {
		return shared.NewDomainError("INVALID_REASON", "A rejection note is required")
	}
	now := time.Now()
	r.Status = RequestStatusRejected
	r.AdminNote = note
	r.DecidedAt = &now
	r.UpdatedAt = now
	return nil
}

func (r *AfterSalesRequest) complete() error {
	if r.Status != RequestStatusApproved {
		return shared.NewDomainError("INVALID_STATE", "Only approved requests can be completed")
	}
	now := time.Now()
	r.Status = RequestStatusCompleted
	r.CompletedAt = &now
	r.UpdatedAt = now
	return nil
}
