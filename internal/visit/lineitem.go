package visit

import (
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/pool-route/internal/product"
)

// ApprovalStatus tracks whether the client has approved a suggested need.
type ApprovalStatus string

const (
	AwaitingApproval ApprovalStatus = "awaiting_approval"
	Approved         ApprovalStatus = "approved"
)

// Label returns a human-readable label for the approval status.
func (a ApprovalStatus) Label() string {
	switch a {
	case AwaitingApproval:
		return "Awaiting approval"
	case Approved:
		return "Approved"
	default:
		return string(a)
	}
}

// ParseApprovalStatus accepts the stored names and the display labels,
// English or Portuguese.
func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "awaiting_approval", "awaiting approval", "aguardando aprovação", "aguardando aprovacao":
		return AwaitingApproval, nil
	case "approved", "aprovado":
		return Approved, nil
	}
	return "", fmt.Errorf("unknown approval status %q", s)
}

// AppliedProduct is a product used during a visit.
type AppliedProduct struct {
	ID        int64            `json:"id"`
	VisitID   int64            `json:"visit_id"`
	ProductID int64            `json:"product_id"`
	Quantity  float64          `json:"quantity"`
	CreatedAt time.Time        `json:"created_at"`
	Product   *product.Product `json:"product,omitempty"`
}

// SuggestedNeed is a product the client should buy, pending their approval.
type SuggestedNeed struct {
	ID             int64            `json:"id"`
	VisitID        int64            `json:"visit_id"`
	ProductID      int64            `json:"product_id"`
	Quantity       float64          `json:"quantity"`
	ApprovalStatus ApprovalStatus   `json:"approval_status"`
	CreatedAt      time.Time        `json:"created_at"`
	Product        *product.Product `json:"product,omitempty"`
}
