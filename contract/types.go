// Package contract implements the sales-contract approval domain.
// It uses the lifecycle engine's versioned store and approval workflow
// with contract-specific role gating and validation.
package contract

import (
	"github.com/shopspring/decimal"

	"github.com/warp/document-engine/lifecycle"
)

// Payload holds the business fields of a home-sale contract.
type Payload struct {
	CustomerID      string
	CustomerName    string
	PropertyAddress string
	LotNumber       string
	ContractAmount  decimal.Decimal
	PlanID          lifecycle.DocumentID // linked fund plan, optional
	Notes           string
}

// Record is a contract document: a versioned, lockable payload plus the
// approval workflow state.
type Record = lifecycle.Document[Payload]

// requiredRole maps each workflow state to the role allowed to act on it.
// RoleAdmin is additionally permitted everywhere.
var requiredRole = map[lifecycle.Status]lifecycle.Role{
	lifecycle.StatusDraft:           lifecycle.RoleSales,
	lifecycle.StatusRevision:        lifecycle.RoleSales,
	lifecycle.StatusDocumentReview:  lifecycle.RoleReviewer,
	lifecycle.StatusManagerApproval: lifecycle.RoleManager,
}

// roleAllowed verifies the actor's role against the document's CURRENT
// state. The state machine itself is role-agnostic; this is the boundary.
func roleAllowed(status lifecycle.Status, role lifecycle.Role) bool {
	if role == lifecycle.RoleAdmin {
		return true
	}
	want, ok := requiredRole[status]
	return ok && role == want
}
