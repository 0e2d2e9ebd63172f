package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApplicationStatus enum constants
const (
	ApplicationStatusPending     = "PENDING"
	ApplicationStatusUnderReview = "UNDER_REVIEW"
	ApplicationStatusAccepted    = "ACCEPTED"
	ApplicationStatusDeclined    = "DECLINED"
	ApplicationStatusWithdrawn   = "WITHDRAWN"
)

// InitiatedBy enum constants. A borrower-initiated record is an "enquiry",
// a lender-initiated one an "application"; both share this table.
const (
	InitiatedByBorrower = "borrower"
	InitiatedByLender   = "lender"
)

// Application is a proposal linking exactly one Project, one Product and one
// Lender. The composite unique index on (project_id, lender_id) is the
// serialization backstop for concurrent intake requests; the service-level
// check inside the transaction only provides the friendlier error.
type Application struct {
	ID                   uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID            uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_applications_project_lender" json:"project_id"`
	Project              *Project         `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	ProductID            uuid.UUID        `gorm:"type:uuid;not null;index" json:"product_id"`
	Product              *Product         `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	LenderID             uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_applications_project_lender" json:"lender_id"`
	Lender               *LenderProfile   `gorm:"foreignKey:LenderID" json:"lender,omitempty"`
	ProposedLoanAmount   decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"proposed_loan_amount"`
	ProposedInterestRate *decimal.Decimal `gorm:"type:decimal(5,2)" json:"proposed_interest_rate"` // percentage
	ProposedTermMonths   int              `gorm:"not null" json:"proposed_term_months"`
	ProposedLTVRatio     *decimal.Decimal `gorm:"type:decimal(5,2)" json:"proposed_ltv_ratio"` // percentage
	Notes                string           `gorm:"type:text" json:"notes"`
	Status               string           `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	StatusFeedback       string           `gorm:"type:text" json:"status_feedback"`
	StatusChangedAt      *time.Time       `json:"status_changed_at"`
	InitiatedBy          string           `gorm:"type:varchar(10);not null" json:"initiated_by"` // borrower, lender
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}
