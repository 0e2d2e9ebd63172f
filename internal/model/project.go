package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProjectStatus enum constants
const (
	ProjectStatusDraft     = "DRAFT"
	ProjectStatusPublished = "PUBLISHED"
	ProjectStatusFunded    = "FUNDED"
	ProjectStatusArchived  = "ARCHIVED"
)

// Project is a borrower-owned funding request for a property development.
type Project struct {
	ID                    uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BorrowerID            uuid.UUID        `gorm:"type:uuid;not null;index" json:"borrower_id"`
	Borrower              *BorrowerProfile `gorm:"foreignKey:BorrowerID" json:"borrower,omitempty"`
	Title                 string           `gorm:"type:varchar(255);not null" json:"title"`
	Description           string           `gorm:"type:text" json:"description"`
	SiteAddress           string           `gorm:"type:varchar(500)" json:"site_address"`
	LoanAmountRequired    decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"loan_amount_required"`
	TermRequiredMonths    int              `gorm:"not null" json:"term_required_months"`
	GrossDevelopmentValue decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0" json:"gross_development_value"`
	Status                string           `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// Product is a lender-offered loan product whose terms an application
// proposes against.
type Product struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	LenderID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"lender_id"`
	Lender        *LenderProfile  `gorm:"foreignKey:LenderID" json:"lender,omitempty"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	MinLoanAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"min_loan_amount"`
	MaxLoanAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"max_loan_amount"`
	MaxLTVRatio   decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"max_ltv_ratio"` // percentage
	RateFrom      decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"rate_from"`     // percentage per annum
	MaxTermMonths int             `gorm:"not null" json:"max_term_months"`
	Active        bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
