package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DealStatus enum constants
const (
	DealStatusInstructed  = "INSTRUCTED"
	DealStatusInLegals    = "IN_LEGALS"
	DealStatusCompleted   = "COMPLETED"
	DealStatusFallenAway  = "FALLEN_AWAY"
)

// ProviderEnquiry status enum constants
const (
	EnquiryStatusSent     = "SENT"
	EnquiryStatusQuoted   = "QUOTED"
	EnquiryStatusEngaged  = "ENGAGED"
	EnquiryStatusDeclined = "DECLINED"
)

// Deal is the post-acceptance progression entity derived from an Application.
// Once a deal exists the source application is immutable.
type Deal struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ApplicationID    uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"application_id"`
	Application      *Application    `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
	ReferenceCode    string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"reference_code"` // e.g. BF-20260831-00001
	Status           string          `gorm:"type:varchar(20);not null;default:'INSTRUCTED';index" json:"status"`
	AgreedLoanAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"agreed_loan_amount"`
	AgreedTermMonths int             `gorm:"not null" json:"agreed_term_months"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ProviderEnquiry is a request sent to a consultant firm for a service quote
// on a deal. One enquiry is fanned out per active firm at deal creation.
type ProviderEnquiry struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DealID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"deal_id"`
	Deal        *Deal            `gorm:"foreignKey:DealID" json:"deal,omitempty"`
	FirmID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"firm_id"`
	Firm        *ConsultantFirm  `gorm:"foreignKey:FirmID" json:"firm,omitempty"`
	Discipline  string           `gorm:"type:varchar(30);not null" json:"discipline"`
	Status      string           `gorm:"type:varchar(20);not null;default:'SENT';index" json:"status"`
	QuoteAmount *decimal.Decimal `gorm:"type:decimal(18,2)" json:"quote_amount"`
	Message     string           `gorm:"type:text" json:"message"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
