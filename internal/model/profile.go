package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Consultant discipline enum constants
const (
	DisciplineValuer             = "valuer"
	DisciplineSolicitor          = "solicitor"
	DisciplineMonitoringSurveyor = "monitoring_surveyor"
)

// BorrowerProfile holds the developer-side identity of a user. A user with a
// borrower profile may own projects and initiate enquiries.
type BorrowerProfile struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User             *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CompanyName      string    `gorm:"type:varchar(255);not null" json:"company_name"`
	CompaniesHouseNo string    `gorm:"type:varchar(20)" json:"companies_house_no"`
	TrackRecordYears int       `json:"track_record_years"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// LenderProfile holds the funder-side identity of a user. A user with a
// lender profile may own products and review applications.
type LenderProfile struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User            *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	InstitutionName string          `gorm:"type:varchar(255);not null" json:"institution_name"`
	FCAReference    string          `gorm:"type:varchar(30)" json:"fca_reference"`
	MinLoanAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"min_loan_amount"`
	MaxLoanAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"max_loan_amount"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ConsultantFirm represents a third-party firm (valuer, solicitor, monitoring
// surveyor) that can be engaged on a deal via provider enquiries.
type ConsultantFirm struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Discipline string    `gorm:"type:varchar(30);not null;index" json:"discipline"` // valuer, solicitor, monitoring_surveyor
	Email      string    `gorm:"type:varchar(255);not null" json:"email"`
	Phone      string    `gorm:"type:varchar(20)" json:"phone"`
	Active     bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
