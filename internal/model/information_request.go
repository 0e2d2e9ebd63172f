package model

import (
	"time"

	"github.com/google/uuid"
)

// InformationRequestItem status enum constants. The only cycle is
// REJECTED -> PENDING; each traversal increments rework_count.
const (
	ItemStatusPending   = "PENDING"
	ItemStatusSubmitted = "SUBMITTED"
	ItemStatusAccepted  = "ACCEPTED"
	ItemStatusRejected  = "REJECTED"
)

// InformationRequest is a lender-authored checklist attached to one
// Application. Items are request-exclusive: they are created in bulk with
// the request and never outlive it.
type InformationRequest struct {
	ID            uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ApplicationID uuid.UUID                `gorm:"type:uuid;not null;index" json:"application_id"`
	Application   *Application             `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
	LenderID      uuid.UUID                `gorm:"type:uuid;not null;index" json:"lender_id"` // taken from the application, not the caller
	CreatedByID   *uuid.UUID               `gorm:"type:uuid" json:"created_by_id"`
	CreatedBy     *User                    `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Title         string                   `gorm:"type:varchar(255);not null" json:"title"`
	Notes         string                   `gorm:"type:text" json:"notes"`
	Items         []InformationRequestItem `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// InformationRequestItem is one checklist entry, fulfilled by the borrower
// and reviewed by the lender.
type InformationRequestItem struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"request_id"`
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	DueDate        *time.Time `gorm:"type:date" json:"due_date"`
	DocumentTypeID *int64     `json:"document_type_id"`
	DocumentType   *DocumentType `gorm:"foreignKey:DocumentTypeID" json:"document_type,omitempty"`
	Status         string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	DocumentID     *uuid.UUID `gorm:"type:uuid" json:"document_id"`
	Document       *Document  `gorm:"foreignKey:DocumentID" json:"document,omitempty"`
	LenderComment  string     `gorm:"type:text" json:"lender_comment"`
	ReviewedByID   *uuid.UUID `gorm:"type:uuid" json:"reviewed_by_id"`
	ReviewedBy     *User      `gorm:"foreignKey:ReviewedByID" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at"`
	ReworkCount    int        `gorm:"not null;default:0" json:"rework_count"` // only ever increases
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
