package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateProject = "CREATE_PROJECT"
	ActionUpdateProject = "UPDATE_PROJECT_STATUS"
	ActionCreateProduct = "CREATE_PRODUCT"

	// Intake and workflow actions
	ActionCreateApplication    = "CREATE_APPLICATION"
	ActionUpdateApplication    = "UPDATE_APPLICATION_STATUS"
	ActionCreateInfoRequest    = "CREATE_INFORMATION_REQUEST"
	ActionSubmitInfoItem       = "SUBMIT_INFORMATION_ITEM"
	ActionReviewInfoItem       = "REVIEW_INFORMATION_ITEM"
	ActionCreateDeal           = "CREATE_DEAL"
	ActionCreateProviderEnquiry = "CREATE_PROVIDER_ENQUIRY"
	ActionUploadDocument       = "UPLOAD_DOCUMENT"
	ActionDownloadDocument     = "DOWNLOAD_DOCUMENT"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
