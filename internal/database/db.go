package database

import (
	"log"

	"buildfund/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM.
// TranslateError is on so driver duplicate-key violations surface as
// gorm.ErrDuplicatedKey; the unique index on (project_id, lender_id) is the
// backstop for concurrent application intake.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.BorrowerProfile{},
		&model.LenderProfile{},
		&model.ConsultantFirm{},
		&model.Project{},
		&model.Product{},
		&model.Application{},
		&model.InformationRequest{},
		&model.InformationRequestItem{},
		&model.Deal{},
		&model.ProviderEnquiry{},
		&model.DocumentType{},
		&model.Document{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
