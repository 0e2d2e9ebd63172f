package model

import (
	"time"

	"github.com/google/uuid"
)

// DocumentType is reference data for the kinds of documents lenders can
// request (planning permission, schedule of works, PI insurance, ...).
// Integer keyed so clients can send the id loosely typed.
type DocumentType struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Document stores an uploaded file encrypted at rest. Salt and nonce belong
// to the crypto envelope; plaintext never touches the database.
type Document struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID        uuid.UUID     `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner          *User         `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	DocumentTypeID *int64        `json:"document_type_id"`
	DocumentType   *DocumentType `gorm:"foreignKey:DocumentTypeID" json:"document_type,omitempty"`
	FileName       string        `gorm:"type:varchar(255);not null" json:"file_name"`
	ContentType    string        `gorm:"type:varchar(100)" json:"content_type"`
	SizeBytes      int64         `gorm:"not null" json:"size_bytes"`
	Salt           []byte        `gorm:"type:bytea;not null" json:"-"`
	Nonce          []byte        `gorm:"type:bytea;not null" json:"-"`
	Ciphertext     []byte        `gorm:"type:bytea;not null" json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
