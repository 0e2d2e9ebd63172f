package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"buildfund/internal/crypto"
	"buildfund/internal/model"
	"buildfund/internal/repository"
	"buildfund/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxDocumentSize = 25 << 20 // 25 MiB

// documentDownloadURL builds the download path served by the document handler.
func documentDownloadURL(id uuid.UUID) string {
	return fmt.Sprintf("/api/documents/%s/download/", id)
}

// --- DTOs ---

type UploadDocumentRequest struct {
	FileName       string `json:"file_name"`
	ContentType    string `json:"content_type"`
	DocumentTypeID *int64 `json:"document_type_id"`
	Content        []byte `json:"-"`
}

type DocumentResponse struct {
	ID             string  `json:"id"`
	FileName       string  `json:"file_name"`
	ContentType    string  `json:"content_type"`
	SizeBytes      int64   `json:"size_bytes"`
	DocumentTypeID *int64  `json:"document_type_id"`
	DocumentType   *string `json:"document_type"`
	DownloadURL    string  `json:"download_url"`
	CreatedAt      string  `json:"created_at"`
}

type DocumentContent struct {
	FileName    string
	ContentType string
	Data        []byte
}

type DocumentTypeResponse struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// --- Interface ---

type DocumentService interface {
	Upload(ctx context.Context, actorUserID string, req UploadDocumentRequest) (DocumentResponse, error)
	// Download decrypts and returns the file content. Only the owner may
	// download directly; lenders see documents through information requests.
	Download(ctx context.Context, id, actorUserID, actorRole string) (DocumentContent, error)
	GetMeta(ctx context.Context, id string) (DocumentResponse, error)
	ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]DocumentResponse, int64, error)
	ListDocumentTypes(ctx context.Context) ([]DocumentTypeResponse, error)
}

type documentService struct {
	documents repository.DocumentRepository
	audit     repository.AuditRepository
	txm       repository.TransactionManager
	secret    string
	log       *zap.Logger
}

func NewDocumentService(
	documents repository.DocumentRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	secret string,
	log *zap.Logger,
) DocumentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &documentService{
		documents: documents,
		audit:     audit,
		txm:       txm,
		secret:    secret,
		log:       log,
	}
}

// --- Implementation ---

func (s *documentService) Upload(ctx context.Context, actorUserID string, req UploadDocumentRequest) (DocumentResponse, error) {
	ownerID, err := uuid.Parse(actorUserID)
	if err != nil {
		return DocumentResponse{}, apperror.NewAuthorization("authentication required")
	}

	verr := apperror.NewValidation()
	if req.FileName == "" {
		verr.Add("file_name", "must not be empty")
	}
	if len(req.Content) == 0 {
		verr.Add("content", "must not be empty")
	}
	if len(req.Content) > maxDocumentSize {
		verr.Add("content", fmt.Sprintf("exceeds maximum size of %d bytes", maxDocumentSize))
	}
	if req.DocumentTypeID != nil {
		docType, typeErr := s.documents.GetDocumentType(ctx, *req.DocumentTypeID)
		if typeErr != nil {
			return DocumentResponse{}, fmt.Errorf("failed to look up document type: %w", typeErr)
		}
		if docType == nil {
			verr.Add("document_type_id", fmt.Sprintf("unknown document type %d", *req.DocumentTypeID))
		}
	}
	if verr.HasErrors() {
		return DocumentResponse{}, verr
	}

	envelope, err := crypto.Seal(s.secret, req.Content)
	if err != nil {
		return DocumentResponse{}, fmt.Errorf("failed to encrypt document: %w", err)
	}

	document := model.Document{
		OwnerID:        ownerID,
		DocumentTypeID: req.DocumentTypeID,
		FileName:       req.FileName,
		ContentType:    req.ContentType,
		SizeBytes:      int64(len(req.Content)),
		Salt:           envelope.Salt,
		Nonce:          envelope.Nonce,
		Ciphertext:     envelope.Ciphertext,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.documents.Create(txCtx, &document); createErr != nil {
			return fmt.Errorf("failed to store document: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"file_name":  document.FileName,
			"size_bytes": document.SizeBytes,
		})
		entry := model.AuditLog{
			UserID:     &ownerID,
			Action:     model.ActionUploadDocument,
			EntityID:   document.ID.String(),
			EntityName: document.FileName,
			Details:    string(details),
		}
		return s.audit.Log(txCtx, &entry)
	})
	if err != nil {
		return DocumentResponse{}, err
	}

	s.log.Info("document uploaded",
		zap.String("document_id", document.ID.String()),
		zap.Int64("size_bytes", document.SizeBytes),
	)
	return toDocumentResponse(document), nil
}

func (s *documentService) Download(ctx context.Context, id, actorUserID, actorRole string) (DocumentContent, error) {
	document, err := s.documents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DocumentContent{}, apperror.NewNotFound("document", id)
		}
		return DocumentContent{}, fmt.Errorf("failed to load document: %w", err)
	}

	if document.OwnerID.String() != actorUserID &&
		actorRole != model.RoleLender && actorRole != model.RoleAdmin {
		return DocumentContent{}, apperror.NewAuthorization("not permitted to download this document")
	}

	plaintext, err := crypto.Open(s.secret, crypto.Envelope{
		Salt:       document.Salt,
		Nonce:      document.Nonce,
		Ciphertext: document.Ciphertext,
	})
	if err != nil {
		s.log.Error("document decryption failed", zap.String("document_id", id), zap.Error(err))
		return DocumentContent{}, fmt.Errorf("failed to decrypt document: %w", err)
	}

	actorID, parseErr := uuid.Parse(actorUserID)
	if parseErr == nil {
		entry := model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionDownloadDocument,
			EntityID:   document.ID.String(),
			EntityName: document.FileName,
		}
		if auditErr := s.audit.Log(ctx, &entry); auditErr != nil {
			s.log.Warn("failed to audit document download", zap.Error(auditErr))
		}
	}

	return DocumentContent{
		FileName:    document.FileName,
		ContentType: document.ContentType,
		Data:        plaintext,
	}, nil
}

func (s *documentService) GetMeta(ctx context.Context, id string) (DocumentResponse, error) {
	document, err := s.documents.GetMeta(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DocumentResponse{}, apperror.NewNotFound("document", id)
		}
		return DocumentResponse{}, fmt.Errorf("failed to load document: %w", err)
	}
	return toDocumentResponse(*document), nil
}

func (s *documentService) ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]DocumentResponse, int64, error) {
	documents, total, err := s.documents.ListByOwner(ctx, ownerID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}

	result := make([]DocumentResponse, 0, len(documents))
	for _, document := range documents {
		result = append(result, toDocumentResponse(document))
	}
	return result, total, nil
}

func (s *documentService) ListDocumentTypes(ctx context.Context) ([]DocumentTypeResponse, error) {
	types, err := s.documents.ListDocumentTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list document types: %w", err)
	}

	result := make([]DocumentTypeResponse, 0, len(types))
	for _, docType := range types {
		result = append(result, DocumentTypeResponse{
			ID:   docType.ID,
			Code: docType.Code,
			Name: docType.Name,
		})
	}
	return result, nil
}

// --- Helpers ---

func toDocumentResponse(document model.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:             document.ID.String(),
		FileName:       document.FileName,
		ContentType:    document.ContentType,
		SizeBytes:      document.SizeBytes,
		DocumentTypeID: document.DocumentTypeID,
		DownloadURL:    documentDownloadURL(document.ID),
		CreatedAt:      document.CreatedAt.Format(time.RFC3339),
	}
	if document.DocumentType != nil {
		name := document.DocumentType.Name
		resp.DocumentType = &name
	}
	return resp
}
