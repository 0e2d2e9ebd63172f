package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"buildfund/internal/metrics"
	"buildfund/internal/model"
	"buildfund/internal/repository"
	"buildfund/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ParsePolicy decides what happens to an unparsable item due date or
// document type reference: permissive drops the value, strict rejects the
// request. Permissive matches the historical behaviour of the intake API.
type ParsePolicy int

const (
	ParsePolicyPermissive ParsePolicy = iota
	ParsePolicyStrict
)

// --- DTOs ---

type InformationRequestItemInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	// DueDate is an ISO calendar date (YYYY-MM-DD).
	DueDate string `json:"due_date"`
	// DocumentTypeID arrives loosely typed from clients: number, numeric
	// string, empty string or absent.
	DocumentTypeID interface{} `json:"document_type_id"`
}

type CreateInformationRequestRequest struct {
	Title string                        `json:"title" binding:"required"`
	Notes string                        `json:"notes"`
	Items []InformationRequestItemInput `json:"items"`
}

type SubmitItemRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
}

type ReviewItemRequest struct {
	Decision string `json:"decision" binding:"required,oneof=accept reject"`
	Comment  string `json:"comment"`
}

type InformationRequestItemResponse struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	DueDate        *string `json:"due_date"`
	DocumentTypeID *int64  `json:"document_type_id"`
	Status         string  `json:"status"`
	DocumentID     *string `json:"document_id"`
	DocumentURL    *string `json:"document_url"`
	LenderComment  string  `json:"lender_comment"`
	ReviewedByID   *string `json:"reviewed_by_id"`
	ReviewedAt     *string `json:"reviewed_at"`
	ReworkCount    int     `json:"rework_count"`
}

type InformationRequestResponse struct {
	ID            string                           `json:"id"`
	ApplicationID string                           `json:"application_id"`
	LenderID      string                           `json:"lender_id"`
	Title         string                           `json:"title"`
	Notes         string                           `json:"notes"`
	CreatedAt     string                           `json:"created_at"`
	Items         []InformationRequestItemResponse `json:"items"`
}

// --- Interface ---

type InformationRequestService interface {
	CreateRequest(ctx context.Context, applicationID, actorUserID string, req CreateInformationRequestRequest) (InformationRequestResponse, error)
	Get(ctx context.Context, id string) (InformationRequestResponse, error)
	ListByApplication(ctx context.Context, applicationID string) ([]InformationRequestResponse, error)
	SubmitItem(ctx context.Context, itemID, actorUserID string, req SubmitItemRequest) (InformationRequestItemResponse, error)
	ReviewItem(ctx context.Context, itemID, actorUserID string, req ReviewItemRequest) (InformationRequestItemResponse, error)
}

type informationRequestService struct {
	requests  repository.InformationRequestRepository
	apps      repository.ApplicationRepository
	projects  repository.ProjectRepository
	users     repository.UserRepository
	documents repository.DocumentRepository
	audit     repository.AuditRepository
	txm       repository.TransactionManager
	events    EventBroadcaster
	policy    ParsePolicy
	log       *zap.Logger
}

func NewInformationRequestService(
	requests repository.InformationRequestRepository,
	apps repository.ApplicationRepository,
	projects repository.ProjectRepository,
	users repository.UserRepository,
	documents repository.DocumentRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	events EventBroadcaster,
	policy ParsePolicy,
	log *zap.Logger,
) InformationRequestService {
	if log == nil {
		log = zap.NewNop()
	}
	return &informationRequestService{
		requests:  requests,
		apps:      apps,
		projects:  projects,
		users:     users,
		documents: documents,
		audit:     audit,
		txm:       txm,
		events:    events,
		policy:    policy,
		log:       log,
	}
}

// --- Parsing helpers ---

// parseDueDate parses an ISO YYYY-MM-DD string. ok is false when the input
// is present but not a valid calendar date.
func parseDueDate(raw string) (*time.Time, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// coerceDocumentTypeID accepts a number, a numeric string, an empty string
// or nil. ok is false only when a present value cannot be coerced.
func coerceDocumentTypeID(raw interface{}) (*int64, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, true
	case float64:
		id := int64(v)
		return &id, true
	case int:
		id := int64(v)
		return &id, true
	case int64:
		return &v, true
	case json.Number:
		id, err := v.Int64()
		if err != nil {
			return nil, false
		}
		return &id, true
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, true
		}
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, false
		}
		return &id, true
	default:
		return nil, false
	}
}

// buildItems validates and converts the item inputs. Missing titles are
// always hard failures; parse failures depend on the configured policy.
func (s *informationRequestService) buildItems(inputs []InformationRequestItemInput) ([]model.InformationRequestItem, error) {
	verr := apperror.NewValidation()
	if len(inputs) == 0 {
		verr.Add("items", "at least one item is required")
		return nil, verr
	}

	items := make([]model.InformationRequestItem, 0, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in.Title) == "" {
			verr.Add(fmt.Sprintf("items[%d].title", i), "title is required")
		}

		due, ok := parseDueDate(in.DueDate)
		if !ok && s.policy == ParsePolicyStrict {
			verr.Add(fmt.Sprintf("items[%d].due_date", i), "not a valid YYYY-MM-DD date")
		}

		docType, ok := coerceDocumentTypeID(in.DocumentTypeID)
		if !ok && s.policy == ParsePolicyStrict {
			verr.Add(fmt.Sprintf("items[%d].document_type_id", i), "not a valid document type reference")
		}

		items = append(items, model.InformationRequestItem{
			Title:          strings.TrimSpace(in.Title),
			Description:    in.Description,
			DueDate:        due,
			DocumentTypeID: docType,
			Status:         model.ItemStatusPending,
		})
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return items, nil
}

// --- Implementation ---

func (s *informationRequestService) CreateRequest(ctx context.Context, applicationID, actorUserID string, req CreateInformationRequestRequest) (InformationRequestResponse, error) {
	application, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InformationRequestResponse{}, apperror.NewNotFound("application", applicationID)
		}
		return InformationRequestResponse{}, fmt.Errorf("failed to load application: %w", err)
	}

	actorID, err := uuid.Parse(actorUserID)
	if err != nil {
		return InformationRequestResponse{}, apperror.NewAuthorization("authentication required")
	}
	lender, err := s.users.GetLenderProfile(ctx, actorUserID)
	if err != nil {
		return InformationRequestResponse{}, fmt.Errorf("failed to load lender profile: %w", err)
	}
	// The request's lender is the application's lender of record; only that
	// lender may author a checklist.
	if lender == nil || lender.ID != application.LenderID {
		return InformationRequestResponse{}, apperror.NewAuthorization("only the application's lender of record may request information")
	}

	verr := apperror.NewValidation()
	if strings.TrimSpace(req.Title) == "" {
		verr.Add("title", "title is required")
	}
	items, itemsErr := s.buildItems(req.Items)
	if itemsErr != nil {
		var itemsVerr *apperror.ValidationError
		if errors.As(itemsErr, &itemsVerr) {
			for field, reason := range itemsVerr.Fields {
				verr.Add(field, reason)
			}
		} else {
			return InformationRequestResponse{}, itemsErr
		}
	}
	if verr.HasErrors() {
		return InformationRequestResponse{}, verr
	}

	request := model.InformationRequest{
		ApplicationID: application.ID,
		LenderID:      application.LenderID,
		CreatedByID:   &actorID,
		Title:         strings.TrimSpace(req.Title),
		Notes:         req.Notes,
		Items:         items,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		// One Create cascades the items; there is never a partial item set.
		if createErr := s.requests.Create(txCtx, &request); createErr != nil {
			return fmt.Errorf("failed to create information request: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"application_id": application.ID.String(),
			"items":          len(items),
		})
		entry := model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreateInfoRequest,
			EntityID:   request.ID.String(),
			EntityName: request.Title,
			Details:    string(details),
		}
		if auditErr := s.audit.Log(txCtx, &entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return InformationRequestResponse{}, err
	}

	s.log.Info("information request created",
		zap.String("request_id", request.ID.String()),
		zap.Int("items", len(items)),
	)
	if s.events != nil {
		s.events.Publish("information_request.created", map[string]string{
			"request_id":     request.ID.String(),
			"application_id": application.ID.String(),
		})
	}

	return toInformationRequestResponse(request), nil
}

func (s *informationRequestService) Get(ctx context.Context, id string) (InformationRequestResponse, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InformationRequestResponse{}, apperror.NewNotFound("information request", id)
		}
		return InformationRequestResponse{}, fmt.Errorf("failed to load information request: %w", err)
	}
	return toInformationRequestResponse(*request), nil
}

func (s *informationRequestService) ListByApplication(ctx context.Context, applicationID string) ([]InformationRequestResponse, error) {
	requests, err := s.requests.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list information requests: %w", err)
	}

	result := make([]InformationRequestResponse, 0, len(requests))
	for _, r := range requests {
		result = append(result, toInformationRequestResponse(r))
	}
	return result, nil
}

// loadItemContext loads an item with its request and application.
func (s *informationRequestService) loadItemContext(ctx context.Context, itemID string) (*model.InformationRequestItem, *model.InformationRequest, *model.Application, error) {
	item, err := s.requests.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, apperror.NewNotFound("information request item", itemID)
		}
		return nil, nil, nil, fmt.Errorf("failed to load item: %w", err)
	}

	request, err := s.requests.GetByID(ctx, item.RequestID.String())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load information request: %w", err)
	}

	application, err := s.apps.GetByID(ctx, request.ApplicationID.String())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load application: %w", err)
	}

	return item, request, application, nil
}

// SubmitItem records a borrower upload against a pending item and moves it
// to SUBMITTED.
func (s *informationRequestService) SubmitItem(ctx context.Context, itemID, actorUserID string, req SubmitItemRequest) (InformationRequestItemResponse, error) {
	item, _, application, err := s.loadItemContext(ctx, itemID)
	if err != nil {
		return InformationRequestItemResponse{}, err
	}

	actorID, err := uuid.Parse(actorUserID)
	if err != nil {
		return InformationRequestItemResponse{}, apperror.NewAuthorization("authentication required")
	}
	borrower, err := s.users.GetBorrowerProfile(ctx, actorUserID)
	if err != nil {
		return InformationRequestItemResponse{}, fmt.Errorf("failed to load borrower profile: %w", err)
	}
	if borrower == nil {
		return InformationRequestItemResponse{}, apperror.NewAuthorization("only the borrower may submit items")
	}
	project, err := s.projects.GetByID(ctx, application.ProjectID.String())
	if err != nil {
		return InformationRequestItemResponse{}, fmt.Errorf("failed to load project: %w", err)
	}
	if project.BorrowerID != borrower.ID {
		return InformationRequestItemResponse{}, apperror.NewAuthorization("project does not belong to the acting borrower")
	}

	if item.Status != model.ItemStatusPending {
		return InformationRequestItemResponse{}, apperror.NewValidation().
			Add("status", fmt.Sprintf("cannot submit from %s", item.Status))
	}

	docID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		return InformationRequestItemResponse{}, apperror.NewValidation().Add("document_id", "not a valid document id")
	}
	document, err := s.documents.GetMeta(ctx, req.DocumentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InformationRequestItemResponse{}, apperror.NewNotFound("document", req.DocumentID)
		}
		return InformationRequestItemResponse{}, fmt.Errorf("failed to load document: %w", err)
	}
	if document.OwnerID != actorID {
		return InformationRequestItemResponse{}, apperror.NewAuthorization("document does not belong to the acting user")
	}

	item.DocumentID = &docID
	item.Status = model.ItemStatusSubmitted

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.requests.UpdateItem(txCtx, item); updateErr != nil {
			return fmt.Errorf("failed to update item: %w", updateErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"document_id": req.DocumentID,
		})
		entry := model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionSubmitInfoItem,
			EntityID:   item.ID.String(),
			EntityName: item.Title,
			Details:    string(details),
		}
		if auditErr := s.audit.Log(txCtx, &entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return InformationRequestItemResponse{}, err
	}

	metrics.ItemTransitions.WithLabelValues(model.ItemStatusSubmitted).Inc()
	return toItemResponse(*item), nil
}

// ReviewItem applies a lender decision to a submitted item. Accepting is
// terminal; rejecting returns the item to PENDING and increments the rework
// counter. Both stamp reviewer identity and time.
func (s *informationRequestService) ReviewItem(ctx context.Context, itemID, actorUserID string, req ReviewItemRequest) (InformationRequestItemResponse, error) {
	item, request, _, err := s.loadItemContext(ctx, itemID)
	if err != nil {
		return InformationRequestItemResponse{}, err
	}

	actorID, err := uuid.Parse(actorUserID)
	if err != nil {
		return InformationRequestItemResponse{}, apperror.NewAuthorization("authentication required")
	}
	lender, err := s.users.GetLenderProfile(ctx, actorUserID)
	if err != nil {
		return InformationRequestItemResponse{}, fmt.Errorf("failed to load lender profile: %w", err)
	}
	if lender == nil || lender.ID != request.LenderID {
		return InformationRequestItemResponse{}, apperror.NewAuthorization("only the requesting lender may review items")
	}

	if item.Status != model.ItemStatusSubmitted {
		return InformationRequestItemResponse{}, apperror.NewValidation().
			Add("status", fmt.Sprintf("cannot review from %s", item.Status))
	}

	now := time.Now()
	item.ReviewedByID = &actorID
	item.ReviewedAt = &now
	item.LenderComment = req.Comment

	var transition string
	switch req.Decision {
	case "accept":
		item.Status = model.ItemStatusAccepted
		transition = model.ItemStatusAccepted
	case "reject":
		// The REJECTED -> PENDING traversal is the state machine's only
		// cycle; the rework counter only ever increases.
		item.Status = model.ItemStatusPending
		item.ReworkCount++
		transition = model.ItemStatusRejected
	default:
		return InformationRequestItemResponse{}, apperror.NewValidation().
			Add("decision", "must be accept or reject")
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.requests.UpdateItem(txCtx, item); updateErr != nil {
			return fmt.Errorf("failed to update item: %w", updateErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"decision":     req.Decision,
			"comment":      req.Comment,
			"rework_count": item.ReworkCount,
		})
		entry := model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionReviewInfoItem,
			EntityID:   item.ID.String(),
			EntityName: item.Title,
			Details:    string(details),
		}
		if auditErr := s.audit.Log(txCtx, &entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return InformationRequestItemResponse{}, err
	}

	metrics.ItemTransitions.WithLabelValues(transition).Inc()
	if s.events != nil {
		s.events.Publish("information_item.reviewed", map[string]interface{}{
			"item_id":  item.ID.String(),
			"decision": req.Decision,
		})
	}

	return toItemResponse(*item), nil
}

// --- Helpers ---

func toItemResponse(item model.InformationRequestItem) InformationRequestItemResponse {
	resp := InformationRequestItemResponse{
		ID:            item.ID.String(),
		Title:         item.Title,
		Description:   item.Description,
		Status:        item.Status,
		LenderComment: item.LenderComment,
		ReworkCount:   item.ReworkCount,
	}

	if item.DueDate != nil {
		s := item.DueDate.Format("2006-01-02")
		resp.DueDate = &s
	}
	if item.DocumentTypeID != nil {
		id := *item.DocumentTypeID
		resp.DocumentTypeID = &id
	}
	if item.DocumentID != nil {
		id := item.DocumentID.String()
		url := documentDownloadURL(*item.DocumentID)
		resp.DocumentID = &id
		resp.DocumentURL = &url
	}
	if item.ReviewedByID != nil {
		id := item.ReviewedByID.String()
		resp.ReviewedByID = &id
	}
	if item.ReviewedAt != nil {
		s := item.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &s
	}

	return resp
}

func toInformationRequestResponse(request model.InformationRequest) InformationRequestResponse {
	items := make([]InformationRequestItemResponse, 0, len(request.Items))
	for _, item := range request.Items {
		items = append(items, toItemResponse(item))
	}

	return InformationRequestResponse{
		ID:            request.ID.String(),
		ApplicationID: request.ApplicationID.String(),
		LenderID:      request.LenderID.String(),
		Title:         request.Title,
		Notes:         request.Notes,
		CreatedAt:     request.CreatedAt.Format(time.RFC3339),
		Items:         items,
	}
}
