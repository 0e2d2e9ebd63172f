package service

import (
	"context"
	"testing"

	"buildfund/internal/model"
	"buildfund/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checklistFixture struct {
	svc       InformationRequestService
	users     *fakeUserRepo
	requests  *fakeInfoRequestRepo
	documents *fakeDocumentRepo
	audit     *fakeAuditRepo
	events    *fakeEvents

	borrowerUserID uuid.UUID
	lenderUserID   uuid.UUID
	application    *model.Application
}

func newChecklistFixture(t *testing.T, policy ParsePolicy) *checklistFixture {
	t.Helper()

	f := &checklistFixture{
		users:     newFakeUserRepo(),
		requests:  newFakeInfoRequestRepo(),
		documents: newFakeDocumentRepo(),
		audit:     &fakeAuditRepo{},
		events:    &fakeEvents{},
	}

	projects := newFakeProjectRepo()
	apps := newFakeApplicationRepo()

	f.borrowerUserID = uuid.New()
	borrower := &model.BorrowerProfile{ID: uuid.New(), UserID: f.borrowerUserID}
	f.users.borrowers[f.borrowerUserID.String()] = borrower

	f.lenderUserID = uuid.New()
	lender := &model.LenderProfile{ID: uuid.New(), UserID: f.lenderUserID}
	f.users.lenders[f.lenderUserID.String()] = lender

	project := &model.Project{
		ID:                 uuid.New(),
		BorrowerID:         borrower.ID,
		LoanAmountRequired: decimal.NewFromInt(750000),
		TermRequiredMonths: 18,
	}
	projects.projects[project.ID.String()] = project

	f.application = &model.Application{
		ID:                 uuid.New(),
		ProjectID:          project.ID,
		ProductID:          uuid.New(),
		LenderID:           lender.ID,
		ProposedLoanAmount: project.LoanAmountRequired,
		ProposedTermMonths: project.TermRequiredMonths,
		Status:             model.ApplicationStatusUnderReview,
		InitiatedBy:        model.InitiatedByBorrower,
	}
	apps.applications[f.application.ID.String()] = f.application

	f.svc = NewInformationRequestService(
		f.requests, apps, projects, f.users, f.documents,
		f.audit, &fakeTxManager{}, f.events, policy, nil)
	return f
}

func (f *checklistFixture) createRequest(t *testing.T, items ...InformationRequestItemInput) InformationRequestResponse {
	t.Helper()
	resp, err := f.svc.CreateRequest(context.Background(), f.application.ID.String(), f.lenderUserID.String(),
		CreateInformationRequestRequest{Title: "Initial checklist", Items: items})
	require.NoError(t, err)
	return resp
}

func (f *checklistFixture) uploadDocument(owner uuid.UUID) *model.Document {
	doc := &model.Document{
		ID:       uuid.New(),
		OwnerID:  owner,
		FileName: "planning-permission.pdf",
	}
	f.documents.documents[doc.ID.String()] = doc
	return doc
}

func TestCreateInformationRequest_RequiresItems(t *testing.T) {
	f := newChecklistFixture(t, ParsePolicyPermissive)

	_, err := f.svc.CreateRequest(context.Background(), f.application.ID.String(), f.lenderUserID.String(),
		CreateInformationRequestRequest{Title: "Empty checklist"})

	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "items")
}

func TestCreateInformationRequest_NamesEachUntitledItem(t *testing.T) {
	f := newChecklistFixture(t, ParsePolicyPermissive)

	_, err := f.svc.CreateRequest(context.Background(), f.application.ID.String(), f.lenderUserID.String(),
		CreateInformationRequestRequest{
			Title: "Initial checklist",
			Items: []InformationRequestItemInput{
				{Title: "Planning permission"},
				{Title: "   "},
				{Title: ""},
			},
		})

	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "items[1].title")
	assert.Contains(t, valErr.Fields, "items[2].title")
	assert.NotContains(t, valErr.Fields, "items[0].title")
}

func TestCreateInformationRequest_OnlyLenderOfRecord(t *testing.T) {
	f := newChecklistFixture(t, ParsePolicyPermissive)

	otherLenderUser := uuid.New()
	f.users.lenders[otherLenderUser.String()] = &model.LenderProfile{ID: uuid.New(), UserID: otherLenderUser}

	_, err := f.svc.CreateRequest(context.Background(), f.application.ID.String(), otherLenderUser.String(),
		CreateInformationRequestRequest{
			Title: "Checklist",
			Items: []InformationRequestItemInput{{Title: "Planning permission"}},
		})

	var authErr *apperror.AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestCreateInformationRequest_PermissiveParsing(t *testing.T) {
	f := newChecklistFixture(t, ParsePolicyPermissive)

	resp := f.createRequest(t,
		InformationRequestItemInput{Title: "Planning permission", DueDate: "2026-10-15", DocumentTypeID: float64(3)},
		InformationRequestItemInput{Title: "Schedule of works", DueDate: "2025-13-40"},
		InformationRequestItemInput{Title: "PI insurance", DocumentTypeID: "7"},
		InformationRequestItemInput{Title: "Bank statements", DocumentTypeID: ""},
		InformationRequestItemInput{Title: "Valuation", DocumentTypeID: "not-a-number"},
	)

	require.Len(t, resp.Items, 5)

	require.NotNil(t, resp.Items[0].DueDate)
	assert.Equal(t, "2026-10-15", *resp.Items[0].DueDate)
	require.NotNil(t, resp.Items[0].DocumentTypeID)
	assert.EqualValues(t, 3, *resp.Items[0].DocumentTypeID)

	// Unreadable values are stored as absent, not rejected.
	assert.Nil(t, resp.Items[1].DueDate)
	require.NotNil(t, resp.Items[2].DocumentTypeID)
	assert.EqualValues(t, 7, *resp.Items[2].DocumentTypeID)
	assert.Nil(t, resp.Items[3].DocumentTypeID)
	assert.Nil(t, resp.Items[4].DocumentTypeID)

	for _, item := range resp.Items {
		assert.Equal(t, model.ItemStatusPending, item.Status)
		assert.Zero(t, item.ReworkCount)
	}
}

func TestCreateInformationRequest_StrictParsing(t *testing.T) {
	f := newChecklistFixture(t, ParsePolicyStrict)

	_, err := f.svc.CreateRequest(context.Background(), f.application.ID.String(), f.lenderUserID.String(),
		CreateInformationRequestRequest{
			Title: "Checklist",
			Items: []InformationRequestItemInput{
				{Title: "Schedule of works", DueDate: "2025-13-40"},
				{Title: "Valuation", DocumentTypeID: "not-a-number"},
			},
		})

	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "items[0].due_date")
	assert.Contains(t, valErr.Fields, "items[1].document_type_id")
}

func TestSubmitItem_AttachesOwnedDocument(t *testing.T) {
	f := newChecklistFixture(t, ParsePolicyPermissive)
	resp := f.createRequest(t, InformationRequestItemInput{Title: "Planning permission"})
	doc := f.uploadDocument(f.borrowerUserID)

	item, err := f.svc.SubmitItem(context.Background(), resp.Items[0].ID, f.borrowerUserID.String(),
		SubmitItemRequest{DocumentID: doc.ID.String()})
	require.NoError(t, err)

	assert.Equal(t, model.ItemStatusSubmitted, item.Status)
	require.NotNil(t, item.DocumentID)
	assert.Equal(t, doc.ID.String(), *item.DocumentID)
	require.NotNil(t, item.DocumentURL)
	assert.Contains(t, *item.DocumentURL, doc.ID.String())
}

func TestSubmitItem_RejectsForeignDocument(t *testing.T) {
	f := newChecklistFixture(t, ParsePolicyPermissive)
	resp := f.createRequest(t, InformationRequestItemInput{Title: "Planning permission"})
	doc := f.uploadDocument(uuid.New()) // someone else's upload

	_, err := f.svc.SubmitItem(context.Background(), resp.Items[0].ID, f.borrowerUserID.String(),
		SubmitItemRequest{DocumentID: doc.ID.String()})

	var authErr *apperror.AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestSubmitItem_OnlyFromPending(t *testing.T) {
	f := newChecklistFixture(t, ParsePolicyPermissive)
	resp := f.createRequest(t, InformationRequestItemInput{Title: "Planning permission"})
	doc := f.uploadDocument(f.borrowerUserID)

	_, err := f.svc.SubmitItem(context.Background(), resp.Items[0].ID, f.borrowerUserID.String(),
		SubmitItemRequest{DocumentID: doc.ID.String()})
	require.NoError(t, err)

	_, err = f.svc.SubmitItem(context.Background(), resp.Items[0].ID, f.borrowerUserID.String(),
		SubmitItemRequest{DocumentID: doc.ID.String()})

	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "status")
}

func TestReviewItem_AcceptStampsReviewer(t *testing.T) {
	f := newChecklistFixture(t, ParsePolicyPermissive)
	resp := f.createRequest(t, InformationRequestItemInput{Title: "Planning permission"})
	doc := f.uploadDocument(f.borrowerUserID)

	_, err := f.svc.SubmitItem(context.Background(), resp.Items[0].ID, f.borrowerUserID.String(),
		SubmitItemRequest{DocumentID: doc.ID.String()})
	require.NoError(t, err)

	item, err := f.svc.ReviewItem(context.Background(), resp.Items[0].ID, f.lenderUserID.String(),
		ReviewItemRequest{Decision: "accept", Comment: "Looks complete"})
	require.NoError(t, err)

	assert.Equal(t, model.ItemStatusAccepted, item.Status)
	assert.Equal(t, "Looks complete", item.LenderComment)
	require.NotNil(t, item.ReviewedByID)
	assert.Equal(t, f.lenderUserID.String(), *item.ReviewedByID)
	require.NotNil(t, item.ReviewedAt)
	assert.Zero(t, item.ReworkCount)
}

func TestReviewItem_RejectCyclesBackToPending(t *testing.T) {
	f := newChecklistFixture(t, ParsePolicyPermissive)
	resp := f.createRequest(t, InformationRequestItemInput{Title: "Planning permission"})
	doc := f.uploadDocument(f.borrowerUserID)
	itemID := resp.Items[0].ID

	// Two full submit/reject cycles, then an accepting third pass.
	for cycle := 1; cycle <= 2; cycle++ {
		_, err := f.svc.SubmitItem(context.Background(), itemID, f.borrowerUserID.String(),
			SubmitItemRequest{DocumentID: doc.ID.String()})
		require.NoError(t, err)

		item, err := f.svc.ReviewItem(context.Background(), itemID, f.lenderUserID.String(),
			ReviewItemRequest{Decision: "reject", Comment: "Wrong revision"})
		require.NoError(t, err)

		assert.Equal(t, model.ItemStatusPending, item.Status)
		assert.Equal(t, cycle, item.ReworkCount)
	}

	_, err := f.svc.SubmitItem(context.Background(), itemID, f.borrowerUserID.String(),
		SubmitItemRequest{DocumentID: doc.ID.String()})
	require.NoError(t, err)

	item, err := f.svc.ReviewItem(context.Background(), itemID, f.lenderUserID.String(),
		ReviewItemRequest{Decision: "accept"})
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusAccepted, item.Status)
	assert.Equal(t, 2, item.ReworkCount)
}

func TestReviewItem_OnlyFromSubmitted(t *testing.T) {
	f := newChecklistFixture(t, ParsePolicyPermissive)
	resp := f.createRequest(t, InformationRequestItemInput{Title: "Planning permission"})

	_, err := f.svc.ReviewItem(context.Background(), resp.Items[0].ID, f.lenderUserID.String(),
		ReviewItemRequest{Decision: "accept"})

	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "status")
}

func TestParseDueDate(t *testing.T) {
	cases := []struct {
		raw    string
		ok     bool
		hasVal bool
	}{
		{"2026-10-15", true, true},
		{"", true, false},
		{"  ", true, false},
		{"2025-13-40", false, false},
		{"15/10/2026", false, false},
		{"2026-10-15T00:00:00Z", false, false},
	}

	for _, tc := range cases {
		got, ok := parseDueDate(tc.raw)
		assert.Equal(t, tc.ok, ok, "input %q", tc.raw)
		assert.Equal(t, tc.hasVal, got != nil, "input %q", tc.raw)
	}
}

func TestCoerceDocumentTypeID(t *testing.T) {
	cases := []struct {
		name string
		raw  interface{}
		ok   bool
		want *int64
	}{
		{"nil", nil, true, nil},
		{"float64", float64(4), true, int64Ptr(4)},
		{"int", 9, true, int64Ptr(9)},
		{"numeric string", "12", true, int64Ptr(12)},
		{"padded numeric string", " 12 ", true, int64Ptr(12)},
		{"empty string", "", true, nil},
		{"garbage string", "abc", false, nil},
		{"bool", true, false, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := coerceDocumentTypeID(tc.raw)
			assert.Equal(t, tc.ok, ok)
			if tc.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tc.want, *got)
			}
		})
	}
}

func int64Ptr(v int64) *int64 { return &v }
