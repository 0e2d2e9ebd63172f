package service

import (
	"context"
	"strings"
	"testing"

	"buildfund/internal/model"
	"buildfund/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dealFixture struct {
	svc    DealService
	deals  *fakeDealRepo
	apps   *fakeApplicationRepo
	audit  *fakeAuditRepo
	events *fakeEvents

	lenderUserID uuid.UUID
	application  *model.Application
}

func newDealFixture(t *testing.T) *dealFixture {
	t.Helper()

	f := &dealFixture{
		deals:  newFakeDealRepo(),
		apps:   newFakeApplicationRepo(),
		audit:  &fakeAuditRepo{},
		events: &fakeEvents{},
	}

	users := newFakeUserRepo()
	f.lenderUserID = uuid.New()
	lender := &model.LenderProfile{ID: uuid.New(), UserID: f.lenderUserID}
	users.lenders[f.lenderUserID.String()] = lender

	f.application = &model.Application{
		ID:                 uuid.New(),
		ProjectID:          uuid.New(),
		ProductID:          uuid.New(),
		LenderID:           lender.ID,
		ProposedLoanAmount: decimal.NewFromInt(850000),
		ProposedTermMonths: 24,
		Status:             model.ApplicationStatusUnderReview,
		InitiatedBy:        model.InitiatedByBorrower,
	}
	f.apps.applications[f.application.ID.String()] = f.application

	f.deals.firms = []model.ConsultantFirm{
		{ID: uuid.New(), Name: "Meridian Valuations", Discipline: model.DisciplineValuer, Active: true},
		{ID: uuid.New(), Name: "Hartley Rowe LLP", Discipline: model.DisciplineSolicitor, Active: true},
		{ID: uuid.New(), Name: "Keystone Monitoring", Discipline: model.DisciplineMonitoringSurveyor, Active: true},
	}

	f.svc = NewDealService(f.deals, f.apps, users, f.audit, &fakeTxManager{}, f.events, nil)
	return f
}

func TestAcceptApplication_DerivesDealAndFansOut(t *testing.T) {
	f := newDealFixture(t)

	resp, err := f.svc.AcceptApplication(context.Background(), f.application.ID.String(), f.lenderUserID.String(), "Terms agreed on call")
	require.NoError(t, err)

	assert.Equal(t, model.ApplicationStatusAccepted, f.application.Status)
	assert.Equal(t, "Terms agreed on call", f.application.StatusFeedback)
	require.NotNil(t, f.application.StatusChangedAt)

	assert.Equal(t, model.DealStatusInstructed, resp.Status)
	assert.True(t, strings.HasPrefix(resp.ReferenceCode, "BF-"), "got %s", resp.ReferenceCode)
	assert.Equal(t, "850000.00", resp.AgreedLoanAmount)
	assert.Equal(t, 24, resp.AgreedTermMonths)

	// One enquiry per active firm, all starting as SENT.
	require.Len(t, resp.Enquiries, 3)
	for _, enquiry := range resp.Enquiries {
		assert.Equal(t, model.EnquiryStatusSent, enquiry.Status)
		assert.Contains(t, enquiry.Message, resp.ReferenceCode)
	}

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, model.ActionCreateDeal, f.audit.entries[0].Action)
	assert.Contains(t, f.events.published, "deal.created")
}

func TestAcceptApplication_OnlyLenderOfRecord(t *testing.T) {
	f := newDealFixture(t)

	_, err := f.svc.AcceptApplication(context.Background(), f.application.ID.String(), uuid.NewString(), "")

	var authErr *apperror.AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Empty(t, f.deals.deals)
}

func TestAcceptApplication_RejectsTerminalStatuses(t *testing.T) {
	f := newDealFixture(t)
	f.application.Status = model.ApplicationStatusDeclined

	_, err := f.svc.AcceptApplication(context.Background(), f.application.ID.String(), f.lenderUserID.String(), "")

	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "status")
}

func TestAcceptApplication_ExistingDealConflicts(t *testing.T) {
	f := newDealFixture(t)

	first, err := f.svc.AcceptApplication(context.Background(), f.application.ID.String(), f.lenderUserID.String(), "")
	require.NoError(t, err)

	// Force the status back so only the deal linkage blocks the retry.
	f.application.Status = model.ApplicationStatusUnderReview

	_, err = f.svc.AcceptApplication(context.Background(), f.application.ID.String(), f.lenderUserID.String(), "")

	var conflict *apperror.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID, conflict.ID)
}

func TestRespondEnquiry_QuoteRequiresAmount(t *testing.T) {
	f := newDealFixture(t)
	resp, err := f.svc.AcceptApplication(context.Background(), f.application.ID.String(), f.lenderUserID.String(), "")
	require.NoError(t, err)

	consultantID := uuid.NewString()
	_, err = f.svc.RespondEnquiry(context.Background(), resp.Enquiries[0].ID, consultantID,
		RespondEnquiryRequest{Status: model.EnquiryStatusQuoted})

	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "quote_amount")

	quote := decimal.NewFromInt(12500)
	updated, err := f.svc.RespondEnquiry(context.Background(), resp.Enquiries[0].ID, consultantID,
		RespondEnquiryRequest{Status: model.EnquiryStatusQuoted, QuoteAmount: &quote})
	require.NoError(t, err)

	assert.Equal(t, model.EnquiryStatusQuoted, updated.Status)
	require.NotNil(t, updated.QuoteAmount)
	assert.Equal(t, "12500.00", *updated.QuoteAmount)
}

func TestRespondEnquiry_TerminalStatusIsFinal(t *testing.T) {
	f := newDealFixture(t)
	resp, err := f.svc.AcceptApplication(context.Background(), f.application.ID.String(), f.lenderUserID.String(), "")
	require.NoError(t, err)

	consultantID := uuid.NewString()
	_, err = f.svc.RespondEnquiry(context.Background(), resp.Enquiries[0].ID, consultantID,
		RespondEnquiryRequest{Status: model.EnquiryStatusDeclined, Message: "Fully booked this quarter"})
	require.NoError(t, err)

	_, err = f.svc.RespondEnquiry(context.Background(), resp.Enquiries[0].ID, consultantID,
		RespondEnquiryRequest{Status: model.EnquiryStatusQuoted})

	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "status")
}
