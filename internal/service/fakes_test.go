package service

import (
	"context"
	"fmt"
	"time"

	"buildfund/internal/model"
	"buildfund/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository fakes. The transaction fake runs the closure on the
// same context, so writes land in the maps directly.

type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeEvents struct {
	published []string
}

func (f *fakeEvents) Publish(eventType string, _ interface{}) {
	f.published = append(f.published, eventType)
}

// --- users ---

type fakeUserRepo struct {
	users     map[string]*model.User
	borrowers map[string]*model.BorrowerProfile // keyed by user id
	lenders   map[string]*model.LenderProfile   // keyed by user id
	refresh   map[string]*model.RefreshToken
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:     map[string]*model.User{},
		borrowers: map[string]*model.BorrowerProfile{},
		lenders:   map[string]*model.LenderProfile{},
		refresh:   map[string]*model.RefreshToken{},
	}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	f.users[user.ID.String()] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	f.users[user.ID.String()] = user
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) CreateRefreshToken(_ context.Context, token *model.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	f.refresh[token.Token] = token
	return nil
}

func (f *fakeUserRepo) GetRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	rt, ok := f.refresh[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rt, nil
}

func (f *fakeUserRepo) DeleteRefreshToken(_ context.Context, token string) error {
	delete(f.refresh, token)
	return nil
}

func (f *fakeUserRepo) CreateBorrowerProfile(_ context.Context, profile *model.BorrowerProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	f.borrowers[profile.UserID.String()] = profile
	return nil
}

func (f *fakeUserRepo) CreateLenderProfile(_ context.Context, profile *model.LenderProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	f.lenders[profile.UserID.String()] = profile
	return nil
}

func (f *fakeUserRepo) GetBorrowerProfile(_ context.Context, userID string) (*model.BorrowerProfile, error) {
	return f.borrowers[userID], nil
}

func (f *fakeUserRepo) GetLenderProfile(_ context.Context, userID string) (*model.LenderProfile, error) {
	return f.lenders[userID], nil
}

// --- projects ---

type fakeProjectRepo struct {
	projects map[string]*model.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: map[string]*model.Project{}}
}

func (f *fakeProjectRepo) Create(_ context.Context, project *model.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	f.projects[project.ID.String()] = project
	return nil
}

func (f *fakeProjectRepo) GetByID(_ context.Context, id string) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (f *fakeProjectRepo) List(_ context.Context, _ string, _, _ int) ([]model.Project, int64, error) {
	out := make([]model.Project, 0, len(f.projects))
	for _, p := range f.projects {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeProjectRepo) Update(_ context.Context, project *model.Project) error {
	f.projects[project.ID.String()] = project
	return nil
}

// --- products ---

type fakeProductRepo struct {
	products map[string]*model.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: map[string]*model.Product{}}
}

func (f *fakeProductRepo) Create(_ context.Context, product *model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	f.products[product.ID.String()] = product
	return nil
}

func (f *fakeProductRepo) GetByID(_ context.Context, id string) (*model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) List(_ context.Context, _ string, _ bool, _, _ int) ([]model.Product, int64, error) {
	out := make([]model.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeProductRepo) Update(_ context.Context, product *model.Product) error {
	f.products[product.ID.String()] = product
	return nil
}

// --- applications ---

type fakeApplicationRepo struct {
	applications map[string]*model.Application
	failCreate   error
}

func newFakeApplicationRepo() *fakeApplicationRepo {
	return &fakeApplicationRepo{applications: map[string]*model.Application{}}
}

func (f *fakeApplicationRepo) Create(_ context.Context, application *model.Application) error {
	if f.failCreate != nil {
		return f.failCreate
	}
	if application.ID == uuid.Nil {
		application.ID = uuid.New()
	}
	application.CreatedAt = time.Now()
	f.applications[application.ID.String()] = application
	return nil
}

func (f *fakeApplicationRepo) GetByID(_ context.Context, id string) (*model.Application, error) {
	a, ok := f.applications[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (f *fakeApplicationRepo) GetDetailed(ctx context.Context, id string) (*model.Application, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeApplicationRepo) FindByProjectAndLender(_ context.Context, projectID, lenderID string) (*model.Application, error) {
	for _, a := range f.applications {
		if a.ProjectID.String() == projectID && a.LenderID.String() == lenderID {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeApplicationRepo) List(_ context.Context, filter repository.ApplicationFilter) ([]model.Application, int64, error) {
	out := []model.Application{}
	for _, a := range f.applications {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeApplicationRepo) Update(_ context.Context, application *model.Application) error {
	f.applications[application.ID.String()] = application
	return nil
}

func (f *fakeApplicationRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, a := range f.applications {
		counts[a.Status]++
	}
	return counts, nil
}

// --- deals ---

type fakeDealRepo struct {
	deals     map[string]*model.Deal
	enquiries map[string]*model.ProviderEnquiry
	firms     []model.ConsultantFirm
	seq       int
}

func newFakeDealRepo() *fakeDealRepo {
	return &fakeDealRepo{
		deals:     map[string]*model.Deal{},
		enquiries: map[string]*model.ProviderEnquiry{},
	}
}

func (f *fakeDealRepo) Create(_ context.Context, deal *model.Deal) error {
	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	deal.CreatedAt = time.Now()
	f.deals[deal.ID.String()] = deal
	return nil
}

func (f *fakeDealRepo) GetByID(_ context.Context, id string) (*model.Deal, error) {
	d, ok := f.deals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (f *fakeDealRepo) GetByApplicationID(_ context.Context, applicationID string) (*model.Deal, error) {
	for _, d := range f.deals {
		if d.ApplicationID.String() == applicationID {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDealRepo) List(_ context.Context, _, _ int) ([]model.Deal, int64, error) {
	out := make([]model.Deal, 0, len(f.deals))
	for _, d := range f.deals {
		out = append(out, *d)
	}
	return out, int64(len(out)), nil
}

func (f *fakeDealRepo) NextReferenceCode(_ context.Context) (string, error) {
	f.seq++
	return fmt.Sprintf("BF-%s-%05d", time.Now().Format("20060102"), f.seq), nil
}

func (f *fakeDealRepo) CreateEnquiry(_ context.Context, enquiry *model.ProviderEnquiry) error {
	if enquiry.ID == uuid.Nil {
		enquiry.ID = uuid.New()
	}
	enquiry.CreatedAt = time.Now()
	f.enquiries[enquiry.ID.String()] = enquiry
	return nil
}

func (f *fakeDealRepo) ListEnquiriesByDeal(_ context.Context, dealID string) ([]model.ProviderEnquiry, error) {
	out := []model.ProviderEnquiry{}
	for _, e := range f.enquiries {
		if e.DealID.String() == dealID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeDealRepo) GetEnquiry(_ context.Context, id string) (*model.ProviderEnquiry, error) {
	e, ok := f.enquiries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}

func (f *fakeDealRepo) UpdateEnquiry(_ context.Context, enquiry *model.ProviderEnquiry) error {
	f.enquiries[enquiry.ID.String()] = enquiry
	return nil
}

func (f *fakeDealRepo) ListActiveFirms(_ context.Context) ([]model.ConsultantFirm, error) {
	return f.firms, nil
}

// --- information requests ---

type fakeInfoRequestRepo struct {
	requests map[string]*model.InformationRequest
	items    map[string]*model.InformationRequestItem
}

func newFakeInfoRequestRepo() *fakeInfoRequestRepo {
	return &fakeInfoRequestRepo{
		requests: map[string]*model.InformationRequest{},
		items:    map[string]*model.InformationRequestItem{},
	}
}

func (f *fakeInfoRequestRepo) Create(_ context.Context, request *model.InformationRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	request.CreatedAt = time.Now()
	for i := range request.Items {
		if request.Items[i].ID == uuid.Nil {
			request.Items[i].ID = uuid.New()
		}
		request.Items[i].RequestID = request.ID
		f.items[request.Items[i].ID.String()] = &request.Items[i]
	}
	f.requests[request.ID.String()] = request
	return nil
}

func (f *fakeInfoRequestRepo) GetByID(_ context.Context, id string) (*model.InformationRequest, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeInfoRequestRepo) ListByApplication(_ context.Context, applicationID string) ([]model.InformationRequest, error) {
	out := []model.InformationRequest{}
	for _, r := range f.requests {
		if r.ApplicationID.String() == applicationID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeInfoRequestRepo) GetItem(_ context.Context, itemID string) (*model.InformationRequestItem, error) {
	item, ok := f.items[itemID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (f *fakeInfoRequestRepo) UpdateItem(_ context.Context, item *model.InformationRequestItem) error {
	f.items[item.ID.String()] = item
	return nil
}

// --- documents ---

type fakeDocumentRepo struct {
	documents map[string]*model.Document
	types     map[int64]*model.DocumentType
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{
		documents: map[string]*model.Document{},
		types:     map[int64]*model.DocumentType{},
	}
}

func (f *fakeDocumentRepo) Create(_ context.Context, document *model.Document) error {
	if document.ID == uuid.Nil {
		document.ID = uuid.New()
	}
	document.CreatedAt = time.Now()
	f.documents[document.ID.String()] = document
	return nil
}

func (f *fakeDocumentRepo) GetByID(_ context.Context, id string) (*model.Document, error) {
	d, ok := f.documents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (f *fakeDocumentRepo) GetMeta(ctx context.Context, id string) (*model.Document, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeDocumentRepo) ListByOwner(_ context.Context, ownerID string, _, _ int) ([]model.Document, int64, error) {
	out := []model.Document{}
	for _, d := range f.documents {
		if d.OwnerID.String() == ownerID {
			out = append(out, *d)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeDocumentRepo) ListDocumentTypes(_ context.Context) ([]model.DocumentType, error) {
	out := make([]model.DocumentType, 0, len(f.types))
	for _, t := range f.types {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeDocumentRepo) GetDocumentType(_ context.Context, id int64) (*model.DocumentType, error) {
	return f.types[id], nil
}

// --- audit ---

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, _, _ int) ([]model.AuditLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}
