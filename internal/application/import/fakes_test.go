package importapp

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/catalogsync/backend/internal/domain/bulk"
	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Spreadsheet fixtures
// ---------------------------------------------------------------------------

var fixtureColumns = []string{
	ColProductURL, ColTitle, ColStatus, ColTrackQuantity, ColSKU, ColPrice, ColInventoryQty,
	ColWeight, "Option1 Name", "Option1 Value", ColFeaturedImage, "Variant Image 1",
	ColShippingProfileID, "Custom Label 1", "Custom Value 1", ColCategories,
}

// csvPayload writes rows under fixtureColumns; absent keys become blank cells
func csvPayload(t *testing.T, rows ...map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(fixtureColumns))
	for _, row := range rows {
		record := make([]string, len(fixtureColumns))
		for i, col := range fixtureColumns {
			record[i] = row[col]
		}
		require.NoError(t, w.Write(record))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return buf.Bytes()
}

// ---------------------------------------------------------------------------
// Batch store
// ---------------------------------------------------------------------------

type memoryBatchRepo struct {
	mu        sync.Mutex
	batches   map[uuid.UUID]*bulk.ImportBatch
	order     []uuid.UUID
	appendErr error
	claimErr  error

	releaseStaleAfter time.Duration
	releaseMax        int
	releaseResult     bulk.ReleaseOutcome
}

func newMemoryBatchRepo() *memoryBatchRepo {
	return &memoryBatchRepo{batches: make(map[uuid.UUID]*bulk.ImportBatch)}
}

func cloneBatch(b *bulk.ImportBatch) *bulk.ImportBatch {
	c := *b
	c.Results = append([]bulk.ProductResult(nil), b.Results...)
	return &c
}

func (r *memoryBatchRepo) Create(_ context.Context, batch *bulk.ImportBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[batch.ID] = cloneBatch(batch)
	r.order = append(r.order, batch.ID)
	return nil
}

func (r *memoryBatchRepo) FindByID(_ context.Context, id uuid.UUID) (*bulk.ImportBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneBatch(b), nil
}

func (r *memoryBatchRepo) FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*bulk.ImportBatch, error) {
	b, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.OwnedBy(ownerID) {
		return nil, shared.ErrNotFound
	}
	return b, nil
}

func (r *memoryBatchRepo) FindByOwner(_ context.Context, ownerID uuid.UUID, _ bulk.BatchFilter) ([]*bulk.ImportBatch, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*bulk.ImportBatch, 0)
	for _, id := range r.order {
		if b := r.batches[id]; b.OwnedBy(ownerID) {
			out = append(out, cloneBatch(b))
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryBatchRepo) ClaimNextPending(_ context.Context, now time.Time) (*bulk.ImportBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	for _, id := range r.order {
		b := r.batches[id]
		if b.Status != bulk.BatchStatusPending {
			continue
		}
		if err := b.Claim(now); err != nil {
			return nil, err
		}
		return cloneBatch(b), nil
	}
	return nil, nil
}

// held returns the stored batch when claim is still live on it
func (r *memoryBatchRepo) held(claim bulk.ClaimRef) (*bulk.ImportBatch, error) {
	b, ok := r.batches[claim.BatchID]
	if !ok || !b.HeldBy(claim) {
		return nil, bulk.ErrClaimLost
	}
	return b, nil
}

func (r *memoryBatchRepo) AppendResult(_ context.Context, claim bulk.ClaimRef, res bulk.ProductResult, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	b, err := r.held(claim)
	if err != nil {
		return &bulk.PersistenceError{Op: "append result", Err: err}
	}
	b.Results = append(b.Results, res)
	b.Summary = b.Summary.Apply(bulk.DeltaFor(res))
	b.LockedAt = &now
	return nil
}

func (r *memoryBatchRepo) UpdateSummary(_ context.Context, claim bulk.ClaimRef, delta bulk.SummaryDelta, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.held(claim)
	if err != nil {
		return &bulk.PersistenceError{Op: "update summary", Err: err}
	}
	b.Summary = b.Summary.Apply(delta)
	b.LockedAt = &now
	return nil
}

func (r *memoryBatchRepo) Finalize(_ context.Context, batch *bulk.ImportBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.held(batch.ClaimRef())
	if err != nil {
		return &bulk.PersistenceError{Op: "finalize batch", Err: err}
	}
	b.Status = batch.Status
	b.Error = batch.Error
	b.ArchiveKey = batch.ArchiveKey
	b.CompletedAt = batch.CompletedAt
	b.RawPayload = nil
	return nil
}

func (r *memoryBatchRepo) ReleaseStale(_ context.Context, staleAfter time.Duration, maxAttempts int, _ time.Time) (bulk.ReleaseOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseStaleAfter = staleAfter
	r.releaseMax = maxAttempts
	return r.releaseResult, nil
}

// supersede simulates a stale reclaim followed by another worker's claim
func (r *memoryBatchRepo) supersede(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[id].Attempts++
}

func (r *memoryBatchRepo) stored(id uuid.UUID) *bulk.ImportBatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneBatch(r.batches[id])
}

// ---------------------------------------------------------------------------
// Remote catalog
// ---------------------------------------------------------------------------

type upsertCall struct {
	ProductID int64
	Input     integration.ProductInput
}

type inventoryCall struct {
	LocationID      int64
	InventoryItemID int64
	Available       int
}

type shippingCall struct {
	ProfileID  string
	VariantIDs []int64
}

// fakeRemote is a small in-memory store that assigns ids the way the platform does
type fakeRemote struct {
	mu        sync.Mutex
	nextID    int64
	products  map[int64]*integration.RemoteProduct
	locations []int64

	upserts      []upsertCall
	metafields   []integration.MetafieldInput
	inventory    []inventoryCall
	shipping     []shippingCall
	imageCreates []integration.ImageInput
	imageDeletes []int64
	fetches      int

	handleLookups int

	failUpsert      map[string]bool
	failImageSrc    map[string]bool
	failImageDelete bool
	onUpsert        func()
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		nextID:       1000,
		products:     make(map[int64]*integration.RemoteProduct),
		locations:    []int64{71, 72},
		failUpsert:   make(map[string]bool),
		failImageSrc: make(map[string]bool),
	}
}

func (f *fakeRemote) id() int64 {
	f.nextID++
	return f.nextID
}

func notFound(path string) error {
	return &integration.RemoteRequestError{Method: http.MethodGet, Path: path, StatusCode: http.StatusNotFound}
}

func cloneProduct(p *integration.RemoteProduct) *integration.RemoteProduct {
	c := *p
	c.Options = append([]integration.RemoteOption(nil), p.Options...)
	c.Variants = append([]integration.RemoteVariant(nil), p.Variants...)
	c.Images = append([]integration.RemoteImage(nil), p.Images...)
	return &c
}

func (f *fakeRemote) FindProductByHandle(_ context.Context, ownerID uuid.UUID, handle string) (*integration.RemoteProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handleLookups++
	for _, p := range f.products {
		if p.Handle == handle {
			if !p.OwnedBy(ownerID) {
				return nil, nil
			}
			return cloneProduct(p), nil
		}
	}
	return nil, nil
}

// uniqueHandle suffixes handle the way the platform does when it is taken
func (f *fakeRemote) uniqueHandle(handle string, productID int64) string {
	candidate := handle
	for n := 1; ; n++ {
		taken := false
		for _, p := range f.products {
			if p.Handle == candidate && p.ID != productID {
				taken = true
				break
			}
		}
		if !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", handle, n)
	}
}

func (f *fakeRemote) UpsertProduct(_ context.Context, productID int64, input integration.ProductInput) (*integration.RemoteProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, upsertCall{ProductID: productID, Input: input})
	if f.onUpsert != nil {
		f.onUpsert()
	}

	if f.failUpsert[input.Handle] {
		return nil, &integration.RemoteRequestError{Method: http.MethodPost, Path: "/products.json", StatusCode: http.StatusUnprocessableEntity, Body: "invalid product"}
	}

	var p *integration.RemoteProduct
	if productID == 0 {
		p = &integration.RemoteProduct{ID: f.id()}
	} else {
		existing, ok := f.products[productID]
		if !ok {
			return nil, notFound(fmt.Sprintf("/products/%d.json", productID))
		}
		p = existing
	}

	p.Handle = f.uniqueHandle(input.Handle, p.ID)
	p.Tags = strings.Join(input.Tags, ", ")
	p.Title = input.Title
	p.BodyHTML = input.BodyHTML
	p.Vendor = input.Vendor
	p.ProductType = input.ProductType
	p.Status = input.Status
	p.Options = p.Options[:0]
	for i, opt := range input.Options {
		p.Options = append(p.Options, integration.RemoteOption{Name: opt.Name, Position: i + 1, Values: opt.Values})
	}
	variants := make([]integration.RemoteVariant, 0, len(input.Variants))
	for _, vi := range input.Variants {
		id := vi.ID
		if id == 0 {
			id = f.id()
		}
		variants = append(variants, integration.RemoteVariant{
			ID:              id,
			InventoryItemID: id + 50000,
			SKU:             vi.SKU,
			Price:           vi.Price,
			Option1:         vi.Option1,
			Option2:         vi.Option2,
			Option3:         vi.Option3,
		})
	}
	p.Variants = variants
	f.products[p.ID] = p
	return cloneProduct(p), nil
}

func (f *fakeRemote) CreateMetafield(_ context.Context, _ int64, m integration.MetafieldInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metafields = append(f.metafields, m)
	return nil
}

func (f *fakeRemote) ListInventoryLevels(_ context.Context, inventoryItemID int64) ([]integration.InventoryLevel, error) {
	levels := make([]integration.InventoryLevel, 0, len(f.locations))
	for _, loc := range f.locations {
		levels = append(levels, integration.InventoryLevel{InventoryItemID: inventoryItemID, LocationID: loc})
	}
	return levels, nil
}

func (f *fakeRemote) SetInventoryLevel(_ context.Context, locationID, inventoryItemID int64, available int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inventory = append(f.inventory, inventoryCall{LocationID: locationID, InventoryItemID: inventoryItemID, Available: available})
	return nil
}

func (f *fakeRemote) AttachShippingProfile(_ context.Context, profileID string, variantIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shipping = append(f.shipping, shippingCall{ProfileID: profileID, VariantIDs: variantIDs})
	return nil
}

func (f *fakeRemote) ListProductImages(_ context.Context, productID int64) ([]integration.RemoteImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return nil, notFound(fmt.Sprintf("/products/%d/images.json", productID))
	}
	return append([]integration.RemoteImage(nil), p.Images...), nil
}

func (f *fakeRemote) DeleteProductImage(_ context.Context, productID, imageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failImageDelete {
		return &integration.RemoteRequestError{Method: http.MethodDelete, Path: "/images", StatusCode: http.StatusInternalServerError}
	}
	f.imageDeletes = append(f.imageDeletes, imageID)
	p := f.products[productID]
	kept := p.Images[:0]
	for _, img := range p.Images {
		if img.ID != imageID {
			kept = append(kept, img)
		}
	}
	p.Images = kept
	return nil
}

func (f *fakeRemote) CreateProductImage(_ context.Context, productID int64, image integration.ImageInput) (*integration.RemoteImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCreates = append(f.imageCreates, image)
	if f.failImageSrc[image.Src] {
		return nil, &integration.RemoteRequestError{Method: http.MethodPost, Path: "/images.json", StatusCode: http.StatusUnprocessableEntity, Body: "image could not be downloaded"}
	}
	p := f.products[productID]
	img := integration.RemoteImage{ID: f.id(), Src: image.Src, Alt: image.Alt, Position: len(p.Images) + 1, VariantIDs: image.VariantIDs}
	p.Images = append(p.Images, img)
	return &img, nil
}

func (f *fakeRemote) FetchFullProduct(_ context.Context, productID int64) (*integration.RemoteProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	p, ok := f.products[productID]
	if !ok {
		return nil, notFound(fmt.Sprintf("/products/%d.json", productID))
	}
	return cloneProduct(p), nil
}

func (f *fakeRemote) productIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.products))
	for id := range f.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ---------------------------------------------------------------------------
// Catalog stores
// ---------------------------------------------------------------------------

type memoryRecordRepo struct {
	mu      sync.Mutex
	records map[string]*catalog.CatalogRecord
	saveErr error
}

func newMemoryRecordRepo() *memoryRecordRepo {
	return &memoryRecordRepo{records: make(map[string]*catalog.CatalogRecord)}
}

func recordKey(ownerID uuid.UUID, handle string) string {
	return ownerID.String() + "/" + handle
}

func (r *memoryRecordRepo) FindByHandle(_ context.Context, ownerID uuid.UUID, handle string) (*catalog.CatalogRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[recordKey(ownerID, handle)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	c := *rec
	return &c, nil
}

func (r *memoryRecordRepo) Save(_ context.Context, record *catalog.CatalogRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	c := *record
	r.records[recordKey(record.OwnerID, record.Handle)] = &c
	return nil
}

type memoryProfileRepo struct {
	profiles map[string]*catalog.ShippingProfile
}

func (r *memoryProfileRepo) FindByShortID(_ context.Context, ownerID uuid.UUID, shortID string) (*catalog.ShippingProfile, error) {
	p, ok := r.profiles[shortID]
	if !ok || p.OwnerID != ownerID {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryProfileRepo) Save(_ context.Context, profile *catalog.ShippingProfile) error {
	if r.profiles == nil {
		r.profiles = make(map[string]*catalog.ShippingProfile)
	}
	r.profiles[profile.ShortID] = profile
	return nil
}

// ---------------------------------------------------------------------------
// Side channels
// ---------------------------------------------------------------------------

type sentMail struct {
	To, Subject, Body string
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendHTML(_ context.Context, to, subject, body string) error {
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return m.err
}

type memoryArchive struct {
	objects map[string][]byte
	err     error
}

func (a *memoryArchive) ArchivePayload(_ context.Context, ownerID, batchID uuid.UUID, fileName string, data []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	if a.objects == nil {
		a.objects = make(map[string][]byte)
	}
	key := fmt.Sprintf("imports/%s/%s/%s", ownerID, batchID, fileName)
	a.objects[key] = append([]byte(nil), data...)
	return key, nil
}

func (a *memoryArchive) DownloadURL(_ context.Context, key string) (string, time.Time, error) {
	if a.err != nil {
		return "", time.Time{}, a.err
	}
	return "https://archive.test/" + key + "?signed", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

type countingMetrics struct {
	mu       sync.Mutex
	batches  map[string]int
	products map[string]int
	images   map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		batches:  make(map[string]int),
		products: make(map[string]int),
		images:   make(map[string]int),
	}
}

func (m *countingMetrics) BatchFinished(_ context.Context, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[status]++
}

func (m *countingMetrics) ProductProcessed(_ context.Context, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[status]++
}

func (m *countingMetrics) ImageUploaded(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[outcome]++
}
