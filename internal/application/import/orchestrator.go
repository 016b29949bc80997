package importapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/catalogsync/backend/internal/domain/bulk"
	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/domain/shared"
	sheetimport "github.com/catalogsync/backend/internal/infrastructure/import"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
	"github.com/catalogsync/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const metafieldType = "single_line_text_field"

// OrchestratorConfig holds the tunables of the import pipeline
type OrchestratorConfig struct {
	// StaleAfter is how long a batch may stay processing before it is reclaimed
	StaleAfter time.Duration

	// MaxAttempts is how many claims a batch gets before reclaim fails it
	MaxAttempts int

	// NotifyTimeout bounds the completion mail
	NotifyTimeout time.Duration

	// MetafieldNamespace is the namespace of Custom Label/Value metafields
	MetafieldNamespace string

	// CSVDelimiter separates fields of CSV payloads; zero means comma
	CSVDelimiter rune
}

// DefaultOrchestratorConfig returns default configuration
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		StaleAfter:         30 * time.Minute,
		MaxAttempts:        3,
		NotifyTimeout:      30 * time.Second,
		MetafieldNamespace: "custom",
		CSVDelimiter:       ',',
	}
}

// OrchestratorOption is a functional option for configuring Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithArchive stores payloads in archive before they are cleared
func WithArchive(archive PayloadArchive) OrchestratorOption {
	return func(o *Orchestrator) {
		o.archive = archive
	}
}

// WithMailer sends completion reports through mailer
func WithMailer(mailer Mailer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.mailer = mailer
	}
}

// WithMetrics records outcomes on metrics
func WithMetrics(metrics Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		if metrics != nil {
			o.metrics = metrics
		}
	}
}

// WithLogger sets the base logger
func WithLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// Orchestrator drives claimed batches through decode, normalize and push.
// Batches and the products inside them are handled strictly one at a time.
type Orchestrator struct {
	batches    bulk.BatchRepository
	records    catalog.CatalogRecordRepository
	profiles   catalog.ShippingProfileRepository
	remote     integration.RemoteCatalog
	decoder    *sheetimport.Decoder
	normalizer *Normalizer
	archive    PayloadArchive
	mailer     Mailer
	metrics    Metrics
	config     OrchestratorConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewOrchestrator creates an orchestrator. remote may be nil when no store
// credentials are configured; every claimed batch then fails with a
// *bulk.ConfigurationError.
func NewOrchestrator(
	batches bulk.BatchRepository,
	records catalog.CatalogRecordRepository,
	profiles catalog.ShippingProfileRepository,
	remote integration.RemoteCatalog,
	normalizer *Normalizer,
	config OrchestratorConfig,
	opts ...OrchestratorOption,
) *Orchestrator {
	var csvOpts []sheetimport.CSVOption
	if config.CSVDelimiter != 0 {
		csvOpts = append(csvOpts, sheetimport.WithDelimiter(config.CSVDelimiter))
	}

	o := &Orchestrator{
		batches:    batches,
		records:    records,
		profiles:   profiles,
		remote:     remote,
		decoder:    sheetimport.NewDecoder(csvOpts...),
		normalizer: normalizer,
		metrics:    noopMetrics{},
		config:     config,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.normalizer == nil {
		o.normalizer = NewNormalizer(nil, o.logger)
	}
	return o
}

// ProcessNext claims the oldest pending batch and runs it to a terminal state.
// It reports whether a batch was claimed. An error means progress could not be
// persisted; the batch stays processing until ReclaimStale requeues it.
func (o *Orchestrator) ProcessNext(ctx context.Context) (bool, error) {
	batch, err := o.batches.ClaimNextPending(ctx, o.now())
	if err != nil {
		return false, fmt.Errorf("claim pending batch: %w", err)
	}
	if batch == nil {
		return false, nil
	}
	err = o.process(ctx, batch)
	if errors.Is(err, bulk.ErrClaimLost) {
		o.logger.Warn("Import batch was reclaimed while this worker held it",
			zap.String("batch_id", batch.ID.String()),
			zap.Int("attempt", batch.Attempts),
		)
	}
	return true, err
}

// ReclaimStale requeues batches whose worker stopped without finishing them
func (o *Orchestrator) ReclaimStale(ctx context.Context) (bulk.ReleaseOutcome, error) {
	now := o.now()
	outcome, err := o.batches.ReleaseStale(ctx, o.config.StaleAfter, o.config.MaxAttempts, now)
	if err != nil {
		return outcome, fmt.Errorf("reclaim stale batches: %w", err)
	}
	if outcome.Released > 0 || outcome.Abandoned > 0 {
		o.logger.Warn("Reclaimed stale import batches",
			zap.Int("released", outcome.Released),
			zap.Int("abandoned", outcome.Abandoned),
		)
		for i := 0; i < outcome.Abandoned; i++ {
			o.metrics.BatchFinished(ctx, string(bulk.BatchStatusFailed))
		}
	}
	return outcome, nil
}

func (o *Orchestrator) process(ctx context.Context, batch *bulk.ImportBatch) (err error) {
	ctx = logger.WithBatchID(ctx, batch.ID.String())
	ctx = logger.WithOwnerID(ctx, batch.OwnerID.String())
	ctx, span := telemetry.StartSpan(ctx, "import.batch",
		attribute.String("batch.id", batch.ID.String()),
		attribute.String("batch.file_name", batch.FileName),
		attribute.Int("batch.attempt", batch.Attempts),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	log := logger.Enrich(ctx, o.logger)
	log.Info("Processing import batch",
		zap.String("file_name", batch.FileName),
		zap.Int64("file_size", batch.FileSize),
		zap.Int("attempt", batch.Attempts),
	)

	payload := batch.RawPayload

	if o.remote == nil {
		return o.failBatch(ctx, batch, payload, &bulk.ConfigurationError{Reason: "shop domain and access token are required"})
	}

	rows, err := o.decoder.Decode(payload)
	if err != nil {
		return o.failBatch(ctx, batch, payload, err)
	}
	groups := sheetimport.GroupByColumn(rows, ColProductURL)
	if len(groups) == 0 {
		return o.failBatch(ctx, batch, payload, &bulk.DecodeError{Reason: "no row has a Product URL"})
	}

	if err := batch.SetTotal(len(groups)); err != nil {
		return err
	}
	if err := o.batches.UpdateSummary(ctx, batch.ClaimRef(), bulk.SummaryDelta{Total: len(groups)}, o.now()); err != nil {
		return err
	}

	for _, group := range groups {
		result := o.processProduct(ctx, batch, group)
		if err := batch.RecordResult(result); err != nil {
			return err
		}
		if err := o.batches.AppendResult(ctx, batch.ClaimRef(), result, o.now()); err != nil {
			return err
		}
	}

	if err := batch.Complete(o.now()); err != nil {
		return err
	}
	return o.finish(ctx, batch, payload)
}

// failBatch finalizes a batch that could not start per-product work
func (o *Orchestrator) failBatch(ctx context.Context, batch *bulk.ImportBatch, payload []byte, cause error) error {
	logger.Enrich(ctx, o.logger).Error("Import batch failed", zap.Error(cause))
	if err := batch.Fail(cause.Error(), o.now()); err != nil {
		return err
	}
	return o.finish(ctx, batch, payload)
}

// finish archives the payload, writes the terminal state and sends the report
func (o *Orchestrator) finish(ctx context.Context, batch *bulk.ImportBatch, payload []byte) error {
	log := logger.Enrich(ctx, o.logger)

	if o.archive != nil && len(payload) > 0 {
		key, err := o.archive.ArchivePayload(ctx, batch.OwnerID, batch.ID, batch.FileName, payload)
		if err != nil {
			log.Warn("Failed to archive import payload", zap.Error(err))
		} else {
			batch.ArchiveKey = key
		}
	}

	if err := o.batches.Finalize(ctx, batch); err != nil {
		return err
	}
	o.metrics.BatchFinished(ctx, string(batch.Status))

	log.Info("Import batch finished",
		zap.String("status", string(batch.Status)),
		zap.Int("total", batch.Summary.Total),
		zap.Int("success", batch.Summary.Success),
		zap.Int("failed", batch.Summary.Failed),
	)

	o.notify(ctx, batch)
	return nil
}

// notify mails the completion report. Failures are logged only.
func (o *Orchestrator) notify(ctx context.Context, batch *bulk.ImportBatch) {
	log := logger.Enrich(ctx, o.logger)
	if o.mailer == nil {
		return
	}
	if batch.OwnerEmail == "" {
		log.Debug("Batch owner has no email, skipping report")
		return
	}

	body, err := RenderReport(batch)
	if err != nil {
		log.Error("Failed to render import report", zap.Error(err))
		return
	}

	if o.config.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.NotifyTimeout)
		defer cancel()
	}
	if err := o.mailer.SendHTML(ctx, batch.OwnerEmail, ReportSubject(batch), body); err != nil {
		log.Warn("Failed to send import report", zap.String("to", batch.OwnerEmail), zap.Error(err))
	}
}

// processProduct turns one handle group into a result. Errors never escape.
func (o *Orchestrator) processProduct(ctx context.Context, batch *bulk.ImportBatch, group sheetimport.Group) bulk.ProductResult {
	startedAt := o.now()
	handle := NormalizeHandle(group.Key)
	if handle == "" {
		handle = group.Key
	}

	ctx, span := telemetry.StartSpan(ctx, "import.product", attribute.String("product.handle", handle))
	defer span.End()
	log := logger.Enrich(ctx, o.logger).With(zap.String("handle", handle))

	err := o.pushGroup(ctx, batch, group)

	completedAt := o.now()
	var result bulk.ProductResult
	if err != nil {
		telemetry.RecordError(span, err)
		log.Warn("Product import failed", zap.Error(err))
		result = bulk.NewErrorResult(handle, err.Error(), startedAt, completedAt)
	} else {
		telemetry.SetOK(span)
		log.Debug("Product imported")
		result = bulk.NewSuccessResult(handle, startedAt, completedAt)
	}
	o.metrics.ProductProcessed(ctx, string(result.Status), completedAt.Sub(startedAt))
	return result
}

func (o *Orchestrator) pushGroup(ctx context.Context, batch *bulk.ImportBatch, group sheetimport.Group) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while importing product: %v", r)
		}
	}()

	product, err := o.normalizer.Normalize(ctx, batch.OwnerID, group)
	if err != nil {
		return err
	}
	return o.pushProduct(ctx, batch, product)
}

// pushProduct upserts product and everything hanging off it, in dependency order
func (o *Orchestrator) pushProduct(ctx context.Context, batch *bulk.ImportBatch, product *catalog.NormalizedProduct) error {
	existing, err := o.findExisting(ctx, batch, product.Handle)
	if err != nil {
		return err
	}

	var productID int64
	if existing != nil {
		productID = existing.ID
	}
	remote, err := o.remote.UpsertProduct(ctx, productID, buildProductInput(batch.OwnerID, product, existing))
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}

	for _, m := range product.Metafields {
		err := o.remote.CreateMetafield(ctx, remote.ID, integration.MetafieldInput{
			Namespace: o.config.MetafieldNamespace,
			Key:       m.Key,
			Value:     m.Value,
			Type:      metafieldType,
		})
		if err != nil {
			return fmt.Errorf("create metafield %s: %w", m.Key, err)
		}
	}

	if product.TracksQuantity() {
		if err := o.syncInventory(ctx, product, remote); err != nil {
			return err
		}
	}

	if product.IsPhysical() {
		if err := o.attachShipping(ctx, batch, product, remote); err != nil {
			return err
		}
	}

	if err := o.syncImages(ctx, product, remote); err != nil {
		return err
	}

	full, err := o.remote.FetchFullProduct(ctx, remote.ID)
	if err != nil {
		return fmt.Errorf("fetch product: %w", err)
	}
	return o.saveRecord(ctx, batch, product.Handle, full)
}

// findExisting resolves the owner's remote product for handle: the local record
// first, then a handle lookup restricted to products tagged for the owner. It
// returns nil when the owner has no such product yet.
func (o *Orchestrator) findExisting(ctx context.Context, batch *bulk.ImportBatch, handle string) (*integration.RemoteProduct, error) {
	record, err := o.records.FindByHandle(ctx, batch.OwnerID, handle)
	switch {
	case err == nil:
		remote, err := o.remote.FetchFullProduct(ctx, record.RemoteProductID)
		if err == nil {
			return remote, nil
		}
		if !integration.IsNotFound(err) {
			return nil, fmt.Errorf("fetch product: %w", err)
		}
		logger.Enrich(ctx, o.logger).Info("Recorded product no longer exists remotely",
			zap.String("handle", handle),
			zap.Int64("remote_product_id", record.RemoteProductID),
		)
	case errors.Is(err, shared.ErrNotFound):
	default:
		return nil, &bulk.PersistenceError{Op: "load catalog record", Err: err}
	}

	remote, err := o.remote.FindProductByHandle(ctx, batch.OwnerID, handle)
	if err != nil {
		return nil, fmt.Errorf("find product by handle: %w", err)
	}
	return remote, nil
}

// syncInventory sets each variant's on-hand quantity at its first location
func (o *Orchestrator) syncInventory(ctx context.Context, product *catalog.NormalizedProduct, remote *integration.RemoteProduct) error {
	log := logger.Enrich(ctx, o.logger).With(zap.String("handle", product.Handle))
	for _, v := range product.Variants {
		rv := remote.VariantByOptions(v.Option1, v.Option2, v.Option3)
		if rv == nil || rv.InventoryItemID == 0 {
			log.Warn("Variant has no inventory item", zap.String("sku", v.SKU))
			continue
		}
		levels, err := o.remote.ListInventoryLevels(ctx, rv.InventoryItemID)
		if err != nil {
			return fmt.Errorf("list inventory levels: %w", err)
		}
		if len(levels) == 0 {
			log.Warn("Inventory item is not stocked at any location", zap.Int64("inventory_item_id", rv.InventoryItemID))
			continue
		}
		if err := o.remote.SetInventoryLevel(ctx, levels[0].LocationID, rv.InventoryItemID, v.Quantity); err != nil {
			return fmt.Errorf("set inventory level: %w", err)
		}
	}
	return nil
}

// attachShipping links every variant to the profile named by the short id.
// An unknown short id is logged and skipped.
func (o *Orchestrator) attachShipping(ctx context.Context, batch *bulk.ImportBatch, product *catalog.NormalizedProduct, remote *integration.RemoteProduct) error {
	profile, err := o.profiles.FindByShortID(ctx, batch.OwnerID, product.ShippingProfileRef)
	if errors.Is(err, shared.ErrNotFound) {
		logger.Enrich(ctx, o.logger).Warn("Unknown shipping profile",
			zap.String("handle", product.Handle),
			zap.String("shipping_profile_id", product.ShippingProfileRef),
		)
		return nil
	}
	if err != nil {
		return &bulk.PersistenceError{Op: "load shipping profile", Err: err}
	}
	if err := o.remote.AttachShippingProfile(ctx, profile.RemoteProfileID, remote.VariantIDs()); err != nil {
		return fmt.Errorf("attach shipping profile: %w", err)
	}
	return nil
}

// syncImages replaces the remote images with one image per distinct URL.
// Individual delete and create failures are logged and skipped.
func (o *Orchestrator) syncImages(ctx context.Context, product *catalog.NormalizedProduct, remote *integration.RemoteProduct) error {
	log := logger.Enrich(ctx, o.logger).With(zap.String("handle", product.Handle))

	current, err := o.remote.ListProductImages(ctx, remote.ID)
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}
	for _, img := range current {
		if err := o.remote.DeleteProductImage(ctx, remote.ID, img.ID); err != nil {
			log.Warn("Failed to delete image", zap.Int64("image_id", img.ID), zap.Error(err))
		}
	}

	variantIDs := make(map[catalog.VariantKey]int64, len(remote.Variants))
	for _, rv := range remote.Variants {
		variantIDs[catalog.NewVariantKey(rv.Option1, rv.Option2, rv.Option3)] = rv.ID
	}

	for _, url := range product.Images.URLs() {
		ids := make([]int64, 0)
		for _, key := range product.Images.VariantsFor(url) {
			if id, ok := variantIDs[key]; ok {
				ids = append(ids, id)
			}
		}
		_, err := o.remote.CreateProductImage(ctx, remote.ID, integration.ImageInput{
			Src:        url,
			Alt:        product.Title,
			VariantIDs: ids,
		})
		if err != nil {
			o.metrics.ImageUploaded(ctx, "failed")
			log.Warn("Failed to upload image", zap.String("url", url), zap.Error(err))
			continue
		}
		o.metrics.ImageUploaded(ctx, "uploaded")
	}
	return nil
}

// saveRecord caches the re-fetched remote product locally
func (o *Orchestrator) saveRecord(ctx context.Context, batch *bulk.ImportBatch, handle string, full *integration.RemoteProduct) error {
	record, err := catalog.NewCatalogRecord(batch.OwnerID, handle, full.ID)
	if err != nil {
		return &bulk.PersistenceError{Op: "build catalog record", Err: err}
	}
	snapshot, err := json.Marshal(full)
	if err != nil {
		return &bulk.PersistenceError{Op: "encode product snapshot", Err: err}
	}

	record.Title = full.Title
	record.Status = catalog.Status(full.Status)
	record.VariantIDs = full.VariantIDs()
	record.ImageCount = len(full.Images)
	record.Snapshot = string(snapshot)
	record.SyncedAt = o.now()

	if err := o.records.Save(ctx, record); err != nil {
		return &bulk.PersistenceError{Op: "save catalog record", Err: err}
	}
	return nil
}

// buildProductInput maps a normalized product onto the upsert request. The
// owner tag is always written so later handle lookups can tell owners apart.
// When existing is set, variants that match by option values keep their remote id.
func buildProductInput(ownerID uuid.UUID, product *catalog.NormalizedProduct, existing *integration.RemoteProduct) integration.ProductInput {
	tags := make([]string, 0, len(product.CategoryRefs)+1)
	tags = append(tags, product.CategoryRefs...)
	tags = append(tags, integration.OwnerTag(ownerID))

	input := integration.ProductInput{
		Handle:      product.Handle,
		Title:       product.Title,
		BodyHTML:    product.Description,
		Vendor:      product.Vendor,
		ProductType: product.ProductType,
		Status:      integration.ProductStatus(product.PublishStatus()),
		Tags:        tags,
		Options:     make([]integration.OptionInput, 0, len(product.Options)),
		Variants:    make([]integration.VariantInput, 0, len(product.Variants)),
	}
	for _, opt := range product.Options {
		input.Options = append(input.Options, integration.OptionInput{Name: opt.Name, Values: opt.Values})
	}
	for _, v := range product.Variants {
		vi := integration.VariantInput{
			SKU:              v.SKU,
			Barcode:          v.Barcode,
			Price:            v.Price,
			CompareAtPrice:   v.CompareAtPrice,
			Option1:          v.Option1,
			Option2:          v.Option2,
			Option3:          v.Option3,
			TrackQuantity:    v.TrackQuantity,
			Weight:           v.Weight,
			WeightUnit:       v.WeightUnit,
			RequiresShipping: v.RequiresShipping,
			Taxable:          v.Taxable,
		}
		if existing != nil {
			if rv := existing.VariantByOptions(v.Option1, v.Option2, v.Option3); rv != nil {
				vi.ID = rv.ID
			}
		}
		input.Variants = append(input.Variants, vi)
	}
	return input
}
