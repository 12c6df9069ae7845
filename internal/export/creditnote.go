package export

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	bagdomain "github.com/esani/pantportal/internal/bag/domain"
	"github.com/esani/pantportal/internal/clock"
	"github.com/esani/pantportal/internal/config"
	depositdomain "github.com/esani/pantportal/internal/deposit/domain"
	"github.com/esani/pantportal/internal/export/domain"
	"github.com/esani/pantportal/internal/identity"
	machinedomain "github.com/esani/pantportal/internal/machine/domain"
)

// CreditNoteLine is one row of the credit-note output.
type CreditNoteLine struct {
	CustomerID      string
	ItemNumber      string
	Text            string
	Quantity        int
	UnitPrice       int
	Total           int64
	FromDate        time.Time
	ToDate          time.Time
	FileID          *uuid.UUID
	AlreadyExported bool
}

// ExportResult is the outcome of one credit-note run. FileID and Stamped
// are only meaningful for committing runs.
type ExportResult struct {
	FileID   uuid.UUID
	Filename string
	Lines    []CreditNoteLine
	Stamped  int64
}

type ExporterParam struct {
	fx.In

	Log      *zap.Logger
	DB       *gorm.DB
	Config   config.Config
	Clock    clock.Clock
	ID       *snowflake.Node
	Deposits depositdomain.Service
	Bags     bagdomain.Service
	Machines machinedomain.Service
}

// Exporter builds the ERP credit-note and debtor files.
type Exporter struct {
	log      *zap.Logger
	db       *gorm.DB
	cfg      config.Config
	clock    clock.Clock
	id       *snowflake.Node
	deposits depositdomain.Service
	bags     bagdomain.Service
	machines machinedomain.Service
}

func NewExporter(p ExporterParam) *Exporter {
	return &Exporter{
		log:      p.Log.Named("export.creditnote"),
		db:       p.DB,
		cfg:      p.Config,
		clock:    p.Clock,
		id:       p.ID,
		deposits: p.Deposits,
		bags:     p.Bags,
		machines: p.Machines,
	}
}

// groupKey identifies one aggregation bucket. Exported is always false on
// committing runs since stamped lines are excluded from the input there.
type groupKey struct {
	customerID string
	source     depositdomain.SourceType
	refund     int
	rate       int
	exported   bool
}

type group struct {
	count   int
	itemIDs []int64
	bagQRs  map[string]bool
}

// CreditNotes aggregates payout lines in [from, to] into credit-note rows.
// A dry run includes already exported lines and mutates nothing; a
// committing run stamps every touched line with a fresh file id, records
// the export and moves the referenced bags to paid.
func (e *Exporter) CreditNotes(ctx context.Context, from, to time.Time, dry bool) (*ExportResult, error) {
	items, err := e.deposits.ItemsInRange(ctx, from, to, dry)
	if err != nil {
		return nil, err
	}
	catalogue, err := e.catalogue(ctx)
	if err != nil {
		return nil, err
	}

	groups := map[groupKey]*group{}
	rates := map[string]int{}
	for i := range items {
		item := &items[i]
		account := item.Account()
		if account == nil {
			e.log.Warn("payout line without account skipped", zap.Int64("item_id", item.ID))
			continue
		}
		// Machine-reported lines need a catalogued product for the deposit
		// price; without one they stay unexported for correction.
		if item.Source() != depositdomain.SourceManual && item.Product == nil {
			e.log.Warn("payout line without product skipped",
				zap.Int64("item_id", item.ID),
				zap.String("barcode", item.Barcode),
			)
			continue
		}
		key := groupKey{
			customerID: account.ExternalCustomerID(),
			source:     item.Source(),
			refund:     e.refundValue(item),
			exported:   item.FileID != nil,
		}
		switch key.source {
		case depositdomain.SourceCSV:
			key.rate = e.machineRate(ctx, rates, item.RvmSerial)
		case depositdomain.SourceAPI:
			key.rate = account.BagCompensation()
		case depositdomain.SourceManual:
			if item.CompensationOverride == nil {
				e.log.Warn("manual line without compensation override skipped",
					zap.Int64("item_id", item.ID))
				continue
			}
			key.rate = *item.CompensationOverride
		}
		bucket := groups[key]
		if bucket == nil {
			bucket = &group{bagQRs: map[string]bool{}}
			groups[key] = bucket
		}
		bucket.count += item.Count
		bucket.itemIDs = append(bucket.itemIDs, item.ID)
		if key.source == depositdomain.SourceAPI &&
			item.ConsumerIdentity != "" && !identity.IsAccountIdentity(item.ConsumerIdentity) {
			bucket.bagQRs[item.ConsumerIdentity] = true
		}
	}

	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.customerID != b.customerID {
			return a.customerID < b.customerID
		}
		if a.source != b.source {
			return a.source < b.source
		}
		if a.refund != b.refund {
			return a.refund < b.refund
		}
		return a.rate < b.rate
	})

	result := &ExportResult{}
	var allItemIDs []int64
	allBagQRs := map[string]bool{}
	for _, key := range keys {
		bucket := groups[key]
		lines, err := e.groupLines(key, bucket, catalogue, from, to)
		if err != nil {
			return nil, err
		}
		result.Lines = append(result.Lines, lines...)
		allItemIDs = append(allItemIDs, bucket.itemIDs...)
		for qr := range bucket.bagQRs {
			allBagQRs[qr] = true
		}
	}

	if dry || len(result.Lines) == 0 {
		result.Filename = Filename(from, to, uuid.Nil)
		return result, nil
	}
	return result, e.commit(ctx, result, from, to, allItemIDs, allBagQRs)
}

func (e *Exporter) commit(ctx context.Context, result *ExportResult, from, to time.Time, itemIDs []int64, bagQRs map[string]bool) error {
	fileID := uuid.New()
	stamped, err := e.deposits.StampFileID(ctx, itemIDs, fileID)
	if err != nil {
		return err
	}
	record := domain.ERPCreditNoteExport{
		ID:        e.id.Generate().Int64(),
		FileID:    fileID,
		FromDate:  from,
		ToDate:    to,
		LineCount: len(result.Lines),
		CreatedAt: e.clock.Now(),
	}
	if err := e.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}

	for qr := range bagQRs {
		if err := e.payBag(ctx, qr, fileID); err != nil {
			return err
		}
	}

	result.FileID = fileID
	result.Filename = Filename(from, to, fileID)
	result.Stamped = stamped
	for i := range result.Lines {
		result.Lines[i].FileID = &fileID
	}
	e.log.Info("committed credit-note export",
		zap.String("file_id", fileID.String()),
		zap.Int("lines", len(result.Lines)),
		zap.Int64("stamped", stamped),
	)
	return nil
}

func (e *Exporter) payBag(ctx context.Context, qr string, fileID uuid.UUID) error {
	bag, err := e.bags.GetByQR(ctx, qr)
	if err != nil {
		return err
	}
	if bag == nil {
		bag, err = e.bags.GetByShortCode(ctx, qr)
		if err != nil {
			return err
		}
	}
	if bag == nil {
		e.log.Warn("exported bag code has no registered bag", zap.String("qr", qr))
		return nil
	}
	err = e.bags.SetStatus(ctx, bag.QR, bagdomain.StatusPaid, "export", datatypes.JSONMap{
		"file_id": fileID.String(),
	})
	if err != nil {
		// Re-exports of stamped lines never reach here; a bag already
		// paid by an earlier run just stays paid.
		e.log.Debug("bag not moved to paid", zap.String("qr", bag.QR), zap.Error(err))
	}
	return nil
}

// groupLines emits the credit-note rows for one aggregation bucket.
func (e *Exporter) groupLines(key groupKey, bucket *group, catalogue map[string]domain.ERPProductMapping, from, to time.Time) ([]CreditNoteLine, error) {
	var specifier string
	switch key.source {
	case depositdomain.SourceCSV:
		specifier = domain.SpecifierRVM
	case depositdomain.SourceAPI:
		specifier = domain.SpecifierBag
	case depositdomain.SourceManual:
		specifier = domain.SpecifierManual
	default:
		return nil, fmt.Errorf("unknown source type %q", key.source)
	}

	deposit, err := lookup(catalogue, domain.CategoryDeposit, specifier)
	if err != nil {
		return nil, err
	}
	handling, err := lookup(catalogue, domain.CategoryHandling, specifier)
	if err != nil {
		return nil, err
	}

	lines := []CreditNoteLine{
		e.line(key, deposit, bucket.count, key.refund, from, to),
		e.line(key, handling, bucket.count, key.rate, from, to),
	}

	if key.source != depositdomain.SourceAPI {
		return lines, nil
	}

	// One extra row per series prefix present among the group's bags.
	prefixCounts := map[string]int{}
	for qr := range bucket.bagQRs {
		prefixCounts[qr[:1]]++
	}
	prefixes := make([]string, 0, len(prefixCounts))
	for prefix := range prefixCounts {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		mapping, err := lookup(catalogue, domain.CategoryBag, prefix)
		if err != nil {
			e.log.Warn("bag with unknown series prefix dropped",
				zap.String("prefix", prefix),
				zap.Int("bags", prefixCounts[prefix]),
			)
			continue
		}
		lines = append(lines, e.line(key, mapping, prefixCounts[prefix], mapping.Rate, from, to))
	}
	return lines, nil
}

func (e *Exporter) line(key groupKey, mapping domain.ERPProductMapping, quantity, unitPrice int, from, to time.Time) CreditNoteLine {
	return CreditNoteLine{
		CustomerID:      key.customerID,
		ItemNumber:      mapping.ItemNumber,
		Text:            mapping.Text,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		Total:           int64(quantity) * int64(unitPrice),
		FromDate:        from,
		ToDate:          to,
		AlreadyExported: key.exported,
	}
}

func (e *Exporter) refundValue(item *depositdomain.DepositPayoutItem) int {
	if item.Source() == depositdomain.SourceManual {
		return e.cfg.Export.DefaultRefundValue
	}
	return item.Product.RefundValue
}

func (e *Exporter) machineRate(ctx context.Context, rates map[string]int, serial string) int {
	if rate, ok := rates[serial]; ok {
		return rate
	}
	rate := 0
	machine, err := e.machines.GetBySerial(ctx, serial)
	if err != nil {
		e.log.Warn("machine rate lookup failed", zap.String("serial", serial), zap.Error(err))
	} else if machine != nil {
		rate = machine.Compensation
	} else {
		e.log.Warn("no registered machine for rate", zap.String("serial", serial))
	}
	rates[serial] = rate
	return rate
}

func (e *Exporter) catalogue(ctx context.Context) (map[string]domain.ERPProductMapping, error) {
	var mappings []domain.ERPProductMapping
	if err := e.db.WithContext(ctx).Find(&mappings).Error; err != nil {
		return nil, err
	}
	catalogue := make(map[string]domain.ERPProductMapping, len(mappings))
	for _, mapping := range mappings {
		catalogue[catalogueKey(mapping.Category, mapping.Specifier)] = mapping
	}
	return catalogue, nil
}

func catalogueKey(category domain.Category, specifier string) string {
	return string(category) + "/" + specifier
}

func lookup(catalogue map[string]domain.ERPProductMapping, category domain.Category, specifier string) (domain.ERPProductMapping, error) {
	mapping, ok := catalogue[catalogueKey(category, specifier)]
	if !ok {
		return domain.ERPProductMapping{}, fmt.Errorf("no erp mapping for %s/%s", category, specifier)
	}
	return mapping, nil
}

// Filename names a credit-note file after its window and file id.
func Filename(from, to time.Time, fileID uuid.UUID) string {
	return fmt.Sprintf("kreditnota_%s_%s_%s.csv",
		from.Format("2006-01-02"), to.Format("2006-01-02"), fileID)
}
