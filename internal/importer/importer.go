package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	accountdomain "github.com/esani/pantportal/internal/account/domain"
	bagdomain "github.com/esani/pantportal/internal/bag/domain"
	"github.com/esani/pantportal/internal/clock"
	depositdomain "github.com/esani/pantportal/internal/deposit/domain"
	"github.com/esani/pantportal/internal/identity"
	machinedomain "github.com/esani/pantportal/internal/machine/domain"
	"github.com/esani/pantportal/internal/source"
	"github.com/esani/pantportal/internal/tomra"
)

// defaultLookback bounds the first api import when no earlier batch exists.
const defaultLookback = 30 * 24 * time.Hour

// Summary reports what one import run did.
type Summary struct {
	Imported int
	Skipped  int
	Failed   int
}

type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Deposits depositdomain.Service
	Machines machinedomain.Service
	Bags     bagdomain.Service
	Accounts accountdomain.Service
	Resolver *identity.Resolver
	Tomra    *tomra.Client
}

// Service runs the payout import jobs. Each clearing file and each api
// window becomes at most one payout batch; re-runs are no-ops.
type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	deposits depositdomain.Service
	machines machinedomain.Service
	bags     bagdomain.Service
	accounts accountdomain.Service
	resolver *identity.Resolver
	tomra    *tomra.Client
}

func NewService(p ServiceParam) *Service {
	return &Service{
		log:      p.Log.Named("importer.service"),
		clock:    p.Clock,
		deposits: p.Deposits,
		machines: p.Machines,
		bags:     p.Bags,
		accounts: p.Accounts,
		resolver: p.Resolver,
		tomra:    p.Tomra,
	}
}

// ImportFiles ingests the clearing files present at src that have not been
// imported before. A file that fails to parse is counted as failed and the
// run continues with the next one.
func (s *Service) ImportFiles(ctx context.Context, src source.FileSource) (Summary, error) {
	var summary Summary

	known, err := s.deposits.KnownSourceIdentifiers(ctx, depositdomain.SourceCSV)
	if err != nil {
		return summary, err
	}
	names, err := source.NewFiles(ctx, src, known)
	if err != nil {
		return summary, err
	}

	cache := identity.NewRunCache()
	for _, name := range names {
		if err := s.importFile(ctx, src, name, cache); err != nil {
			s.log.Error("clearing file rejected", zap.String("file", name), zap.Error(err))
			summary.Failed++
			continue
		}
		summary.Imported++
	}
	return summary, nil
}

func (s *Service) importFile(ctx context.Context, src source.FileSource, name string, cache *identity.RunCache) error {
	reader, err := src.Open(ctx, name)
	if err != nil {
		return err
	}
	defer reader.Close()

	file, err := source.ParseClearing(reader)
	if err != nil {
		return err
	}

	items := make([]depositdomain.DepositPayoutItem, 0, len(file.Lines))
	for _, line := range file.Lines {
		machine, err := s.machines.GetBySerial(ctx, line.Serial)
		if err != nil {
			return err
		}
		item := depositdomain.DepositPayoutItem{
			Barcode:    line.Barcode,
			RvmSerial:  line.Serial,
			LocationID: line.LocationID,
			Date:       line.Date,
			Count:      line.Count,
		}
		// Lines for unregistered machines keep null account references so
		// the counted units survive for later correction.
		if machine == nil {
			s.log.Warn("clearing line for unregistered machine",
				zap.String("file", name),
				zap.String("serial", line.Serial),
			)
		} else {
			setAccount(&item, machine.Owner())
		}

		product, err := s.resolver.ResolveProduct(ctx, cache, line.Barcode)
		if err != nil {
			return err
		}
		if product != nil {
			item.ProductID = &product.ID
		}
		items = append(items, item)
	}

	payout := depositdomain.DepositPayout{
		SourceType:       depositdomain.SourceCSV,
		SourceIdentifier: name,
		FromDate:         file.FromDate,
		ToDate:           file.ToDate,
	}
	if err := s.deposits.CreateBatch(ctx, &payout, items); err != nil {
		return err
	}
	s.log.Info("imported clearing file",
		zap.String("file", name),
		zap.Int("lines", len(items)),
	)
	return nil
}

// ImportConsumerSessions pulls machine sessions from the api since the last
// imported window and stores them as one batch. Sessions already stored, or
// missing a barcode on any item, are skipped. Bags identified by a session
// move to the counted state.
func (s *Service) ImportConsumerSessions(ctx context.Context) (Summary, error) {
	var summary Summary

	to := s.clock.Now()
	from := to.Add(-defaultLookback)
	if latest, err := s.deposits.LatestToDate(ctx, depositdomain.SourceAPI); err != nil {
		return summary, err
	} else if latest != nil {
		from = *latest
	}

	serials, err := s.machines.ListSerials(ctx)
	if err != nil {
		return summary, err
	}
	result, err := s.tomra.ConsumerSessions(ctx, from, to, serials)
	if err != nil {
		return summary, err
	}

	ids := make([]uuid.UUID, 0, len(result.Sessions))
	for _, datum := range result.Sessions {
		ids = append(ids, datum.ConsumerSession.ID)
	}
	existing, err := s.deposits.ExistingSessionIDs(ctx, ids)
	if err != nil {
		return summary, err
	}

	cache := identity.NewRunCache()
	var items []depositdomain.DepositPayoutItem
	countedBags := map[string]*bagdomain.QRBag{}

	for _, datum := range result.Sessions {
		session := datum.ConsumerSession
		if existing[session.ID] {
			summary.Skipped++
			continue
		}
		sessionItems, bag, err := s.sessionItems(ctx, cache, datum)
		if err != nil {
			return summary, err
		}
		if sessionItems == nil {
			summary.Skipped++
			continue
		}
		items = append(items, sessionItems...)
		if bag != nil {
			countedBags[bag.QR] = bag
		}
		summary.Imported++
	}

	if len(items) == 0 {
		s.log.Info("no new consumer sessions", zap.Time("from", from), zap.Time("to", to))
		return summary, nil
	}

	payout := depositdomain.DepositPayout{
		SourceType:       depositdomain.SourceAPI,
		SourceIdentifier: result.CollectionURL,
		FromDate:         from,
		ToDate:           to,
	}
	if err := s.deposits.CreateBatch(ctx, &payout, items); err != nil {
		return summary, err
	}

	for qr, bag := range countedBags {
		err := s.bags.SetStatus(ctx, qr, bagdomain.StatusCounted, "importer", datatypes.JSONMap{
			"payout_id": fmt.Sprintf("%d", payout.ID),
		})
		if err != nil {
			// A bag counted twice across windows stays counted.
			s.log.Debug("bag not moved to counted", zap.String("qr", bag.QR), zap.Error(err))
		}
	}

	s.log.Info("imported consumer sessions",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("sessions", summary.Imported),
		zap.Int("lines", len(items)),
	)
	return summary, nil
}

// sessionItems builds the payout lines for one session. A nil slice with a
// nil error means the session should be skipped.
func (s *Service) sessionItems(ctx context.Context, cache *identity.RunCache, datum tomra.Datum) ([]depositdomain.DepositPayoutItem, *bagdomain.QRBag, error) {
	session := datum.ConsumerSession
	if len(session.Items) == 0 {
		return nil, nil, nil
	}

	var consumerIdentity string
	if session.Identity != nil {
		consumerIdentity = session.Identity.ConsumerIdentity
	}
	resolution, err := s.resolver.Resolve(ctx, cache, consumerIdentity)
	if err != nil {
		return nil, nil, err
	}

	var serial, locationID string
	if datum.Rvm != nil {
		serial = datum.Rvm.SerialNumber
	}
	if datum.Location != nil {
		locationID = datum.Location.ID
	}

	sessionID := session.ID
	for _, sessionItem := range session.Items {
		if sessionItem.Barcode == "" {
			s.log.Warn("session with missing barcode skipped",
				zap.String("session_id", sessionID.String()))
			return nil, nil, nil
		}
	}

	items := make([]depositdomain.DepositPayoutItem, 0, len(session.Items))
	for _, sessionItem := range session.Items {
		// Barcodes absent from the catalogue persist with a null product
		// reference.
		product, err := s.resolver.ResolveProduct(ctx, cache, sessionItem.Barcode)
		if err != nil {
			return nil, nil, err
		}
		item := depositdomain.DepositPayoutItem{
			Barcode:           sessionItem.Barcode,
			RvmSerial:         serial,
			LocationID:        locationID,
			Date:              session.StartedAt,
			Count:             sessionItem.Count,
			ConsumerSessionID: &sessionID,
			ConsumerIdentity:  consumerIdentity,
		}
		if product != nil {
			item.ProductID = &product.ID
		}
		if resolution != nil {
			setAccount(&item, resolution.Account)
		}
		items = append(items, item)
	}

	var bag *bagdomain.QRBag
	if resolution != nil {
		bag = resolution.Bag
	}
	return items, bag, nil
}

// CreateManual records a hand-entered payout of count units for the account
// behind externalID, optionally with a per-unit compensation override.
func (s *Service) CreateManual(ctx context.Context, externalID string, date time.Time, barcode string, count int, compensation *int, note string) error {
	account, err := s.accounts.GetFromExternalID(ctx, externalID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("no account for external id %q", externalID)
	}

	cache := identity.NewRunCache()
	item := depositdomain.DepositPayoutItem{
		Barcode:              barcode,
		Date:                 date,
		Count:                count,
		CompensationOverride: compensation,
	}
	setAccount(&item, account)
	product, err := s.resolver.ResolveProduct(ctx, cache, barcode)
	if err != nil {
		return err
	}
	if product != nil {
		item.ProductID = &product.ID
	}

	payout := depositdomain.DepositPayout{
		SourceType:       depositdomain.SourceManual,
		SourceIdentifier: note,
		FromDate:         date,
		ToDate:           date,
	}
	return s.deposits.CreateBatch(ctx, &payout, []depositdomain.DepositPayoutItem{item})
}

func setAccount(item *depositdomain.DepositPayoutItem, account accountdomain.Account) {
	if account == nil {
		return
	}
	id := account.InternalID()
	switch account.AccountKind() {
	case accountdomain.KindCompany:
		item.CompanyID = &id
	case accountdomain.KindBranch:
		item.CompanyBranchID = &id
	case accountdomain.KindKiosk:
		item.KioskID = &id
	}
}
