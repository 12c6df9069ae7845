package importer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/esani/pantportal/internal/account/domain"
	accountservice "github.com/esani/pantportal/internal/account/service"
	bagdomain "github.com/esani/pantportal/internal/bag/domain"
	bagservice "github.com/esani/pantportal/internal/bag/service"
	"github.com/esani/pantportal/internal/clock"
	"github.com/esani/pantportal/internal/config"
	depositdomain "github.com/esani/pantportal/internal/deposit/domain"
	depositservice "github.com/esani/pantportal/internal/deposit/service"
	"github.com/esani/pantportal/internal/identity"
	machinedomain "github.com/esani/pantportal/internal/machine/domain"
	machineservice "github.com/esani/pantportal/internal/machine/service"
	"github.com/esani/pantportal/internal/migration"
	productdomain "github.com/esani/pantportal/internal/product/domain"
	productservice "github.com/esani/pantportal/internal/product/service"
	qrdomain "github.com/esani/pantportal/internal/qrcode/domain"
	qrservice "github.com/esani/pantportal/internal/qrcode/service"
	"github.com/esani/pantportal/internal/source"
	"github.com/esani/pantportal/internal/tomra"
)

const knownBarcode = "5712345678901"

type fixture struct {
	conn     *gorm.DB
	svc      *Service
	deposits depositdomain.Service
	bags     bagdomain.Service
	qrcodes  qrdomain.Service
}

func testConfig() config.Config {
	return config.Config{
		QR: config.QRConfig{
			URLPrefix:  "http://pant.gl?QR=",
			IDLength:   9,
			HashLength: 8,
			Series: map[string]config.QRSeries{
				"small": {Name: "Små sække", Prefix: 0},
			},
		},
		Tomra: config.TomraConfig{Env: "test", Timeout: 5 * time.Second},
	}
}

func newFixture(t *testing.T, sessions func() tomra.SessionPage) *fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))

	log := zap.NewNop()
	cfg := testConfig()
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	accounts := accountservice.NewService(accountservice.ServiceParam{DB: conn, Log: log})
	bags := bagservice.NewService(bagservice.ServiceParam{DB: conn, Log: log, Clock: fake})
	qrcodes := qrservice.NewService(qrservice.ServiceParam{DB: conn, Log: log, Config: cfg})
	products := productservice.NewService(productservice.ServiceParam{DB: conn, Log: log})
	machines := machineservice.NewService(machineservice.ServiceParam{DB: conn, Log: log})
	deposits := depositservice.NewService(depositservice.ServiceParam{Log: log, DB: conn, ID: node, Clock: fake})

	resolver := identity.NewResolver(identity.ResolverParam{
		Log: log, Config: cfg,
		Accounts: accounts, Bags: bags, QRCodes: qrcodes, Products: products,
	})

	client := tomra.NewClient(tomra.ClientParam{Log: log, Config: cfg})
	if sessions != nil {
		token := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok", "token_type": "bearer", "expires_in": 3600,
			})
		}))
		t.Cleanup(token.Close)
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(sessions())
		}))
		t.Cleanup(api.Close)
		client.BaseURL = api.URL
		client.OAuth.TokenURL = token.URL
	}

	svc := NewService(ServiceParam{
		Log: log, Clock: fake,
		Deposits: deposits, Machines: machines, Bags: bags,
		Accounts: accounts, Resolver: resolver, Tomra: client,
	})
	return &fixture{conn: conn, svc: svc, deposits: deposits, bags: bags, qrcodes: qrcodes}
}

func (f *fixture) seedBranchMachineProduct(t *testing.T) accountdomain.CompanyBranch {
	t.Helper()
	branch := accountdomain.CompanyBranch{
		CompanyFields:  accountdomain.CompanyFields{ID: 7, Name: "Butik Nuuk"},
		CompanyID:      1,
		QRCompensation: 25,
	}
	require.NoError(t, f.conn.Create(&branch).Error)

	branchID := branch.ID
	require.NoError(t, f.conn.Create(&machinedomain.ReverseVendingMachine{
		ID: 1, SerialNumber: "RVM-001", Compensation: 15, CompanyBranchID: &branchID,
	}).Error)
	require.NoError(t, f.conn.Create(&productdomain.Product{
		ID: 1, Name: "Dansk Pilsner", Barcode: knownBarcode, RefundValue: 200,
	}).Error)
	return branch
}

const goodFile = `CLEARING;20240201;20240229
Lokation;Serienummer;Dato;Stregkode;Antal
1234;RVM-001;20240203;` + knownBarcode + `;120
1234;RVM-001;20240204;9999999999999;80
COUNT;4
`

const badTrailerFile = `CLEARING;20240201;20240229
Lokation;Serienummer;Dato;Stregkode;Antal
1234;RVM-001;20240203;` + knownBarcode + `;120
COUNT;9
`

func TestImportFiles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.seedBranchMachineProduct(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.csv"), []byte(goodFile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.csv"), []byte(badTrailerFile), 0o644))

	summary, err := f.svc.ImportFiles(ctx, &source.LocalDirectory{Path: dir})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Failed)

	var payouts []depositdomain.DepositPayout
	require.NoError(t, f.conn.Find(&payouts).Error)
	require.Len(t, payouts, 1)
	assert.Equal(t, "good.csv", payouts[0].SourceIdentifier)
	assert.Equal(t, 2, payouts[0].ItemCount)

	items, err := f.deposits.ItemsInRange(ctx, payouts[0].FromDate, payouts[0].ToDate, false)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		require.NotNil(t, item.CompanyBranchID)
		assert.Equal(t, int64(7), *item.CompanyBranchID)
	}
	// The unknown barcode stays as a null product reference.
	assert.NotNil(t, items[0].ProductID)
	assert.Nil(t, items[1].ProductID)
}

func TestImportFilesKeepsUnknownSerialLines(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.seedBranchMachineProduct(t)

	unknownSerial := `CLEARING;20240201;20240229
Lokation;Serienummer;Dato;Stregkode;Antal
1234;RVM-404;20240203;` + knownBarcode + `;10
1234;RVM-001;20240203;` + knownBarcode + `;20
COUNT;4
`
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mixed.csv"), []byte(unknownSerial), 0o644))

	summary, err := f.svc.ImportFiles(ctx, &source.LocalDirectory{Path: dir})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Zero(t, summary.Skipped)

	// The unregistered machine's units survive with null account refs.
	var payouts []depositdomain.DepositPayout
	require.NoError(t, f.conn.Find(&payouts).Error)
	require.Len(t, payouts, 1)
	assert.Equal(t, 2, payouts[0].ItemCount)

	items, err := f.deposits.ItemsInRange(ctx, payouts[0].FromDate, payouts[0].ToDate, false)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "RVM-404", items[0].RvmSerial)
	assert.Nil(t, items[0].CompanyBranchID)
	assert.Nil(t, items[0].KioskID)
	assert.Equal(t, 10, items[0].Count)
	require.NotNil(t, items[1].CompanyBranchID)

	// A re-run sees the file as already imported.
	again, err := f.svc.ImportFiles(ctx, &source.LocalDirectory{Path: dir})
	require.NoError(t, err)
	assert.Zero(t, again.Imported)
	assert.Zero(t, again.Failed)

	var count int64
	require.NoError(t, f.conn.Model(&depositdomain.DepositPayout{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestImportConsumerSessions(t *testing.T) {
	ctx := context.Background()

	okSession := uuid.New()
	unknownBarcodeSession := uuid.New()
	blankBarcodeSession := uuid.New()
	var bagCode string

	f := newFixture(t, func() tomra.SessionPage {
		return tomra.SessionPage{Data: []tomra.Datum{
			{
				ConsumerSession: tomra.ConsumerSession{
					ID:        okSession,
					StartedAt: time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC),
					Identity:  &tomra.Identity{ConsumerIdentity: bagCode},
					Items:     []tomra.Item{{Barcode: knownBarcode, Count: 500}},
				},
				Rvm: &tomra.Rvm{SerialNumber: "RVM-001"},
			},
			{
				ConsumerSession: tomra.ConsumerSession{
					ID:        unknownBarcodeSession,
					StartedAt: time.Date(2024, 2, 21, 10, 0, 0, 0, time.UTC),
					Items:     []tomra.Item{{Barcode: "4040404040404", Count: 3}},
				},
				Rvm: &tomra.Rvm{SerialNumber: "RVM-001"},
			},
			{
				ConsumerSession: tomra.ConsumerSession{
					ID:        blankBarcodeSession,
					StartedAt: time.Date(2024, 2, 22, 10, 0, 0, 0, time.UTC),
					Items:     []tomra.Item{{Barcode: "", Count: 9}},
				},
				Rvm: &tomra.Rvm{SerialNumber: "RVM-001"},
			},
		}}
	})
	branch := f.seedBranchMachineProduct(t)

	_, err := f.qrcodes.EnsureSeries(ctx, "Små sække", 0)
	require.NoError(t, err)
	codes, err := f.qrcodes.Generate(ctx, 0, 1, "s1")
	require.NoError(t, err)
	bagCode = codes[0]

	branchID := branch.ID
	require.NoError(t, f.bags.Register(ctx, &bagdomain.QRBag{
		QR:              bagCode,
		CompanyBranchID: &branchID,
	}, "admin"))

	summary, err := f.svc.ImportConsumerSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)

	var payouts []depositdomain.DepositPayout
	require.NoError(t, f.conn.Find(&payouts).Error)
	require.Len(t, payouts, 1)
	assert.Equal(t, depositdomain.SourceAPI, payouts[0].SourceType)
	assert.Equal(t, 2, payouts[0].ItemCount)
	assert.Contains(t, payouts[0].SourceIdentifier, "consumer-sessions")

	items, err := f.deposits.ItemsInRange(ctx, payouts[0].FromDate, payouts[0].ToDate, false)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 500, items[0].Count)
	assert.Equal(t, bagCode, items[0].ConsumerIdentity)
	require.NotNil(t, items[0].ConsumerSessionID)
	assert.Equal(t, okSession, *items[0].ConsumerSessionID)
	require.NotNil(t, items[0].CompanyBranchID)
	assert.Equal(t, branch.ID, *items[0].CompanyBranchID)

	// The uncatalogued barcode survives as a null product reference.
	assert.Equal(t, "4040404040404", items[1].Barcode)
	assert.Nil(t, items[1].ProductID)
	assert.Nil(t, items[1].CompanyBranchID)
	require.NotNil(t, items[1].ConsumerSessionID)
	assert.Equal(t, unknownBarcodeSession, *items[1].ConsumerSessionID)

	// The redeemed bag is now counted.
	bag, err := f.bags.GetByQR(ctx, bagCode)
	require.NoError(t, err)
	assert.Equal(t, bagdomain.StatusCounted, bag.Status)

	// A second run over the same window stores nothing new.
	again, err := f.svc.ImportConsumerSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Imported)
	assert.Equal(t, 3, again.Skipped)

	var count int64
	require.NoError(t, f.conn.Model(&depositdomain.DepositPayout{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateManual(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.seedBranchMachineProduct(t)

	rate := 50
	require.NoError(t, f.svc.CreateManual(ctx, "2-00007",
		time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), knownBarcode, 30, &rate, "hand count"))

	var payouts []depositdomain.DepositPayout
	require.NoError(t, f.conn.Find(&payouts).Error)
	require.Len(t, payouts, 1)
	assert.Equal(t, depositdomain.SourceManual, payouts[0].SourceType)
	assert.Equal(t, "hand count", payouts[0].SourceIdentifier)

	items, err := f.deposits.ItemsInRange(ctx, payouts[0].FromDate, payouts[0].ToDate, false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].CompensationOverride)
	assert.Equal(t, 50, *items[0].CompensationOverride)
	require.NotNil(t, items[0].CompanyBranchID)
	assert.Equal(t, int64(7), *items[0].CompanyBranchID)

	err = f.svc.CreateManual(ctx, "2-99999", time.Now(), "", 1, nil, "")
	assert.Error(t, err)
}
