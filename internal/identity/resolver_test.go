package identity

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
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
	"github.com/esani/pantportal/internal/migration"
	productdomain "github.com/esani/pantportal/internal/product/domain"
	productservice "github.com/esani/pantportal/internal/product/service"
	qrdomain "github.com/esani/pantportal/internal/qrcode/domain"
	qrservice "github.com/esani/pantportal/internal/qrcode/service"
)

func testConfig() config.Config {
	return config.Config{
		QR: config.QRConfig{
			URLPrefix:  "http://pant.gl?QR=",
			IDLength:   9,
			HashLength: 8,
			Series: map[string]config.QRSeries{
				"small": {Name: "Små sække", Prefix: 0},
				"large": {Name: "Store sække", Prefix: 1},
				"test":  {Name: "QR-koder til test", Prefix: 9},
			},
		},
	}
}

type fixture struct {
	conn     *gorm.DB
	resolver *Resolver
	qrcodes  qrdomain.Service
	bags     bagdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))

	log := zap.NewNop()
	cfg := testConfig()
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	accounts := accountservice.NewService(accountservice.ServiceParam{DB: conn, Log: log})
	bags := bagservice.NewService(bagservice.ServiceParam{DB: conn, Log: log, Clock: fake})
	qrcodes := qrservice.NewService(qrservice.ServiceParam{DB: conn, Log: log, Config: cfg})
	products := productservice.NewService(productservice.ServiceParam{DB: conn, Log: log})

	resolver := NewResolver(ResolverParam{
		Log:      log,
		Config:   cfg,
		Accounts: accounts,
		Bags:     bags,
		QRCodes:  qrcodes,
		Products: products,
	})
	return &fixture{conn: conn, resolver: resolver, qrcodes: qrcodes, bags: bags}
}

func TestResolveAccountIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	branch := accountdomain.CompanyBranch{
		CompanyFields: accountdomain.CompanyFields{ID: 42, Name: "Butik Nuuk"},
		CompanyID:     1,
	}
	require.NoError(t, f.conn.Create(&branch).Error)

	cache := NewRunCache()
	res, err := f.resolver.Resolve(ctx, cache, "8000200042")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Nil(t, res.Bag)
	assert.Equal(t, accountdomain.KindBranch, res.Account.AccountKind())
	assert.Equal(t, int64(42), res.Account.InternalID())
}

func TestResolveAccountIdentityUnknownAccount(t *testing.T) {
	f := newFixture(t)
	res, err := f.resolver.Resolve(context.Background(), NewRunCache(), "8000399999")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestResolveBagIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	branch := accountdomain.CompanyBranch{
		CompanyFields: accountdomain.CompanyFields{ID: 7, Name: "Butik Nuuk"},
		CompanyID:     1,
	}
	require.NoError(t, f.conn.Create(&branch).Error)

	_, err := f.qrcodes.EnsureSeries(ctx, "Små sække", 0)
	require.NoError(t, err)
	codes, err := f.qrcodes.Generate(ctx, 0, 1, "s1")
	require.NoError(t, err)

	branchID := branch.ID
	require.NoError(t, f.bags.Register(ctx, &bagdomain.QRBag{
		QR:              codes[0],
		CompanyBranchID: &branchID,
	}, "admin"))

	res, err := f.resolver.Resolve(ctx, NewRunCache(), codes[0])
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotNil(t, res.Bag)
	assert.Equal(t, codes[0], res.Bag.QR)
	assert.Equal(t, int64(7), res.Account.InternalID())
}

func TestResolveAccountShapedBagCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	branch := accountdomain.CompanyBranch{
		CompanyFields: accountdomain.CompanyFields{ID: 7, Name: "Butik Nuuk"},
		CompanyID:     1,
	}
	require.NoError(t, f.conn.Create(&branch).Error)

	// A test-series short code like 9000100001 also parses as account
	// identity 1-00001; with no such account it must still resolve as a bag.
	require.NoError(t, f.conn.Create(&qrdomain.QRCodeGenerator{
		ID: 10, Name: "QR-koder til test", Prefix: 9, Count: 200000,
	}).Error)
	require.NoError(t, f.conn.Create(&qrdomain.QRCodeInterval{
		ID: 1, GeneratorID: 10, Start: 0, Length: 200000, Salt: "s9",
	}).Error)

	full := qrdomain.FormatCode(9, 100001, 9, "s9", 8)
	branchID := branch.ID
	require.NoError(t, f.bags.Register(ctx, &bagdomain.QRBag{
		QR:              full,
		CompanyBranchID: &branchID,
	}, "admin"))

	res, err := f.resolver.Resolve(ctx, NewRunCache(), "9000100001")
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotNil(t, res.Bag)
	assert.Equal(t, full, res.Bag.QR)
	assert.Equal(t, int64(7), res.Account.InternalID())
}

func TestResolveUnknownIdentity(t *testing.T) {
	f := newFixture(t)
	res, err := f.resolver.Resolve(context.Background(), NewRunCache(), "bogus")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestRunCacheRemembersMisses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cache := NewRunCache()

	res, err := f.resolver.Resolve(ctx, cache, "nope")
	require.NoError(t, err)
	assert.Nil(t, res)

	cached, ok := cache.identity("nope")
	assert.True(t, ok)
	assert.Nil(t, cached)
}

func TestResolveProductMemoised(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.conn.Create(&productdomain.Product{
		ID: 1, Name: "Dansk Pilsner", Barcode: "5712345678901", RefundValue: 200,
	}).Error)

	cache := NewRunCache()
	product, err := f.resolver.ResolveProduct(ctx, cache, "5712345678901")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "Dansk Pilsner", product.Name)

	missing, err := f.resolver.ResolveProduct(ctx, cache, "0000000000000")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// The miss is remembered too.
	_, ok := cache.product("0000000000000")
	assert.True(t, ok)
}

func TestIsAccountIdentity(t *testing.T) {
	assert.True(t, IsAccountIdentity("8000100001"))
	assert.True(t, IsAccountIdentity("9000300042"))
	assert.False(t, IsAccountIdentity("8000400042"))
	assert.False(t, IsAccountIdentity("100000000112345678"))
	assert.False(t, IsAccountIdentity(""))
}
