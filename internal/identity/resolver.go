package identity

import (
	"context"
	"regexp"
	"sort"

	"go.uber.org/fx"
	"go.uber.org/zap"

	accountdomain "github.com/esani/pantportal/internal/account/domain"
	bagdomain "github.com/esani/pantportal/internal/bag/domain"
	"github.com/esani/pantportal/internal/config"
	productdomain "github.com/esani/pantportal/internal/product/domain"
	qrdomain "github.com/esani/pantportal/internal/qrcode/domain"
)

// Consumer identities carrying an account are ten digits: a leading 8 or 9,
// three zeros, a kind digit and the five digit account number.
var accountIdentityPattern = regexp.MustCompile(`^[89]000([123])(\d{5})$`)

// IsAccountIdentity reports whether s is a direct account identity rather
// than a possible bag code.
func IsAccountIdentity(s string) bool {
	return accountIdentityPattern.MatchString(s)
}

// Resolution is what a consumer identity turned out to point at. Account is
// set for both tiers; Bag only when the identity was a bag code.
type Resolution struct {
	Account accountdomain.Account
	Bag     *bagdomain.QRBag
}

type ResolverParam struct {
	fx.In

	Log      *zap.Logger
	Config   config.Config
	Accounts accountdomain.Service
	Bags     bagdomain.Service
	QRCodes  qrdomain.Service
	Products productdomain.Service
}

// Resolver maps the identity strings machines report to accounts, bags and
// products. Lookups go through a RunCache so each distinct string hits the
// database at most once per run.
type Resolver struct {
	log      *zap.Logger
	cfg      config.QRConfig
	accounts accountdomain.Service
	bags     bagdomain.Service
	qrcodes  qrdomain.Service
	products productdomain.Service
}

func NewResolver(p ResolverParam) *Resolver {
	return &Resolver{
		log:      p.Log.Named("identity.resolver"),
		cfg:      p.Config.QR,
		accounts: p.Accounts,
		bags:     p.Bags,
		qrcodes:  p.QRCodes,
		products: p.Products,
	}
}

// Resolve finds the account behind one consumer identity. Direct account
// identities are tried first, then the string is checked against every QR
// series as a bag code. A nil Resolution with nil error means unresolved.
func (r *Resolver) Resolve(ctx context.Context, cache *RunCache, identity string) (*Resolution, error) {
	if identity == "" {
		return nil, nil
	}
	if res, ok := cache.identity(identity); ok {
		return res, nil
	}
	res, err := r.resolve(ctx, identity)
	if err != nil {
		return nil, err
	}
	cache.putIdentity(identity, res)
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, identity string) (*Resolution, error) {
	if m := accountIdentityPattern.FindStringSubmatch(identity); m != nil {
		externalID := m[1] + "-" + m[2]
		account, err := r.accounts.GetFromExternalID(ctx, externalID)
		if err != nil {
			return nil, err
		}
		if account != nil {
			return &Resolution{Account: account}, nil
		}
		// Account-shaped identities with no matching account can still be
		// bag codes, e.g. short codes from the test series.
		r.log.Warn("no account for identity, trying bag series",
			zap.String("external_id", externalID))
	}
	return r.resolveBag(ctx, identity)
}

func (r *Resolver) resolveBag(ctx context.Context, identity string) (*Resolution, error) {
	for _, series := range r.seriesByPrefix() {
		short, err := r.qrcodes.Verify(ctx, series.Prefix, identity)
		if err != nil {
			return nil, err
		}
		if short == "" {
			continue
		}
		bag, err := r.bags.GetByShortCode(ctx, short)
		if err != nil {
			return nil, err
		}
		if bag == nil {
			r.log.Warn("verified bag code with no registered bag", zap.String("short", short))
			return nil, nil
		}
		owner := bag.Owner()
		if owner == nil {
			r.log.Warn("bag has no owning account", zap.String("qr", bag.QR))
			return nil, nil
		}
		return &Resolution{Account: owner, Bag: bag}, nil
	}
	return nil, nil
}

// seriesByPrefix returns the configured series in ascending prefix order so
// bare ids resolve against overlapping intervals deterministically.
func (r *Resolver) seriesByPrefix() []config.QRSeries {
	series := make([]config.QRSeries, 0, len(r.cfg.Series))
	for _, s := range r.cfg.Series {
		series = append(series, s)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Prefix < series[j].Prefix })
	return series
}

// ResolveProduct finds the product for a barcode, memoised per run. Unknown
// barcodes resolve to nil.
func (r *Resolver) ResolveProduct(ctx context.Context, cache *RunCache, barcode string) (*productdomain.Product, error) {
	if product, ok := cache.product(barcode); ok {
		return product, nil
	}
	product, err := r.products.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	cache.putProduct(barcode, product)
	return product, nil
}
