package identity

import productdomain "github.com/esani/pantportal/internal/product/domain"

// RunCache memoises resolver lookups for the duration of one import run.
// A cached nil is a remembered miss, so unresolvable identities and unknown
// barcodes are also looked up only once. Not safe for concurrent use.
type RunCache struct {
	identities map[string]*Resolution
	products   map[string]*productdomain.Product
}

func NewRunCache() *RunCache {
	return &RunCache{
		identities: make(map[string]*Resolution),
		products:   make(map[string]*productdomain.Product),
	}
}

func (c *RunCache) identity(key string) (*Resolution, bool) {
	res, ok := c.identities[key]
	return res, ok
}

func (c *RunCache) putIdentity(key string, res *Resolution) {
	c.identities[key] = res
}

func (c *RunCache) product(barcode string) (*productdomain.Product, bool) {
	p, ok := c.products[barcode]
	return p, ok
}

func (c *RunCache) putProduct(barcode string, p *productdomain.Product) {
	c.products[barcode] = p
}
