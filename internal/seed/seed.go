package seed

import (
	"gorm.io/gorm"

	"github.com/esani/pantportal/internal/config"
	exportdomain "github.com/esani/pantportal/internal/export/domain"
	qrdomain "github.com/esani/pantportal/internal/qrcode/domain"
)

// EnsureQRSeries creates a generator row for every configured series that
// does not have one yet. Existing counters are never touched.
func EnsureQRSeries(db *gorm.DB, series map[string]config.QRSeries) error {
	for _, s := range series {
		generator := qrdomain.QRCodeGenerator{
			ID:     int64(s.Prefix) + 1,
			Name:   s.Name,
			Prefix: s.Prefix,
		}
		err := db.Where(qrdomain.QRCodeGenerator{Prefix: s.Prefix}).
			Attrs(generator).
			FirstOrCreate(&qrdomain.QRCodeGenerator{}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// EnsureERPCatalogue creates the credit-note line catalogue entries used by
// the export if they are missing.
func EnsureERPCatalogue(db *gorm.DB) error {
	mappings := []exportdomain.ERPProductMapping{
		{ID: 1, Category: exportdomain.CategoryDeposit, Specifier: exportdomain.SpecifierRVM, ItemNumber: "101001", Text: "Pant (automat)"},
		{ID: 2, Category: exportdomain.CategoryDeposit, Specifier: exportdomain.SpecifierBag, ItemNumber: "101002", Text: "Pant (sæk)"},
		{ID: 3, Category: exportdomain.CategoryDeposit, Specifier: exportdomain.SpecifierManual, ItemNumber: "101003", Text: "Pant (manuel)"},
		{ID: 4, Category: exportdomain.CategoryHandling, Specifier: exportdomain.SpecifierRVM, ItemNumber: "102001", Text: "Håndteringsgodtgørelse (automat)"},
		{ID: 5, Category: exportdomain.CategoryHandling, Specifier: exportdomain.SpecifierBag, ItemNumber: "102002", Text: "Håndteringsgodtgørelse (sæk)"},
		{ID: 6, Category: exportdomain.CategoryHandling, Specifier: exportdomain.SpecifierManual, ItemNumber: "102003", Text: "Håndteringsgodtgørelse (manuel)"},
		{ID: 7, Category: exportdomain.CategoryBag, Specifier: "0", ItemNumber: "103000", Text: "Små sække"},
		{ID: 8, Category: exportdomain.CategoryBag, Specifier: "1", ItemNumber: "103001", Text: "Store sække"},
		{ID: 9, Category: exportdomain.CategoryBag, Specifier: "9", ItemNumber: "103009", Text: "QR-koder til test"},
	}
	for _, mapping := range mappings {
		err := db.Where(exportdomain.ERPProductMapping{
			Category:  mapping.Category,
			Specifier: mapping.Specifier,
		}).Attrs(mapping).FirstOrCreate(&exportdomain.ERPProductMapping{}).Error
		if err != nil {
			return err
		}
	}
	return nil
}
