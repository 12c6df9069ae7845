package migration

import (
	"gorm.io/gorm"

	accountdomain "github.com/esani/pantportal/internal/account/domain"
	bagdomain "github.com/esani/pantportal/internal/bag/domain"
	depositdomain "github.com/esani/pantportal/internal/deposit/domain"
	exportdomain "github.com/esani/pantportal/internal/export/domain"
	machinedomain "github.com/esani/pantportal/internal/machine/domain"
	productdomain "github.com/esani/pantportal/internal/product/domain"
	qrdomain "github.com/esani/pantportal/internal/qrcode/domain"
)

// AutoMigrate creates the schema from the models, for databases the SQL
// migrations do not target.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&accountdomain.Company{},
		&accountdomain.CompanyBranch{},
		&accountdomain.Kiosk{},
		&productdomain.Product{},
		&machinedomain.ReverseVendingMachine{},
		&qrdomain.QRCodeGenerator{},
		&qrdomain.QRCodeInterval{},
		&bagdomain.QRBag{},
		&bagdomain.QRBagHistory{},
		&depositdomain.DepositPayout{},
		&depositdomain.DepositPayoutItem{},
		&exportdomain.ERPProductMapping{},
		&exportdomain.ERPCreditNoteExport{},
	)
}
