package migration

import (
	"github.com/plantelhq/plantel/internal/audit"
	configdomain "github.com/plantelhq/plantel/internal/billingconfig/domain"
	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	enrollmentdomain "github.com/plantelhq/plantel/internal/enrollment/domain"
	paymentdomain "github.com/plantelhq/plantel/internal/payment/domain"
	schoolyeardomain "github.com/plantelhq/plantel/internal/schoolyear/domain"
	"gorm.io/gorm"
)

// AutoMigrate builds the schema straight from the models. The embedded SQL
// migrations target postgres; every other driver gets its schema here.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schoolyeardomain.SchoolYear{},
		&configdomain.BillingConfiguration{},
		&enrollmentdomain.Representative{},
		&enrollmentdomain.Student{},
		&enrollmentdomain.Tariff{},
		&enrollmentdomain.Enrollment{},
		&paymentdomain.PaymentMethod{},
		&paymentdomain.Payment{},
		&chargedomain.MonthlyCharge{},
		&audit.Log{},
	)
}
