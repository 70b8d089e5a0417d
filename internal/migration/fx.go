package migration

import (
	auditdomain "github.com/clinicore/ledger/internal/audit/domain"
	closingdomain "github.com/clinicore/ledger/internal/closing/domain"
	directorydomain "github.com/clinicore/ledger/internal/directory/domain"
	expensedomain "github.com/clinicore/ledger/internal/expense/domain"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	writeoffdomain "github.com/clinicore/ledger/internal/writeoff/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module applies the schema on startup. Postgres runs the versioned
// SQL migrations; mysql and sqlite fall back to AutoMigrate, which is
// what local development and the test suite use.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		if conn.Dialector.Name() != "postgres" {
			return AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)

// AutoMigrate creates the schema from the model definitions.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&directorydomain.Patient{},
		&directorydomain.Provider{},
		&directorydomain.Consultation{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&paymentdomain.Payment{},
		&writeoffdomain.WriteOff{},
		&closingdomain.DailyClosing{},
		&expensedomain.ExpenseCategory{},
		&expensedomain.Expense{},
		&auditdomain.AuditLog{},
	)
}
