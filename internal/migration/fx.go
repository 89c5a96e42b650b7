package migration

import (
	assignmentdomain "github.com/nordleads/leadflow/internal/assignment/domain"
	buyerdomain "github.com/nordleads/leadflow/internal/buyer/domain"
	catalogdomain "github.com/nordleads/leadflow/internal/catalog/domain"
	"github.com/nordleads/leadflow/internal/config"
	historydomain "github.com/nordleads/leadflow/internal/history/domain"
	leaddomain "github.com/nordleads/leadflow/internal/lead/domain"
	ledgerdomain "github.com/nordleads/leadflow/internal/ledger/domain"
	"github.com/nordleads/leadflow/internal/seed"
	settingsdomain "github.com/nordleads/leadflow/internal/settings/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := conn.AutoMigrate(
				&leaddomain.Lead{},
				&buyerdomain.BuyerAccount{},
				&catalogdomain.LeadPackage{},
				&catalogdomain.PackageSubscription{},
				&assignmentdomain.LeadAssignment{},
				&historydomain.Entry{},
				&ledgerdomain.BudgetTransaction{},
				&settingsdomain.LeadSettings{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultSettings(conn)
	}),
)
