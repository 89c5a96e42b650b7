package seed

import (
	"context"
	"errors"
	"time"

	settingsdomain "github.com/nordleads/leadflow/internal/settings/domain"
	"gorm.io/gorm"
)

// EnsureDefaultSettings seeds the lead_settings singleton so the distribution
// switches have an explicit row from the first boot.
func EnsureDefaultSettings(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var settings settingsdomain.LeadSettings
		err := tx.First(&settings, settingsdomain.SingletonID).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		settings = settingsdomain.Defaults()
		settings.UpdatedAt = time.Now().UTC()
		return tx.Create(&settings).Error
	})
}
