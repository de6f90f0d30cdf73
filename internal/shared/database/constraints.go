package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the storage-level guards that application checks cannot provide
func MigrateConstraints(db *gorm.DB) error {
	// No two non-canceled reservations of one activity may overlap on the same date.
	// int4range is half-open, so back-to-back slots do not conflict.
	err := db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'reservations_no_overlap'
			) THEN
				ALTER TABLE reservations
				ADD CONSTRAINT reservations_no_overlap
				EXCLUDE USING gist (
					activity_id WITH =,
					booking_date WITH =,
					int4range(start_minute, end_minute, '[)') WITH &&
				) WHERE (status <> 'canceled');
			END IF;
		END
		$$;
	`).Error
	if err != nil {
		return err
	}

	return nil
}
