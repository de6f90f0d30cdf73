package database

import (
	"slotify/internal/activities"
	"slotify/internal/customers"
	"slotify/internal/pricing"
	"slotify/internal/reservations"
	"slotify/internal/venues"

	"gorm.io/gorm"
)

// Migrate creates the extensions the schema relies on, then auto-migrates every table
func Migrate(db *gorm.DB) error {
	for _, ext := range []string{"uuid-ossp", "btree_gist"} {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "` + ext + `"`).Error; err != nil {
			return err
		}
	}

	return db.AutoMigrate(
		&venues.Venue{},
		&activities.Activity{},
		&activities.TicketType{},
		&customers.Customer{},
		&pricing.PromoCode{},
		&pricing.GiftCard{},
		&pricing.GiftCardRedemption{},
		&reservations.Reservation{},
		&reservations.ReservationTicket{},
	)
}
