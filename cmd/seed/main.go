package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"slotify/internal/activities"
	"slotify/internal/pricing"
	"slotify/internal/shared/config"
	"slotify/internal/shared/database"
	"slotify/internal/slots"
	"slotify/internal/venues"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Slotify Database Seeder...")

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables, children first
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"gift_card_redemptions",
		"reservation_tickets",
		"reservations",
		"gift_cards",
		"promo_codes",
		"customers",
		"ticket_types",
		"activities",
		"venues",
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	venue, err := s.SeedVenue()
	if err != nil {
		return fmt.Errorf("failed to seed venue: %w", err)
	}

	if err := s.SeedActivities(venue); err != nil {
		return fmt.Errorf("failed to seed activities: %w", err)
	}

	if err := s.SeedPromoCodes(); err != nil {
		return fmt.Errorf("failed to seed promo codes: %w", err)
	}

	if err := s.SeedGiftCards(); err != nil {
		return fmt.Errorf("failed to seed gift cards: %w", err)
	}

	// Drop cached activity details and booked intervals
	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}

	return nil
}

func (s *Seeder) SeedVenue() (*venues.Venue, error) {
	fmt.Println("  🏢 Seeding venue...")

	venue := venues.Venue{
		Name:     "Downtown Fun Center",
		Slug:     "downtown-fun-center",
		Timezone: "America/New_York",
		Address:  "120 Main St",
		Email:    "hello@downtownfun.example",
	}
	if err := s.db.PostgreSQL.Create(&venue).Error; err != nil {
		return nil, err
	}
	fmt.Printf("    ✅ Created venue: %s\n", venue.Name)
	return &venue, nil
}

func (s *Seeder) SeedActivities(venue *venues.Venue) error {
	fmt.Println("  🎯 Seeding activities...")

	list := []activities.Activity{
		{
			VenueID:             venue.ID,
			Name:                "Laser Maze",
			Description:         "Sixty minutes to cross the grid without tripping a beam.",
			DurationMinutes:     60,
			OperatingDays:       slots.EveryDay,
			OpenTime:            slots.MustParseTimeOfDay("10:00"),
			CloseTime:           slots.MustParseTimeOfDay("21:00"),
			SlotIntervalMinutes: 30,
			MinPartySize:        1,
			MaxPartySize:        6,
			UnitPrice:           decimal.RequireFromString("25.00"),
			Currency:            "USD",
			Timezone:            venue.Timezone,
			IsActive:            true,
			TicketTypes: []activities.TicketType{
				{Name: "Adult", Price: decimal.RequireFromString("25.00"), IsActive: true},
				{Name: "Child", Price: decimal.RequireFromString("15.00"), IsActive: true},
			},
		},
		{
			VenueID:             venue.ID,
			Name:                "Escape Room: The Vault",
			DurationMinutes:     90,
			OperatingDays:       slots.NewWeekdays(time.Thursday, time.Friday, time.Saturday, time.Sunday),
			OpenTime:            slots.MustParseTimeOfDay("12:00"),
			CloseTime:           slots.MustParseTimeOfDay("22:00"),
			SlotIntervalMinutes: 90,
			MinPartySize:        2,
			MaxPartySize:        8,
			UnitPrice:           decimal.RequireFromString("32.50"),
			Currency:            "USD",
			Timezone:            venue.Timezone,
			IsActive:            true,
		},
	}

	for i := range list {
		if err := s.db.PostgreSQL.Create(&list[i]).Error; err != nil {
			return err
		}
		fmt.Printf("    ✅ Created activity: %s (%s)\n", list[i].Name, list[i].ID)
	}
	return nil
}

func (s *Seeder) SeedPromoCodes() error {
	fmt.Println("  🏷️  Seeding promo codes...")

	codes := []pricing.PromoCode{
		{
			Code:          "SAVE20",
			Description:   "20% off, up to $50",
			DiscountType:  pricing.DiscountPercentage,
			DiscountValue: decimal.NewFromInt(20),
			MaxDiscount:   decimal.NewNullDecimal(decimal.NewFromInt(50)),
			IsActive:      true,
		},
		{
			Code:          "TENOFF100",
			Description:   "$10 off orders of $100 or more",
			DiscountType:  pricing.DiscountFixed,
			DiscountValue: decimal.NewFromInt(10),
			MinimumOrder:  decimal.NewNullDecimal(decimal.NewFromInt(100)),
			IsActive:      true,
		},
	}

	for i := range codes {
		if err := s.db.PostgreSQL.Create(&codes[i]).Error; err != nil {
			return err
		}
		fmt.Printf("    ✅ Created promo code: %s\n", codes[i].Code)
	}
	return nil
}

func (s *Seeder) SeedGiftCards() error {
	fmt.Println("  🎁 Seeding gift cards...")

	cards := []pricing.GiftCard{
		{
			Code:             "GC-DEMO-5000",
			OriginalValue:    decimal.NewFromInt(50),
			RemainingBalance: decimal.NewFromInt(50),
			Status:           pricing.GiftCardActive,
			Currency:         "USD",
		},
		{
			Code:             "GC-HALF-2500",
			OriginalValue:    decimal.NewFromInt(50),
			RemainingBalance: decimal.NewFromInt(25),
			Status:           pricing.GiftCardPartiallyUsed,
			Currency:         "USD",
		},
	}

	for i := range cards {
		if err := s.db.PostgreSQL.Create(&cards[i]).Error; err != nil {
			return err
		}
		fmt.Printf("    ✅ Created gift card: %s (balance %s)\n", cards[i].Code, cards[i].RemainingBalance.StringFixed(2))
	}
	return nil
}
