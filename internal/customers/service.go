package customers

import (
	"context"
	"errors"
	"log/slog"

	"slotify/pkg/logger"
)

type Service interface {
	FindOrCreateByEmail(ctx context.Context, contact Contact) (*Customer, error)
}

type service struct {
	repo   Repository
	logger *logger.Logger
}

func NewService(repo Repository) Service {
	return &service{repo: repo, logger: logger.GetDefault()}
}

// FindOrCreateByEmail returns the customer for contact.Email, creating it on first use.
// A concurrent create for the same email loses to the unique index and re-reads the winner.
func (s *service) FindOrCreateByEmail(ctx context.Context, contact Contact) (*Customer, error) {
	existing, err := s.repo.FindByEmail(ctx, contact.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	customer := &Customer{
		Email: NormalizeEmail(contact.Email),
		Name:  contact.Name,
		Phone: contact.Phone,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return s.repo.FindByEmail(ctx, contact.Email)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "Customer created", slog.String("customer_id", customer.ID.String()))
	return customer, nil
}
