package payments

import (
	"fmt"
	"strings"

	"slotify/internal/shared/config"
)

// NewGatewayFromConfig picks the processor named by PAYMENT_GATEWAY
func NewGatewayFromConfig(cfg *config.Config) (Gateway, error) {
	switch strings.ToLower(cfg.Payments.Gateway) {
	case "", "mock":
		return NewMockGateway(), nil
	case "omise":
		if cfg.Payments.OmiseSecretKey == "" {
			return nil, fmt.Errorf("OMISE_SECRET_KEY is required when PAYMENT_GATEWAY=omise")
		}
		return NewOmiseGateway(OmiseConfig{
			PublicKey:  cfg.Payments.OmisePublicKey,
			SecretKey:  cfg.Payments.OmiseSecretKey,
			SourceType: cfg.Payments.OmiseSourceType,
			Currency:   cfg.Payments.Currency,
			ReturnURI:  cfg.Payments.ReturnURI,
		})
	default:
		return nil, fmt.Errorf("unknown payment gateway %q", cfg.Payments.Gateway)
	}
}
