package customers

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Customer is created lazily on the first reservation for an email
type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(32)" json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}

// Contact is what a booking form collects about the customer
type Contact struct {
	Email string `json:"email" binding:"required,email,max=255"`
	Name  string `json:"name" binding:"required,min=1,max=255"`
	Phone string `json:"phone" binding:"omitempty,max=32"`
}

// NormalizeEmail is the dedup key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
