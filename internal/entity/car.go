package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CarStatus string

const (
	CarStatusPending   CarStatus = "pending"
	CarStatusAvailable CarStatus = "available"
	CarStatusRented    CarStatus = "rented"
	CarStatusInactive  CarStatus = "inactive"
)

type Car struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	OwnerID      uuid.UUID       `json:"owner_id" db:"owner_id"`
	Brand        string          `json:"brand" db:"brand"`
	Model        string          `json:"model" db:"model"`
	LicensePlate string          `json:"license_plate" db:"license_plate"` // ciphertext at rest
	Status       CarStatus       `json:"status" db:"status"`
	PricePerDay  decimal.Decimal `json:"price_per_day" db:"price_per_day"`
	HasGPS       bool            `json:"has_gps" db:"has_gps"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

func (c *Car) IsOwnedBy(userID uuid.UUID) bool {
	return c.OwnerID == userID
}

// HourlyRate is the daily price spread over 24 hours, unrounded.
func (c *Car) HourlyRate() decimal.Decimal {
	return c.PricePerDay.Div(decimal.NewFromInt(24))
}
