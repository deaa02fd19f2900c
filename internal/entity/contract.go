package entity

import (
	"time"

	"github.com/google/uuid"
)

type ContractKind string

const (
	ContractKindInspection ContractKind = "inspection"
	ContractKindBooking    ContractKind = "booking"
)

type ContractStatus string

const (
	ContractStatusPending          ContractStatus = "pending"
	ContractStatusOwnerSigned      ContractStatus = "owner_signed"
	ContractStatusTechnicianSigned ContractStatus = "technician_signed"
	ContractStatusDriverSigned     ContractStatus = "driver_signed"
	ContractStatusSigned           ContractStatus = "signed"
)

// Contract has two signature slots. The counterparty is the technician for
// inspection contracts and the driver for booking contracts.
type Contract struct {
	ID                        uuid.UUID      `json:"id" db:"id"`
	Kind                      ContractKind   `json:"kind" db:"kind"`
	CarID                     uuid.UUID      `json:"car_id" db:"car_id"`
	BookingID                 *uuid.UUID     `json:"booking_id,omitempty" db:"booking_id"`
	InspectionScheduleID      *uuid.UUID     `json:"inspection_schedule_id,omitempty" db:"inspection_schedule_id"`
	OwnerID                   uuid.UUID      `json:"owner_id" db:"owner_id"`
	CounterpartyID            uuid.UUID      `json:"counterparty_id" db:"counterparty_id"`
	Status                    ContractStatus `json:"status" db:"status"`
	OwnerSignatureDate        *time.Time     `json:"owner_signature_date,omitempty" db:"owner_signature_date"`
	CounterpartySignatureDate *time.Time     `json:"counterparty_signature_date,omitempty" db:"counterparty_signature_date"`
	CreatedAt                 time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time      `json:"updated_at" db:"updated_at"`
}

func (c *Contract) counterpartySignedStatus() ContractStatus {
	if c.Kind == ContractKindInspection {
		return ContractStatusTechnicianSigned
	}
	return ContractStatusDriverSigned
}

func (c *Contract) IsSigned() bool {
	return c.OwnerSignatureDate != nil && c.CounterpartySignatureDate != nil
}

// Sign fills the slot belonging to actorID. It reports whether this signature
// completed the contract.
func (c *Contract) Sign(actorID uuid.UUID, now time.Time) (bool, error) {
	var slot **time.Time
	switch actorID {
	case c.OwnerID:
		slot = &c.OwnerSignatureDate
	case c.CounterpartyID:
		slot = &c.CounterpartySignatureDate
	default:
		return false, Forbidden("user %s is not a party to contract %s", actorID, c.ID)
	}

	if *slot != nil {
		return false, Conflict("contract %s is already signed by %s", c.ID, actorID)
	}

	signedAt := now
	*slot = &signedAt
	c.UpdatedAt = now

	switch {
	case c.IsSigned():
		c.Status = ContractStatusSigned
		return true, nil
	case c.OwnerSignatureDate != nil:
		c.Status = ContractStatusOwnerSigned
	default:
		c.Status = c.counterpartySignedStatus()
	}
	return false, nil
}
