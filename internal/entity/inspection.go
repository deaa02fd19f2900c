package entity

import (
	"time"

	"github.com/google/uuid"
)

type InspectionStatus string

const (
	InspectionStatusPending    InspectionStatus = "pending"
	InspectionStatusInProgress InspectionStatus = "in_progress"
	InspectionStatusApproved   InspectionStatus = "approved"
	InspectionStatusRejected   InspectionStatus = "rejected"
	InspectionStatusSigned     InspectionStatus = "signed"
)

type InspectionSchedule struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	CarID          uuid.UUID        `json:"car_id" db:"car_id"`
	TechnicianID   uuid.UUID        `json:"technician_id" db:"technician_id"`
	Status         InspectionStatus `json:"status" db:"status"`
	InspectionDate time.Time        `json:"inspection_date" db:"inspection_date"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}
