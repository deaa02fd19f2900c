package service

import (
	"context"
	"strings"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/database"
	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type fleetService struct {
	store database.Store
	now   Clock
}

func NewFleetService(store database.Store, opts Options) FleetService {
	opts = opts.withDefaults()
	return &fleetService{store: store, now: opts.Clock}
}

// RegisterCar lists a car as pending; it becomes bookable once its
// inspection contract is signed.
func (s *fleetService) RegisterCar(ctx context.Context, actor entity.Actor, req *RegisterCarRequest) (*entity.Car, error) {
	if !actor.IsOwner() {
		return nil, entity.Forbidden("only owners can register cars")
	}
	if strings.TrimSpace(req.Brand) == "" || strings.TrimSpace(req.Model) == "" {
		return nil, entity.Validation("brand and model are required")
	}
	if strings.TrimSpace(req.LicensePlate) == "" {
		return nil, entity.Validation("license plate is required")
	}
	if !req.PricePerDay.IsPositive() {
		return nil, entity.Validation("price per day must be positive")
	}

	now := s.now()
	car := &entity.Car{
		ID:           uuid.New(),
		OwnerID:      actor.ID,
		Brand:        strings.TrimSpace(req.Brand),
		Model:        strings.TrimSpace(req.Model),
		LicensePlate: strings.ToUpper(strings.TrimSpace(req.LicensePlate)),
		Status:       entity.CarStatusPending,
		PricePerDay:  req.PricePerDay,
		HasGPS:       req.HasGPS,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.store.WithinTx(ctx, func(tx database.Tx) error {
		return tx.Cars().Create(ctx, car)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"car_id": car.ID, "owner_id": car.OwnerID}).Info("Car registered")
	return car, nil
}

func (s *fleetService) GetCar(ctx context.Context, carID uuid.UUID) (*entity.Car, error) {
	var car *entity.Car
	err := s.store.WithinTx(ctx, func(tx database.Tx) error {
		var err error
		car, err = tx.Cars().GetByID(ctx, carID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return car, nil
}

// ScheduleInspection assigns a technician. The schedule starts in progress so
// a consultant can issue the inspection contract right away.
func (s *fleetService) ScheduleInspection(ctx context.Context, actor entity.Actor, req *ScheduleInspectionRequest) (*entity.InspectionSchedule, error) {
	if !actor.IsConsultant() && !actor.IsAdmin() {
		return nil, entity.Forbidden("only consultants can schedule inspections")
	}
	if req.TechnicianID == uuid.Nil {
		return nil, entity.Validation("technician is required")
	}

	now := s.now()
	date := req.InspectionDate.UTC()
	if date.IsZero() {
		date = now
	}

	schedule := &entity.InspectionSchedule{
		ID:             uuid.New(),
		CarID:          req.CarID,
		TechnicianID:   req.TechnicianID,
		Status:         entity.InspectionStatusInProgress,
		InspectionDate: date.Truncate(time.Minute),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.store.WithinTx(ctx, func(tx database.Tx) error {
		if _, err := tx.Cars().GetByID(ctx, req.CarID); err != nil {
			return err
		}
		return tx.Inspections().Create(ctx, schedule)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"schedule_id":   schedule.ID,
		"car_id":        schedule.CarID,
		"technician_id": schedule.TechnicianID,
	}).Info("Inspection scheduled")
	return schedule, nil
}
