package service

import (
	"context"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/database"
	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contractService struct {
	store    database.Store
	notifier Notifier
	metrics  *metrics.Metrics
	now      Clock
}

func NewContractService(store database.Store, notifier Notifier, m *metrics.Metrics, opts Options) ContractService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	opts = opts.withDefaults()

	return &contractService{
		store:    store,
		notifier: notifier,
		metrics:  m,
		now:      opts.Clock,
	}
}

func (s *contractService) CreateInspectionContract(ctx context.Context, actor entity.Actor, scheduleID uuid.UUID) (contract *entity.Contract, err error) {
	defer s.track("create_inspection_contract", time.Now(), &err)

	if !actor.IsConsultant() && !actor.IsAdmin() {
		return nil, entity.Forbidden("only consultants can issue inspection contracts")
	}

	now := s.now()
	err = s.store.WithinTx(ctx, func(tx database.Tx) error {
		schedule, err := tx.Inspections().GetForUpdate(ctx, scheduleID)
		if err != nil {
			return err
		}
		if schedule.Status != entity.InspectionStatusInProgress {
			return entity.Conflict("inspection %s is %s, expected %s",
				schedule.ID, schedule.Status, entity.InspectionStatusInProgress)
		}

		car, err := tx.Cars().GetByID(ctx, schedule.CarID)
		if err != nil {
			return err
		}

		c := &entity.Contract{
			ID:                   uuid.New(),
			Kind:                 entity.ContractKindInspection,
			CarID:                car.ID,
			InspectionScheduleID: &schedule.ID,
			OwnerID:              car.OwnerID,
			CounterpartyID:       schedule.TechnicianID,
			Status:               entity.ContractStatusPending,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := tx.Contracts().Create(ctx, c); err != nil {
			return err
		}

		contract = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"contract_id": contract.ID,
		"schedule_id": scheduleID,
		"car_id":      contract.CarID,
	}).Info("Inspection contract created")
	return contract, nil
}

// Sign records the actor's signature. The signature that completes an
// inspection contract also marks the schedule signed and releases a pending
// car for booking, all in the same unit of work.
func (s *contractService) Sign(ctx context.Context, actor entity.Actor, contractID uuid.UUID) (contract *entity.Contract, err error) {
	defer s.track("sign_contract", time.Now(), &err)

	now := s.now()
	var completed bool

	err = s.store.WithinTx(ctx, func(tx database.Tx) error {
		c, err := tx.Contracts().GetForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		if actor.ID != c.OwnerID && actor.ID != c.CounterpartyID {
			return entity.Forbidden("user %s is not a party to contract %s", actor.ID, c.ID)
		}

		if c.Kind == entity.ContractKindBooking && c.BookingID != nil {
			b, err := tx.Bookings().GetForUpdate(ctx, *c.BookingID)
			if err != nil {
				return err
			}
			if b.Status != entity.BookingStatusApproved {
				return entity.Conflict("booking %s is %s; its contract can no longer be signed", b.ID, b.Status)
			}
		}

		completed, err = c.Sign(actor.ID, now)
		if err != nil {
			return err
		}
		if err := tx.Contracts().Update(ctx, c); err != nil {
			return err
		}

		if completed && c.Kind == entity.ContractKindInspection && c.InspectionScheduleID != nil {
			if err := s.completeInspection(ctx, tx, c); err != nil {
				return err
			}
		}

		contract = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"contract_id": contract.ID,
		"kind":        contract.Kind,
		"signer":      actor.ID,
		"status":      contract.Status,
	})
	log.Info("Contract signed")

	if completed {
		data := map[string]string{
			"contract_id": contract.ID.String(),
			"kind":        string(contract.Kind),
			"car_id":      contract.CarID.String(),
		}
		s.notify(ctx,
			Notification{Template: "contract_signed", Recipient: contract.OwnerID, Data: data},
			Notification{Template: "contract_signed", Recipient: contract.CounterpartyID, Data: data},
		)
	}
	return contract, nil
}

func (s *contractService) completeInspection(ctx context.Context, tx database.Tx, c *entity.Contract) error {
	schedule, err := tx.Inspections().GetForUpdate(ctx, *c.InspectionScheduleID)
	if err != nil {
		return err
	}
	if err := tx.Inspections().UpdateStatus(ctx, schedule.ID, entity.InspectionStatusSigned); err != nil {
		return err
	}

	car, err := tx.Cars().GetForUpdate(ctx, c.CarID)
	if err != nil {
		return err
	}
	if car.Status == entity.CarStatusPending {
		return tx.Cars().UpdateStatus(ctx, car.ID, entity.CarStatusAvailable)
	}
	return nil
}

func (s *contractService) GetContract(ctx context.Context, actor entity.Actor, contractID uuid.UUID) (*entity.Contract, error) {
	var contract *entity.Contract
	err := s.store.WithinTx(ctx, func(tx database.Tx) error {
		c, err := tx.Contracts().GetByID(ctx, contractID)
		if err != nil {
			return err
		}
		contract = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return visibleContract(actor, contract)
}

func (s *contractService) GetBookingContract(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) (*entity.Contract, error) {
	var contract *entity.Contract
	err := s.store.WithinTx(ctx, func(tx database.Tx) error {
		c, err := tx.Contracts().GetByBookingID(ctx, bookingID)
		if err != nil {
			return err
		}
		contract = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return visibleContract(actor, contract)
}

func visibleContract(actor entity.Actor, c *entity.Contract) (*entity.Contract, error) {
	if actor.ID == c.OwnerID || actor.ID == c.CounterpartyID || actor.IsAdmin() || actor.IsConsultant() {
		return c, nil
	}
	return nil, entity.Forbidden("contract %s is not visible to user %s", c.ID, actor.ID)
}

func (s *contractService) track(operation string, started time.Time, err *error) {
	s.metrics.Observe(operation, started)
	if *err != nil && entity.IsBusiness(*err) {
		s.metrics.Rejected(operation, entity.KindOf(*err))
	}
}

func (s *contractService) notify(ctx context.Context, notes ...Notification) {
	ctx, cancel := context.WithTimeout(detach(ctx), notifyTimeout)
	defer cancel()

	for _, n := range notes {
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.metrics.NotificationFailed(n.Template)
			logrus.WithError(err).WithField("template", n.Template).Warn("Failed to send notification")
		}
	}
}
