package service

import (
	"errors"
	"testing"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/database"
	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inspectionFixture struct {
	*fixture
	fleet      FleetService
	consultant entity.Actor
	technician entity.Actor
	car        *entity.Car
	schedule   *entity.InspectionSchedule
}

func newInspectionFixture(t *testing.T) *inspectionFixture {
	t.Helper()

	f := newFixture(t)
	opts := DefaultOptions()
	opts.Clock = func() time.Time { return f.now }

	fx := &inspectionFixture{
		fixture:    f,
		fleet:      NewFleetService(f.store, opts),
		consultant: entity.NewActor(uuid.New(), entity.RoleConsultant),
		technician: entity.NewActor(uuid.New(), entity.RoleTechnician),
	}

	car, err := fx.fleet.RegisterCar(f.ctx, f.owner, &RegisterCarRequest{
		Brand:        "Kia",
		Model:        "Rio",
		LicensePlate: " a777mr77 ",
		PricePerDay:  decimal.NewFromInt(40),
		HasGPS:       true,
	})
	require.NoError(t, err)
	require.Equal(t, entity.CarStatusPending, car.Status)
	require.Equal(t, "A777MR77", car.LicensePlate)
	fx.car = car

	schedule, err := fx.fleet.ScheduleInspection(f.ctx, fx.consultant, &ScheduleInspectionRequest{
		CarID:          car.ID,
		TechnicianID:   fx.technician.ID,
		InspectionDate: f.now.Add(time.Hour),
	})
	require.NoError(t, err)
	fx.schedule = schedule
	return fx
}

func (fx *inspectionFixture) scheduleStatus() entity.InspectionStatus {
	fx.t.Helper()

	var status entity.InspectionStatus
	err := fx.store.WithinTx(fx.ctx, func(tx database.Tx) error {
		s, err := tx.Inspections().GetByID(fx.ctx, fx.schedule.ID)
		if err != nil {
			return err
		}
		status = s.Status
		return nil
	})
	require.NoError(fx.t, err)
	return status
}

func TestInspectionContractReleasesCar(t *testing.T) {
	fx := newInspectionFixture(t)

	_, err := fx.bookings.Create(fx.ctx, fx.driver, &CreateBookingRequest{
		CarID:     fx.car.ID,
		StartTime: fx.now.Add(2 * day),
		EndTime:   fx.now.Add(3 * day),
	})
	assert.True(t, errors.Is(err, entity.ErrConflict), "pending car cannot be booked")

	contract, err := fx.contracts.CreateInspectionContract(fx.ctx, fx.consultant, fx.schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ContractKindInspection, contract.Kind)
	assert.Equal(t, fx.owner.ID, contract.OwnerID)
	assert.Equal(t, fx.technician.ID, contract.CounterpartyID)

	signed, err := fx.contracts.Sign(fx.ctx, fx.technician, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ContractStatusTechnicianSigned, signed.Status)
	assert.Equal(t, entity.InspectionStatusInProgress, fx.scheduleStatus())
	assert.Equal(t, entity.CarStatusPending, fx.carStatus(fx.car.ID))

	signed, err = fx.contracts.Sign(fx.ctx, fx.owner, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ContractStatusSigned, signed.Status)
	assert.NotNil(t, signed.OwnerSignatureDate)
	assert.NotNil(t, signed.CounterpartySignatureDate)
	assert.Equal(t, entity.InspectionStatusSigned, fx.scheduleStatus())
	assert.Equal(t, entity.CarStatusAvailable, fx.carStatus(fx.car.ID))

	_, err = fx.bookings.Create(fx.ctx, fx.driver, &CreateBookingRequest{
		CarID:     fx.car.ID,
		StartTime: fx.now.Add(2 * day),
		EndTime:   fx.now.Add(3 * day),
	})
	assert.NoError(t, err)

	assert.Contains(t, fx.rec.templates(), "contract_signed")
}

func TestSignContractRejected(t *testing.T) {
	fx := newInspectionFixture(t)
	contract, err := fx.contracts.CreateInspectionContract(fx.ctx, fx.consultant, fx.schedule.ID)
	require.NoError(t, err)

	_, err = fx.contracts.Sign(fx.ctx, fx.driver, contract.ID)
	assert.True(t, errors.Is(err, entity.ErrForbidden))

	_, err = fx.contracts.Sign(fx.ctx, fx.owner, contract.ID)
	require.NoError(t, err)
	_, err = fx.contracts.Sign(fx.ctx, fx.owner, contract.ID)
	assert.True(t, errors.Is(err, entity.ErrConflict))

	_, err = fx.contracts.Sign(fx.ctx, fx.owner, uuid.New())
	assert.True(t, errors.Is(err, entity.ErrNotFound))

	got, err := fx.contracts.GetContract(fx.ctx, fx.technician, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ContractStatusOwnerSigned, got.Status)

	_, err = fx.contracts.GetContract(fx.ctx, fx.driver, contract.ID)
	assert.True(t, errors.Is(err, entity.ErrForbidden))
}

func TestCreateInspectionContractRejected(t *testing.T) {
	fx := newInspectionFixture(t)

	_, err := fx.contracts.CreateInspectionContract(fx.ctx, fx.technician, fx.schedule.ID)
	assert.True(t, errors.Is(err, entity.ErrForbidden))

	_, err = fx.contracts.CreateInspectionContract(fx.ctx, fx.consultant, uuid.New())
	assert.True(t, errors.Is(err, entity.ErrNotFound))

	_, err = fx.contracts.CreateInspectionContract(fx.ctx, fx.consultant, fx.schedule.ID)
	require.NoError(t, err)
	_, err = fx.contracts.CreateInspectionContract(fx.ctx, fx.consultant, fx.schedule.ID)
	assert.True(t, errors.Is(err, entity.ErrConflict))
}

func TestBookingContractClosedAfterCancel(t *testing.T) {
	f := newFixture(t)
	b := f.create(f.driver, f.car.ID, 10*day, 2*day)
	_, err := f.bookings.Approve(f.ctx, f.owner, b.ID, true)
	require.NoError(t, err)

	contract, err := f.contracts.GetBookingContract(f.ctx, f.driver, b.ID)
	require.NoError(t, err)

	_, err = f.bookings.Cancel(f.ctx, f.driver, b.ID, "")
	require.NoError(t, err)

	_, err = f.contracts.Sign(f.ctx, f.driver, contract.ID)
	assert.True(t, errors.Is(err, entity.ErrConflict))
}

func TestFleetRejected(t *testing.T) {
	f := newFixture(t)
	fleet := NewFleetService(f.store, DefaultOptions())

	_, err := fleet.RegisterCar(f.ctx, f.driver, &RegisterCarRequest{Brand: "a", Model: "b", LicensePlate: "c", PricePerDay: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, entity.ErrForbidden))

	_, err = fleet.RegisterCar(f.ctx, f.owner, &RegisterCarRequest{Brand: "a", Model: "b", LicensePlate: "c", PricePerDay: decimal.Zero})
	assert.True(t, errors.Is(err, entity.ErrValidation))

	_, err = fleet.ScheduleInspection(f.ctx, f.owner, &ScheduleInspectionRequest{CarID: f.car.ID, TechnicianID: uuid.New()})
	assert.True(t, errors.Is(err, entity.ErrForbidden))

	admin := entity.NewActor(uuid.New(), entity.RoleAdmin)
	_, err = fleet.ScheduleInspection(f.ctx, admin, &ScheduleInspectionRequest{CarID: uuid.New(), TechnicianID: uuid.New()})
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}
