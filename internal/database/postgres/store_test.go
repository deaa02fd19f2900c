package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/database"
	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/crypto"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testStart = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	testEnd   = testStart.Add(48 * time.Hour)
)

func newMockStore(t *testing.T, pii crypto.Cipher) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStore(db, pii), mock
}

func bookingRow(id, carID, requesterID uuid.UUID, status entity.BookingStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "car_id", "requester_id", "start_time", "end_time", "status",
		"base_price", "excess_fee", "platform_fee", "platform_fee_percent", "total_amount", "is_paid",
		"approved_at", "trip_started_at", "start_latitude", "start_longitude",
		"actual_return_time", "cancelled_at", "cancelled_by", "note", "created_at", "updated_at",
	}).AddRow(
		id.String(), carID.String(), requesterID.String(), testStart, testEnd, string(status),
		"200.00", "0.00", "0.00", "10.00", "220.00", false,
		nil, nil, nil, nil,
		nil, nil, nil, "", testStart.Add(-time.Hour), testStart.Add(-time.Hour),
	)
}

func TestBookingGetForUpdateAndCompareAndSet(t *testing.T) {
	store, mock := newMockStore(t, nil)
	ctx := context.Background()
	id, carID, requesterID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(bookingRow(id, carID, requesterID, entity.BookingStatusPending))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(ctx, func(tx database.Tx) error {
		b, err := tx.Bookings().GetForUpdate(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, carID, b.CarID)
		assert.Equal(t, entity.BookingStatusPending, b.Status)
		assert.True(t, b.TotalAmount.Equal(decimal.NewFromInt(220)))
		assert.Nil(t, b.ApprovedAt)

		b.Status = entity.BookingStatusApproved
		return tx.Bookings().Update(ctx, b, entity.BookingStatusPending)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingUpdateLostRace(t *testing.T) {
	store, mock := newMockStore(t, nil)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithinTx(ctx, func(tx database.Tx) error {
		b := &entity.Booking{ID: uuid.New(), Status: entity.BookingStatusApproved}
		return tx.Bookings().Update(ctx, b, entity.BookingStatusPending)
	})
	assert.True(t, errors.Is(err, entity.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingCreateExclusionViolation(t *testing.T) {
	store, mock := newMockStore(t, nil)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnError(&pq.Error{Code: pqExclusionViolation, Constraint: "bookings_no_overlap"})
	mock.ExpectRollback()

	err := store.WithinTx(ctx, func(tx database.Tx) error {
		return tx.Bookings().Create(ctx, &entity.Booking{
			ID:        uuid.New(),
			CarID:     uuid.New(),
			StartTime: testStart,
			EndTime:   testEnd,
			Status:    entity.BookingStatusPending,
		})
	})
	assert.True(t, errors.Is(err, entity.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingGetNotFound(t *testing.T) {
	store, mock := newMockStore(t, nil)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := store.WithinTx(ctx, func(tx database.Tx) error {
		_, err := tx.Bookings().GetByID(ctx, id)
		return err
	})
	assert.True(t, errors.Is(err, entity.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingInfrastructureErrorIsNotBusiness(t *testing.T) {
	store, mock := newMockStore(t, nil)
	ctx := context.Background()
	carID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("status = ANY($2)")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.WithinTx(ctx, func(tx database.Tx) error {
		_, err := tx.Bookings().FindOverlapping(ctx, carID, testStart, testEnd)
		return err
	})
	require.Error(t, err)
	assert.False(t, entity.IsBusiness(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountCancellations(t *testing.T) {
	store, mock := newMockStore(t, nil)
	ctx := context.Background()
	requesterID := uuid.New()
	since := testStart.Add(-30 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings")).
		WithArgs(requesterID, entity.BookingStatusCancelled, entity.CancelledByRequester, since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectCommit()

	err := store.WithinTx(ctx, func(tx database.Tx) error {
		n, err := tx.Bookings().CountCancellations(ctx, requesterID, entity.CancelledByRequester, since)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// sealedPlate matches any argument that is not the plaintext plate.
type sealedPlate string

func (p sealedPlate) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && s != "" && s != string(p)
}

func TestCarPlateIsEncryptedAtRest(t *testing.T) {
	pii, err := crypto.NewCipher("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)

	store, mock := newMockStore(t, pii)
	ctx := context.Background()
	car := &entity.Car{
		ID:           uuid.New(),
		OwnerID:      uuid.New(),
		Brand:        "Lada",
		Model:        "Vesta",
		LicensePlate: "A123BC77",
		Status:       entity.CarStatusAvailable,
		PricePerDay:  decimal.NewFromInt(50),
		HasGPS:       true,
		CreatedAt:    testStart,
		UpdatedAt:    testStart,
	}

	sealed, err := pii.Encrypt(car.LicensePlate)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cars")).
		WithArgs(car.ID, car.OwnerID, car.Brand, car.Model, sealedPlate(car.LicensePlate),
			car.Status, car.PricePerDay, car.HasGPS, car.CreatedAt, car.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cars WHERE id = $1 FOR UPDATE")).
		WithArgs(car.ID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_id", "brand", "model", "license_plate", "status", "price_per_day", "has_gps", "created_at", "updated_at",
		}).AddRow(car.ID.String(), car.OwnerID.String(), car.Brand, car.Model, sealed, "available", "50.00", true, testStart, testStart))
	mock.ExpectCommit()

	err = store.WithinTx(ctx, func(tx database.Tx) error {
		if err := tx.Cars().Create(ctx, car); err != nil {
			return err
		}
		got, err := tx.Cars().GetForUpdate(ctx, car.ID)
		require.NoError(t, err)
		assert.Equal(t, "A123BC77", got.LicensePlate)
		assert.True(t, got.HasGPS)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerMarkPublished(t *testing.T) {
	store, mock := newMockStore(t, nil)
	ctx := context.Background()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ledger_entries SET published_at = $2")).
		WithArgs(pq.Array([]string{ids[0].String(), ids[1].String()}), testStart).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := store.WithinTx(ctx, func(tx database.Tx) error {
		return tx.Ledger().MarkPublished(ctx, ids, testStart)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
