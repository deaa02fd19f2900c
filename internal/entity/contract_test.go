package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContract(kind ContractKind) *Contract {
	return &Contract{
		ID:             uuid.New(),
		Kind:           kind,
		OwnerID:        uuid.New(),
		CounterpartyID: uuid.New(),
		Status:         ContractStatusPending,
	}
}

func TestContractSignOwnerThenCounterparty(t *testing.T) {
	c := newTestContract(ContractKindInspection)
	now := time.Now()

	done, err := c.Sign(c.OwnerID, now)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, ContractStatusOwnerSigned, c.Status)

	done, err = c.Sign(c.CounterpartyID, now)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, ContractStatusSigned, c.Status)
	assert.True(t, c.IsSigned())
}

func TestContractCounterpartyStatusByKind(t *testing.T) {
	inspection := newTestContract(ContractKindInspection)
	_, err := inspection.Sign(inspection.CounterpartyID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, ContractStatusTechnicianSigned, inspection.Status)

	booking := newTestContract(ContractKindBooking)
	_, err = booking.Sign(booking.CounterpartyID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, ContractStatusDriverSigned, booking.Status)
}

func TestContractSignTwice(t *testing.T) {
	c := newTestContract(ContractKindBooking)
	_, err := c.Sign(c.OwnerID, time.Now())
	require.NoError(t, err)

	_, err = c.Sign(c.OwnerID, time.Now())
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, ContractStatusOwnerSigned, c.Status)

	_, err = c.Sign(c.CounterpartyID, time.Now())
	require.NoError(t, err)
	_, err = c.Sign(c.CounterpartyID, time.Now())
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, ContractStatusSigned, c.Status)
}

func TestContractSignStranger(t *testing.T) {
	c := newTestContract(ContractKindInspection)
	_, err := c.Sign(uuid.New(), time.Now())
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Nil(t, c.OwnerSignatureDate)
	assert.Nil(t, c.CounterpartySignatureDate)
}

func TestErrorKinds(t *testing.T) {
	err := Conflict("booking %d is %s", 7, "approved")
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "booking 7 is approved", err.Error())
	assert.True(t, IsBusiness(err))
	assert.False(t, IsBusiness(errors.New("connection refused")))
}
