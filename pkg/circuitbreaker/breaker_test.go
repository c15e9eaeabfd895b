package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")
var errClient = errors.New("client error")

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := New[int](Settings{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)

	calls := 0
	fail := func() (int, error) { calls++; return 0, errBoom }

	_, err := b.Execute(fail)
	assert.ErrorIs(t, err, errBoom)
	_, err = b.Execute(fail)
	assert.ErrorIs(t, err, errBoom)

	_, err = b.Execute(fail)
	assert.ErrorIs(t, err, ErrOpen)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "open", b.State())
}

func TestBreaker_IgnoresNonFailures(t *testing.T) {
	b := New[int](Settings{
		Name:                "test",
		ConsecutiveFailures: 1,
		OpenTimeout:         time.Minute,
		IsFailure:           func(err error) bool { return !errors.Is(err, errClient) },
	}, nil)

	for i := 0; i < 3; i++ {
		_, err := b.Execute(func() (int, error) { return 0, errClient })
		assert.ErrorIs(t, err, errClient)
	}
	assert.Equal(t, "closed", b.State())

	v, err := b.Execute(func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
