package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/infohub/internal/models"
)

func TestStatic(t *testing.T) {
	pos := models.Position{Latitude: 37.77, Longitude: -122.42}
	got, err := Static{Position: pos}.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pos, got)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.CurrentPosition(context.Background())
	var capErr *CapabilityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "Geolocation is not supported by your browser.", err.Error())
}

func TestCapabilityError_Messages(t *testing.T) {
	assert.Equal(t, "Geolocation error: User denied Geolocation. Please enable location services.",
		(&CapabilityError{Reason: "User denied Geolocation"}).Error())
	assert.Equal(t, "Geolocation error: Timeout expired. Please enable location services.",
		(&CapabilityError{Reason: "Timeout expired."}).Error())
	assert.Equal(t, "Geolocation error: permission denied. Please enable location services.",
		(&CapabilityError{}).Error())
}

func TestReported_BlocksUntilReport(t *testing.T) {
	r := NewReported()
	assert.False(t, r.Resolved())

	done := make(chan models.Position, 1)
	go func() {
		pos, err := r.CurrentPosition(context.Background())
		assert.NoError(t, err)
		done <- pos
	}()

	select {
	case <-done:
		t.Fatal("CurrentPosition returned before report")
	case <-time.After(20 * time.Millisecond):
	}

	require.True(t, r.Report(models.Position{Latitude: 1, Longitude: 2}))
	select {
	case pos := <-done:
		assert.Equal(t, models.Position{Latitude: 1, Longitude: 2}, pos)
	case <-time.After(time.Second):
		t.Fatal("CurrentPosition did not return after report")
	}
	assert.True(t, r.Resolved())
}

func TestReported_FirstAnswerWins(t *testing.T) {
	r := NewReported()
	require.True(t, r.Deny("User denied Geolocation"))
	assert.False(t, r.Report(models.Position{Latitude: 1}))
	assert.False(t, r.Unsupported())

	_, err := r.CurrentPosition(context.Background())
	assert.EqualError(t, err, "Geolocation error: User denied Geolocation. Please enable location services.")
}

func TestReported_Unsupported(t *testing.T) {
	r := NewReported()
	r.Unsupported()
	_, err := r.CurrentPosition(context.Background())
	var capErr *CapabilityError
	require.True(t, errors.As(err, &capErr))
	assert.True(t, capErr.Unsupported)
}

func TestReported_ContextDone(t *testing.T) {
	r := NewReported()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := r.CurrentPosition(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
