package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideStatus(t *testing.T) {
	tests := []struct {
		mode    ReviewMode
		flagged bool
		want    Status
	}{
		{ReviewNever, false, StatusConfirmed},
		{ReviewNever, true, StatusConfirmed},
		{ReviewOnRedflag, false, StatusConfirmed},
		{ReviewOnRedflag, true, StatusPending},
		{ReviewAlways, false, StatusPending},
		{ReviewAlways, true, StatusPending},
		{ReviewMode("manual"), false, StatusPending},
	}

	for _, tt := range tests {
		got := DecideStatus(tt.mode, tt.flagged)
		assert.Equal(t, tt.want, got, "mode=%s flagged=%v", tt.mode, tt.flagged)
	}
}

func TestParseReviewMode(t *testing.T) {
	m, err := ParseReviewMode("")
	assert.NoError(t, err)
	assert.Equal(t, ReviewNever, m)

	m, err = ParseReviewMode("on_redflag")
	assert.NoError(t, err)
	assert.Equal(t, ReviewOnRedflag, m)

	_, err = ParseReviewMode("sometimes")
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	for _, s := range ActiveStatuses {
		assert.True(t, s.Active(), s)
	}
	for _, s := range []Status{StatusCancelled, StatusCompleted, StatusNoShow} {
		assert.False(t, s.Active(), s)
	}

	s, err := ParseStatus("noshow")
	assert.NoError(t, err)
	assert.Equal(t, StatusNoShow, s)

	_, err = ParseStatus("deleted")
	assert.Error(t, err)
}
