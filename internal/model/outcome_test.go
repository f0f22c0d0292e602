package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOutcome(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"매각", OutcomeSold},
		{"낙찰", OutcomeSold},
		{"sold", OutcomeSold},
		{"Awarded", OutcomeSold},
		{"유찰", OutcomeUnsold},
		{"  유찰  ", OutcomeUnsold},
		{"취소", OutcomeCancelled},
		{"canceled", OutcomeCancelled},
		{"정지", OutcomeSuspended},
		{"SOLD", OutcomeSold},
		{"unsold", OutcomeUnsold},
		{"cancelled", OutcomeCancelled},
		{"변경", OutcomeUnknown},
		{"", OutcomeUnknown},
		{"garbage", OutcomeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeOutcome(tt.raw), "raw=%q", tt.raw)
	}
}

func TestSaleDateKey(t *testing.T) {
	kst := time.FixedZone("KST", 9*60*60)

	a := SaleDateKey(time.Date(2024, 8, 15, 10, 30, 0, 0, kst))
	b := SaleDateKey(time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC))

	assert.True(t, a.Equal(b))
	assert.Equal(t, time.UTC, a.Location())
	assert.Zero(t, a.Hour())
}

func TestParseSaleDate(t *testing.T) {
	got, err := ParseSaleDate("2024-08-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseSaleDate("15/08/2024")
	assert.Error(t, err)
}
