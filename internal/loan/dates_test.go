package loan_test

import (
	"testing"
	"time"

	"github.com/kmoussai/flash-loan-sub005/internal/loan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, ok := loan.ParseDate(s)
	require.True(t, ok, "bad test date %q", s)
	return d
}

func TestParseDate(t *testing.T) {
	d, ok := loan.ParseDate("2024-02-29")
	require.True(t, ok)
	assert.Equal(t, 29, d.Day())

	for _, s := range []string{"", "2024-2-9", "09/02/2024", "2024-02-30", "yesterday"} {
		_, ok := loan.ParseDate(s)
		assert.False(t, ok, "expected %q to be rejected", s)
	}
}

func TestIsBusinessDay(t *testing.T) {
	tests := []struct {
		date string
		want bool
	}{
		{"2024-06-12", true},  // ordinary Wednesday
		{"2024-06-15", false}, // Saturday
		{"2024-06-16", false}, // Sunday
		{"2024-07-01", false}, // Canada Day
		{"2024-03-29", false}, // Good Friday
		{"2024-05-20", false}, // Victoria Day
		{"2024-09-02", false}, // Labour Day
		{"2024-10-14", false}, // Thanksgiving
		{"2024-09-30", false}, // Truth and Reconciliation Day
		{"2024-11-11", false}, // Remembrance Day
		{"2024-12-25", false},
		{"2024-12-26", false}, // Boxing Day
		{"2024-12-27", true},
		{"2025-01-01", false},
	}
	for _, tc := range tests {
		t.Run(tc.date, func(t *testing.T) {
			assert.Equal(t, tc.want, loan.IsBusinessDay(mustDate(t, tc.date)))
		})
	}
}

func TestPreviousBusinessDay(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2024-06-12", "2024-06-12"}, // already a business day
		{"2024-06-16", "2024-06-14"}, // Sunday back to Friday
		{"2024-03-31", "2024-03-28"}, // Easter Sunday back past Good Friday
		{"2025-12-26", "2025-12-24"}, // Boxing Day back past Christmas
	}
	for _, tc := range tests {
		t.Run(tc.date, func(t *testing.T) {
			got := loan.PreviousBusinessDay(mustDate(t, tc.date))
			assert.Equal(t, tc.want, got.Format(loan.DateLayout))
		})
	}
}

func TestLastDayOfMonth(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2024-02-01", "2024-02-29"}, // leap year
		{"2023-02-10", "2023-02-28"},
		{"2024-04-30", "2024-04-30"},
		{"2024-12-05", "2024-12-31"},
	}
	for _, tc := range tests {
		got := loan.LastDayOfMonth(mustDate(t, tc.date))
		assert.Equal(t, tc.want, got.Format(loan.DateLayout))
	}
}
