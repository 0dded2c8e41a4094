package records

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/govsync/internal/common"
)

var now = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

func TestFilter_ResolveDates(t *testing.T) {
	tests := []struct {
		name      string
		f         Filter
		wantStart string
		wantEnd   string
	}{
		{"no dates", Filter{}, "", ""},
		{"today sentinel", Filter{StartDate: "2025-03-01", EndDate: "today"}, "2025-03-01", "2025-03-10"},
		{"sentinel case insensitive", Filter{StartDate: "TODAY"}, "2025-03-10", ""},
		{"difference from today", Filter{DateDifference: 7}, "2025-03-03", "2025-03-10"},
		{"difference from end", Filter{EndDate: "2025-02-10", DateDifference: 10}, "2025-01-31", "2025-02-10"},
		{"explicit start wins", Filter{StartDate: "2025-01-01", DateDifference: 3}, "2025-01-01", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.f.resolve(now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, r.start)
			assert.Equal(t, tt.wantEnd, r.end)
			assert.Equal(t, DefaultLimit, r.Limit)
		})
	}
}

func TestFilter_ResolveInvalid(t *testing.T) {
	tests := []struct {
		name string
		f    Filter
	}{
		{"bad date", Filter{StartDate: "03/01/2025"}},
		{"start after end", Filter{StartDate: "2025-03-02", EndDate: "2025-03-01"}},
		{"negative difference", Filter{DateDifference: -1}},
		{"bad operator", Filter{RequestedAmount: &AmountFilter{Op: "between", Value: "1"}}},
		{"bad amount", Filter{Reward: &AmountFilter{Op: OpGt, Value: "lots"}}},
		{"negative limit", Filter{Limit: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.f.resolve(now)
			assert.ErrorIs(t, err, common.ErrInvalidFilter)
		})
	}
}

func TestFilter_ResolveAmountsAndLimit(t *testing.T) {
	in := &AmountFilter{Value: "100"}
	r, err := Filter{RequestedAmount: in, Limit: 5000}.resolve(now)
	require.NoError(t, err)

	assert.Equal(t, OpEq, r.RequestedAmount.Op)
	assert.Equal(t, Op(""), in.Op)
	assert.Equal(t, MaxLimit, r.Limit)
}

func TestCreatedOn(t *testing.T) {
	assert.Equal(t, "2025-03-01", createdOn("2025-03-01T10:00:00Z"))
	assert.Equal(t, "2025-03-02", createdOn("2025-03-01T23:30:00-02:00"))
	assert.Equal(t, "2025-03-01", createdOn("2025-03-01 08:00:00"))
	assert.Equal(t, "2025-03-01", createdOn("2025-03-01"))
	assert.Equal(t, "", createdOn("last tuesday"))
}

func TestAmountNum(t *testing.T) {
	assert.Equal(t, "12.5", amountNum(" 12.5 "))
	assert.Nil(t, amountNum(""))
	assert.Nil(t, amountNum("n/a"))
}
