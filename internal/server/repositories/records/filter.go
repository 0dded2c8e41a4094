package records

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/govsync/internal/common"
)

// Today is the date sentinel resolved to the current day at query time.
const Today = "today"

const (
	DefaultLimit = 100
	MaxLimit     = 1000
	dateLayout   = "2006-01-02"
)

// Op is a comparison operator of an amount filter.
type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
)

var opSQL = map[Op]string{OpEq: "=", OpGt: ">", OpGte: ">=", OpLt: "<", OpLte: "<="}

// AmountFilter compares a monetary field against a decimal value.
type AmountFilter struct {
	Op    Op
	Value string
}

// Filter selects indexed records. Empty fields do not constrain the result.
type Filter struct {
	Type      string
	SubType   string
	Category  string
	Submitter string
	// StartDate and EndDate are YYYY-MM-DD or Today.
	StartDate string
	EndDate   string
	// DateDifference, in days, derives the missing start date from the end
	// date (which itself defaults to today).
	DateDifference  int
	RequestedAmount *AmountFilter
	Reward          *AmountFilter
	Limit           int
}

// resolved is a validated Filter with concrete dates.
type resolved struct {
	Filter
	start, end string
}

func (f Filter) resolve(now time.Time) (resolved, error) {
	r := resolved{Filter: f}

	end, err := resolveDate(f.EndDate, now)
	if err != nil {
		return r, fmt.Errorf("%w: end date: %v", common.ErrInvalidFilter, err)
	}
	start, err := resolveDate(f.StartDate, now)
	if err != nil {
		return r, fmt.Errorf("%w: start date: %v", common.ErrInvalidFilter, err)
	}

	if f.DateDifference < 0 {
		return r, fmt.Errorf("%w: negative date difference", common.ErrInvalidFilter)
	}
	if f.DateDifference > 0 && start.IsZero() {
		if end.IsZero() {
			end = truncateDay(now)
		}
		start = end.AddDate(0, 0, -f.DateDifference)
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return r, fmt.Errorf("%w: start date after end date", common.ErrInvalidFilter)
	}
	if !start.IsZero() {
		r.start = start.Format(dateLayout)
	}
	if !end.IsZero() {
		r.end = end.Format(dateLayout)
	}

	if r.RequestedAmount, err = resolveAmount("requestedAmount", f.RequestedAmount); err != nil {
		return r, err
	}
	if r.Reward, err = resolveAmount("reward", f.Reward); err != nil {
		return r, err
	}

	switch {
	case f.Limit < 0:
		return r, fmt.Errorf("%w: negative limit", common.ErrInvalidFilter)
	case f.Limit == 0:
		r.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		r.Limit = MaxLimit
	}
	return r, nil
}

// resolveAmount validates a and returns a copy with the default operator.
func resolveAmount(name string, a *AmountFilter) (*AmountFilter, error) {
	if a == nil {
		return nil, nil
	}
	out := *a
	if out.Op == "" {
		out.Op = OpEq
	}
	if _, ok := opSQL[out.Op]; !ok {
		return nil, fmt.Errorf("%w: %s operator %q", common.ErrInvalidFilter, name, out.Op)
	}
	if _, err := strconv.ParseFloat(out.Value, 64); err != nil {
		return nil, fmt.Errorf("%w: %s value %q", common.ErrInvalidFilter, name, out.Value)
	}
	return &out, nil
}

func resolveDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return time.Time{}, nil
	case strings.EqualFold(s, Today):
		return truncateDay(now), nil
	}
	return time.Parse(dateLayout, s)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// createdOn derives the sortable day of a source-native creation date, or
// "" when the format is not recognized.
func createdOn(creationDate string) string {
	s := strings.TrimSpace(creationDate)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(dateLayout)
		}
	}
	return ""
}

// amountNum is the numeric shadow of a decimal string, or nil.
func amountNum(s string) any {
	s = strings.TrimSpace(s)
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return nil
	}
	return s
}
