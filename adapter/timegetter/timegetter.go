// Package timegetter contains the default [domain.TimeGetter] implementations.
package timegetter

import (
	"time"

	"github.com/vinicius-lino-figueiredo/docq/domain"
)

// TimeGetter implements [domain.TimeGetter] with the wall clock.
type TimeGetter struct{}

// NewTimeGetter returns a new implementation of domain.TimeGetter.
func NewTimeGetter() domain.TimeGetter {
	return &TimeGetter{}
}

// GetTime implements [domain.TimeGetter].
func (t *TimeGetter) GetTime() time.Time {
	return time.Now()
}

// Fixed implements [domain.TimeGetter] returning the same instant every time.
type Fixed time.Time

// NewFixed returns a [domain.TimeGetter] stopped at t.
func NewFixed(t time.Time) domain.TimeGetter {
	return Fixed(t)
}

// GetTime implements [domain.TimeGetter].
func (f Fixed) GetTime() time.Time {
	return time.Time(f)
}
