package app

import "time"

// Watermark is the highest trade timestamp, in unix millis, whose cycle
// completed. It never moves backwards.
type Watermark struct {
	value int64
}

// NewWatermark starts the watermark lookback before now. A zero lookback
// starts at now and ignores everything that happened while the process
// was down.
func NewWatermark(now time.Time, lookback time.Duration) *Watermark {
	if lookback < 0 {
		lookback = 0
	}
	return &Watermark{value: now.Add(-lookback).UnixMilli()}
}

func (w *Watermark) Value() int64 {
	return w.value
}

// Covers reports whether ts is at or below the watermark.
func (w *Watermark) Covers(ts int64) bool {
	return ts <= w.value
}

// Advance moves the watermark to ts if that is later and reports whether
// it moved.
func (w *Watermark) Advance(ts int64) bool {
	if ts <= w.value {
		return false
	}
	w.value = ts
	return true
}
