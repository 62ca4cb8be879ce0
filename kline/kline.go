// Package kline holds the price bar and time series primitives every other
// part of the backtester consumes.
package kline

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// NewBar validates and returns a bar. The low must not exceed the open,
// close or high, and volume cannot be negative.
func NewBar(timestamp time.Time, open, high, low, closePrice, volume decimal.Decimal) (Bar, error) {
	if timestamp.IsZero() {
		return Bar{}, fmt.Errorf("%w: timestamp unset", ErrInvalidBar)
	}
	if low.GreaterThan(open) || low.GreaterThan(closePrice) || low.GreaterThan(high) {
		return Bar{}, fmt.Errorf("%w: low %v exceeds open/close/high", ErrInvalidBar, low)
	}
	if high.LessThan(open) || high.LessThan(closePrice) {
		return Bar{}, fmt.Errorf("%w: high %v below open/close", ErrInvalidBar, high)
	}
	if volume.IsNegative() {
		return Bar{}, fmt.Errorf("%w: negative volume %v", ErrInvalidBar, volume)
	}
	return Bar{
		Timestamp: timestamp,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

// Equal reports whether both bars describe the same observation time
func (b Bar) Equal(other Bar) bool {
	return b.Timestamp.Equal(other.Timestamp)
}

// TypicalPrice returns the average of high, low and close
func (b Bar) TypicalPrice() decimal.Decimal {
	return b.High.Add(b.Low).Add(b.Close).Div(decimal.NewFromInt(3))
}

// Contains reports whether price lies within the bar's range, inclusive
func (b Bar) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(b.Low) && price.LessThanOrEqual(b.High)
}

// String implements the stringer interface
func (b Bar) String() string {
	return fmt.Sprintf("Bar{%s o:%v h:%v l:%v c:%v v:%v}",
		b.Timestamp.Format(time.RFC3339), b.Open, b.High, b.Low, b.Close, b.Volume)
}

// NewSeries returns an empty series for the symbol
func NewSeries(symbol string) *Series {
	return &Series{symbol: symbol}
}

// Symbol returns the instrument the series belongs to
func (s *Series) Symbol() string {
	return s.symbol
}

// Len returns the number of bars held
func (s *Series) Len() int {
	return len(s.bars)
}

// search returns the insertion index for ts within the ordered bars
func (s *Series) search(ts time.Time) int {
	return sort.Search(len(s.bars), func(i int) bool {
		return !s.bars[i].Timestamp.Before(ts)
	})
}

// Add inserts the bar keeping timestamps in ascending order. A bar sharing
// a timestamp with an existing one replaces it.
func (s *Series) Add(b Bar) {
	i := s.search(b.Timestamp)
	if i < len(s.bars) && s.bars[i].Timestamp.Equal(b.Timestamp) {
		s.bars[i] = b
		return
	}
	s.bars = append(s.bars, Bar{})
	copy(s.bars[i+1:], s.bars[i:])
	s.bars[i] = b
}

// Bar returns the bar at position i
func (s *Series) Bar(i int) (Bar, error) {
	if i < 0 || i >= len(s.bars) {
		return Bar{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(s.bars))
	}
	return s.bars[i], nil
}

// BarAt returns the bar observed at ts, if any
func (s *Series) BarAt(ts time.Time) (Bar, bool) {
	i := s.search(ts)
	if i < len(s.bars) && s.bars[i].Timestamp.Equal(ts) {
		return s.bars[i], true
	}
	return Bar{}, false
}

// First returns the earliest bar
func (s *Series) First() (Bar, error) {
	if len(s.bars) == 0 {
		return Bar{}, ErrSeriesEmpty
	}
	return s.bars[0], nil
}

// Last returns the most recent bar
func (s *Series) Last() (Bar, error) {
	if len(s.bars) == 0 {
		return Bar{}, ErrSeriesEmpty
	}
	return s.bars[len(s.bars)-1], nil
}

// Bars returns a copy of the held bars in chronological order
func (s *Series) Bars() []Bar {
	out := make([]Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// Timestamps returns the observation times in chronological order
func (s *Series) Timestamps() []time.Time {
	out := make([]time.Time, len(s.bars))
	for i := range s.bars {
		out[i] = s.bars[i].Timestamp
	}
	return out
}

// ClosePrices returns every closing price in chronological order
func (s *Series) ClosePrices() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s.bars))
	for i := range s.bars {
		out[i] = s.bars[i].Close
	}
	return out
}

// LastClosePrices returns up to n closing prices from the end of the series
func (s *Series) LastClosePrices(n int) []decimal.Decimal {
	start := len(s.bars) - n
	if start < 0 {
		start = 0
	}
	out := make([]decimal.Decimal, 0, len(s.bars)-start)
	for i := start; i < len(s.bars); i++ {
		out = append(out, s.bars[i].Close)
	}
	return out
}

// SubSeries returns a new series holding the bars observed within
// [start, end], both endpoints inclusive
func (s *Series) SubSeries(start, end time.Time) *Series {
	sub := NewSeries(s.symbol)
	for i := range s.bars {
		ts := s.bars[i].Timestamp
		if ts.Before(start) {
			continue
		}
		if ts.After(end) {
			break
		}
		sub.bars = append(sub.bars, s.bars[i])
	}
	return sub
}

// GetOHLC projects the series into float64 slices for indicator math
func (s *Series) GetOHLC() *OHLC {
	o := &OHLC{
		Open:   make([]float64, len(s.bars)),
		High:   make([]float64, len(s.bars)),
		Low:    make([]float64, len(s.bars)),
		Close:  make([]float64, len(s.bars)),
		Volume: make([]float64, len(s.bars)),
	}
	for i := range s.bars {
		o.Open[i] = s.bars[i].Open.InexactFloat64()
		o.High[i] = s.bars[i].High.InexactFloat64()
		o.Low[i] = s.bars[i].Low.InexactFloat64()
		o.Close[i] = s.bars[i].Close.InexactFloat64()
		o.Volume[i] = s.bars[i].Volume.InexactFloat64()
	}
	return o
}
