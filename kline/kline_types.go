package kline

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidBar is returned when OHLCV values do not form a valid bar
	ErrInvalidBar = errors.New("invalid bar")
	// ErrSeriesEmpty is returned when an operation requires at least one bar
	ErrSeriesEmpty = errors.New("series contains no bars")
	// ErrIndexOutOfRange is returned on invalid positional access
	ErrIndexOutOfRange = errors.New("bar index out of range")
)

// Bar is a single OHLCV observation. Bars are immutable once built; two
// bars are considered equal when their timestamps match.
type Bar struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Series is a chronologically ordered sequence of bars for one symbol.
// Timestamps are strictly increasing; adding a bar with an existing
// timestamp overwrites the previous bar.
type Series struct {
	symbol string
	bars   []Bar
}

// OHLC holds the float64 projections of a series for indicator math
type OHLC struct {
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}
