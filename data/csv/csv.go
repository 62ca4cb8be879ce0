// Package csv implements the file-backed market data loader. Each symbol
// maps to <directory>/<symbol>.csv with a header row naming at least
// datetime, open, high, low and close columns; volume is optional and
// defaults to zero. Header matching is case-insensitive, extra columns are
// ignored and malformed rows are skipped with a diagnostic.
package csv

import (
	encsv "encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tradepulse/gobacktester/kline"
	"github.com/tradepulse/gobacktester/log"
)

// DefaultTimeFormat matches "yyyy-MM-dd HH:mm:ss" datetime columns
const DefaultTimeFormat = "2006-01-02 15:04:05"

var (
	errMissingColumns = errors.New("required columns not found")
	errEmptyFile      = errors.New("csv file holds no rows")
)

// Loader reads bar data from per-symbol CSV files in a directory
type Loader struct {
	directory  string
	timeFormat string
}

// NewLoader returns a loader rooted at directory. An empty timeFormat
// selects DefaultTimeFormat.
func NewLoader(directory, timeFormat string) *Loader {
	if timeFormat == "" {
		timeFormat = DefaultTimeFormat
	}
	return &Loader{directory: directory, timeFormat: timeFormat}
}

// Load reads the symbol's file and returns its bars intersecting
// [start, end], endpoints inclusive
func (l *Loader) Load(symbol string, start, end time.Time) (*kline.Series, error) {
	path := filepath.Join(l.directory, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "no data file for symbol %q", symbol)
	}
	defer f.Close()

	series, err := l.parse(symbol, f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return series.SubSeries(start, end), nil
}

func (l *Loader) parse(symbol string, r io.Reader) (*kline.Series, error) {
	reader := encsv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errEmptyFile
		}
		return nil, err
	}

	dateTimeIdx := findColumn(header, "datetime", "date", "time")
	openIdx := findColumn(header, "open")
	highIdx := findColumn(header, "high")
	lowIdx := findColumn(header, "low")
	closeIdx := findColumn(header, "close")
	volumeIdx := findColumn(header, "volume")
	if dateTimeIdx < 0 || openIdx < 0 || highIdx < 0 || lowIdx < 0 || closeIdx < 0 {
		return nil, errMissingColumns
	}

	series := kline.NewSeries(symbol)
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warnf(log.Data, "%s row %d unreadable: %v", symbol, row, err)
			continue
		}
		bar, err := l.parseRow(record, dateTimeIdx, openIdx, highIdx, lowIdx, closeIdx, volumeIdx)
		if err != nil {
			log.Warnf(log.Data, "%s row %d skipped: %v", symbol, row, err)
			continue
		}
		series.Add(bar)
	}
	return series, nil
}

func (l *Loader) parseRow(record []string, dateTimeIdx, openIdx, highIdx, lowIdx, closeIdx, volumeIdx int) (kline.Bar, error) {
	max := dateTimeIdx
	for _, idx := range []int{openIdx, highIdx, lowIdx, closeIdx} {
		if idx > max {
			max = idx
		}
	}
	if len(record) <= max {
		return kline.Bar{}, errors.Errorf("row has %d fields, need %d", len(record), max+1)
	}

	ts, err := time.Parse(l.timeFormat, strings.TrimSpace(record[dateTimeIdx]))
	if err != nil {
		return kline.Bar{}, err
	}
	open, err := decimal.NewFromString(strings.TrimSpace(record[openIdx]))
	if err != nil {
		return kline.Bar{}, errors.Wrap(err, "open")
	}
	high, err := decimal.NewFromString(strings.TrimSpace(record[highIdx]))
	if err != nil {
		return kline.Bar{}, errors.Wrap(err, "high")
	}
	low, err := decimal.NewFromString(strings.TrimSpace(record[lowIdx]))
	if err != nil {
		return kline.Bar{}, errors.Wrap(err, "low")
	}
	closePrice, err := decimal.NewFromString(strings.TrimSpace(record[closeIdx]))
	if err != nil {
		return kline.Bar{}, errors.Wrap(err, "close")
	}
	volume := decimal.Zero
	if volumeIdx >= 0 && volumeIdx < len(record) && strings.TrimSpace(record[volumeIdx]) != "" {
		volume, err = decimal.NewFromString(strings.TrimSpace(record[volumeIdx]))
		if err != nil {
			return kline.Bar{}, errors.Wrap(err, "volume")
		}
	}
	return kline.NewBar(ts, open, high, low, closePrice, volume)
}

// findColumn returns the index of the first header cell matching any of the
// candidate names, ignoring case
func findColumn(header []string, names ...string) int {
	for _, name := range names {
		for i := range header {
			if strings.EqualFold(strings.TrimSpace(header[i]), name) {
				return i
			}
		}
	}
	return -1
}
