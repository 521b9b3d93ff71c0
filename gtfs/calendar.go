package gtfs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/theoremus-urban-solutions/gtfs-manager/utils"
)

// SpanExtractor derives a feed's validity span from its tables.
type SpanExtractor interface {
	Extract(dir string) (Span, error)
}

// ExtractStats counts the rows seen by the last Extract call.
type ExtractStats struct {
	Rows    int
	Skipped int
}

// CalendarExtractor scans calendar.txt and calendar_dates.txt for the first and last day
// on which any service runs.
type CalendarExtractor struct {
	Stats ExtractStats
}

// NewCalendarExtractor creates a CalendarExtractor.
func NewCalendarExtractor() *CalendarExtractor {
	return &CalendarExtractor{}
}

type calendarRow struct {
	Monday    string `csv:"monday"`
	Tuesday   string `csv:"tuesday"`
	Wednesday string `csv:"wednesday"`
	Thursday  string `csv:"thursday"`
	Friday    string `csv:"friday"`
	Saturday  string `csv:"saturday"`
	Sunday    string `csv:"sunday"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
}

func (r calendarRow) active() bool {
	for _, f := range []string{r.Monday, r.Tuesday, r.Wednesday, r.Thursday, r.Friday, r.Saturday, r.Sunday} {
		if flagSet(f) {
			return true
		}
	}
	return false
}

type calendarDateRow struct {
	Date          string `csv:"date"`
	ExceptionType string `csv:"exception_type"`
}

// serviceAdded is the calendar_dates exception_type for an added service day.
const serviceAdded = 1

// flagSet treats any non-zero number, or any other non-empty value, as set.
func flagSet(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n != 0
	}
	return true
}

// dateBounds folds YYYYMMDD values as integers.
type dateBounds struct {
	from int
	to   int
}

func newDateBounds() dateBounds {
	return dateBounds{from: math.MaxInt, to: math.MinInt}
}

func (b *dateBounds) fold(from, to int) {
	if from < b.from {
		b.from = from
	}
	if to > b.to {
		b.to = to
	}
}

func (b dateBounds) empty() bool {
	return b.from == math.MaxInt || b.to == math.MinInt
}

// Extract returns the span between the earliest and latest active service day.
// Missing tables are fine; when neither yields an active row ErrNoValidSpan is returned.
func (e *CalendarExtractor) Extract(dir string) (Span, error) {
	e.Stats = ExtractStats{}
	bounds := newDateBounds()

	if err := e.scanCalendar(filepath.Join(dir, CalendarTable), &bounds); err != nil {
		return Span{}, err
	}
	if err := e.scanCalendarDates(filepath.Join(dir, CalendarDatesTable), &bounds); err != nil {
		return Span{}, err
	}
	if bounds.empty() {
		return Span{}, fmt.Errorf("%s: %w", dir, ErrNoValidSpan)
	}
	from, err := dateFromInt(bounds.from)
	if err != nil {
		return Span{}, err
	}
	to, err := dateFromInt(bounds.to)
	if err != nil {
		return Span{}, err
	}
	return Span{From: from, To: to}, nil
}

func (e *CalendarExtractor) scanCalendar(path string, bounds *dateBounds) error {
	return e.scanTable(path, func(dec *csvutil.Decoder) error {
		var row calendarRow
		if err := dec.Decode(&row); err != nil {
			return err
		}
		if !row.active() {
			return nil
		}
		start, err1 := dateInt(row.StartDate)
		end, err2 := dateInt(row.EndDate)
		if err := errors.Join(err1, err2); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedTable, err)
		}
		bounds.fold(start, end)
		return nil
	})
}

func (e *CalendarExtractor) scanCalendarDates(path string, bounds *dateBounds) error {
	return e.scanTable(path, func(dec *csvutil.Decoder) error {
		var row calendarDateRow
		if err := dec.Decode(&row); err != nil {
			return err
		}
		if n, err := strconv.Atoi(strings.TrimSpace(row.ExceptionType)); err != nil || n != serviceAdded {
			return nil
		}
		d, err := dateInt(row.Date)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedTable, err)
		}
		bounds.fold(d, d)
		return nil
	})
}

// scanTable opens path (absent is not an error) and calls decodeRow until EOF.
// Rows that fail with ErrMalformedTable are counted and skipped.
func (e *CalendarExtractor) scanTable(path string, decodeRow func(*csvutil.Decoder) error) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer func() { _ = f.Close() }()

	rows := newRowFilter(f)
	dec, err := csvutil.NewDecoder(rows)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s: reading header: %w", filepath.Base(path), err)
	}
	dec.DisallowMissingColumns = true

	for {
		err := decodeRow(dec)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, ErrMalformedTable) {
			e.Stats.Skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		e.Stats.Rows++
	}
	e.Stats.Skipped += rows.skipped
	return nil
}

// rowFilter feeds csvutil only the rows whose width matches the header.
type rowFilter struct {
	r       *csv.Reader
	width   int
	skipped int
}

func newRowFilter(r io.Reader) *rowFilter {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &rowFilter{r: cr, width: -1}
}

func (f *rowFilter) Read() ([]string, error) {
	for {
		rec, err := f.r.Read()
		if err != nil {
			return nil, err
		}
		if f.width < 0 {
			f.width = len(rec)
			for i, h := range rec {
				rec[i] = strings.TrimSpace(h)
			}
			if len(rec) > 0 {
				rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
			}
			return rec, nil
		}
		if len(rec) != f.width {
			f.skipped++
			continue
		}
		return rec, nil
	}
}

func dateInt(s string) (int, error) {
	t, err := utils.ParseServiceDate(s)
	if err != nil {
		return 0, err
	}
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d, nil
}

func dateFromInt(n int) (time.Time, error) {
	t, err := utils.ParseServiceDate(strconv.Itoa(n))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrMalformedTable, err)
	}
	return t, nil
}
