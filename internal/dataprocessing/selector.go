package dataprocessing

import (
	"time"

	apperrors "c19pulse/internal/errors"
	"c19pulse/pkg/contracts/domain"
)

// Latest returns the record with the maximum date. When several rows
// share that date the last one wins.
func Latest(s *domain.Series) (domain.Record, error) {
	if s.Len() == 0 {
		return domain.Record{}, apperrors.NewEmptySeriesError("latest")
	}
	best := 0
	for i := 1; i < s.Len(); i++ {
		if !s.Date(i).Before(s.Date(best)) {
			best = i
		}
	}
	return s.Record(best), nil
}

// LatestRows returns every row dated at the series' maximum date
func LatestRows(s *domain.Series) (*domain.Series, error) {
	rec, err := Latest(s)
	if err != nil {
		return nil, err
	}
	return s.Filter(func(i int) bool { return s.Date(i).Equal(rec.Date) }), nil
}

// Window returns the rows with start <= date <= end. An empty result is
// valid; start after end is an InvalidRangeError.
func Window(s *domain.Series, start, end time.Time) (*domain.Series, error) {
	start, end = domain.CalendarDate(start), domain.CalendarDate(end)
	if start.After(end) {
		return nil, apperrors.NewInvalidRangeError(start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	}
	r := domain.DateRange{From: start, To: end}
	return s.Filter(func(i int) bool { return r.Contains(s.Date(i)) }), nil
}

// Span returns the first and last date of a series
func Span(s *domain.Series) (domain.DateRange, error) {
	if s.Len() == 0 {
		return domain.DateRange{}, apperrors.NewEmptySeriesError("span")
	}
	r := domain.DateRange{From: s.Date(0), To: s.Date(0)}
	for i := 1; i < s.Len(); i++ {
		d := s.Date(i)
		if d.Before(r.From) {
			r.From = d
		}
		if d.After(r.To) {
			r.To = d
		}
	}
	return r, nil
}
