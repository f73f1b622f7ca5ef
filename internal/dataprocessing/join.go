package dataprocessing

import (
	"time"

	apperrors "c19pulse/internal/errors"
	"c19pulse/pkg/contracts/domain"
)

// InnerJoin pairs the rows of left and right that share a date. Every
// matching pair produces one row, in left order then right order. The
// result keeps left's date column name; shared value columns are a
// SchemaError.
func InnerJoin(left, right *domain.Series) (*domain.Series, error) {
	for _, c := range right.Columns() {
		if left.Has(c) {
			return nil, apperrors.NewAppError(apperrors.ErrTypeSchema, "join: column \""+c+"\" exists on both sides", nil).
				WithContext("column", c)
		}
	}

	byDate := make(map[time.Time][]int)
	for j := 0; j < right.Len(); j++ {
		byDate[right.Date(j)] = append(byDate[right.Date(j)], j)
	}

	var li, ri []int
	for i := 0; i < left.Len(); i++ {
		for _, j := range byDate[left.Date(i)] {
			li = append(li, i)
			ri = append(ri, j)
		}
	}

	out := left.Rows(li)
	r := right.Rows(ri)
	for _, c := range r.Columns() {
		kind, _ := r.Kind(c)
		if kind == domain.Text {
			v, _ := r.Text(c)
			out = out.WithText(c, v)
		} else {
			v, _ := r.Numeric(c)
			out = out.WithNumeric(c, v)
		}
	}
	return out, nil
}
