package dataprocessing

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "c19pulse/internal/errors"
	"c19pulse/pkg/contracts/domain"
)

func textInput(s *domain.Series, operation, column string) ([]string, error) {
	kind, ok := s.Kind(column)
	if !ok {
		return nil, apperrors.NewSchemaError(operation, column)
	}
	if kind != domain.Text {
		return nil, apperrors.NewAppError(apperrors.ErrTypeSchema,
			fmt.Sprintf("%s needs text column %q", operation, column), nil).
			WithContext("column", column)
	}
	v, _ := s.Text(column)
	return v, nil
}

// Normalize rewrites the values of column by exact match against mapping.
// Unmapped values pass through unchanged.
func Normalize(s *domain.Series, column string, mapping map[string]string) (*domain.Series, error) {
	v, err := textInput(s, "normalize", column)
	if err != nil {
		return nil, err
	}
	for i, label := range v {
		if to, ok := mapping[label]; ok {
			v[i] = to
		}
	}
	return s.WithText(column, v), nil
}

// ExcludeLabel drops the rows whose column equals label
func ExcludeLabel(s *domain.Series, column, label string) (*domain.Series, error) {
	v, err := textInput(s, "exclude", column)
	if err != nil {
		return nil, err
	}
	return s.Filter(func(i int) bool { return v[i] != label }), nil
}

// TitleCase capitalises each word of column, e.g. "FEMALE" to "Female"
func TitleCase(s *domain.Series, column string) (*domain.Series, error) {
	v, err := textInput(s, "title case", column)
	if err != nil {
		return nil, err
	}
	caser := cases.Title(language.English)
	for i := range v {
		v[i] = caser.String(strings.TrimSpace(v[i]))
	}
	return s.WithText(column, v), nil
}

// Breakdown counts rows per value of groupColumn and gives each group's
// share of the total, rounded to 2 decimals. Rows with an empty group are
// not counted. Categories come back ascending by percentage, then label.
func Breakdown(s *domain.Series, groupColumn string) (domain.Breakdown, error) {
	v, err := textInput(s, "breakdown", groupColumn)
	if err != nil {
		return domain.Breakdown{}, err
	}

	counts := make(map[string]int)
	total := 0
	for _, label := range v {
		if label == "" {
			continue
		}
		counts[label]++
		total++
	}

	b := domain.Breakdown{Column: groupColumn, Total: total}
	for label, n := range counts {
		pct := RoundHalfEven(float64(n)/float64(total)*100, 2)
		b.Categories = append(b.Categories, domain.Category{
			Label:           label,
			Count:           n,
			Percentage:      pct,
			PercentageLabel: FormatPercent(pct, 2),
		})
	}
	sort.Slice(b.Categories, func(i, j int) bool {
		a, c := b.Categories[i], b.Categories[j]
		if a.Count != c.Count {
			return a.Count < c.Count
		}
		return a.Label < c.Label
	})
	return b, nil
}
