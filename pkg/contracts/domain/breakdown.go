package domain

// Category is one group of a breakdown
type Category struct {
	Label           string  `json:"label"`
	Count           int     `json:"count"`
	Percentage      float64 `json:"percentage"`
	PercentageLabel string  `json:"percentage_label"`
}

// Breakdown is a grouped count and percentage-of-total summary over a
// categorical column. Categories are ordered ascending by percentage.
type Breakdown struct {
	Column     string     `json:"column"`
	Total      int        `json:"total"`
	Categories []Category `json:"categories"`
}

// PercentageSum adds up the rounded category percentages
func (b Breakdown) PercentageSum() float64 {
	var sum float64
	for _, c := range b.Categories {
		sum += c.Percentage
	}
	return sum
}

// Lookup finds a category by label
func (b Breakdown) Lookup(label string) (Category, bool) {
	for _, c := range b.Categories {
		if c.Label == label {
			return c, true
		}
	}
	return Category{}, false
}
