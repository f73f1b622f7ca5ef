// Package dataprocessing turns raw dataset files into dashboard series.
//
// The Loader reads a delimited file into a date-ordered domain.Series. A
// DeriveSpec is an ordered list of Steps (Difference, RollingMean, Ratio
// and friends) that the Engine applies to produce reporting columns; a spec
// is validated against the loaded columns before any step runs, so a step
// reading an undefined column fails with a DependencyError up front.
//
// Leading rows of differences and rolling means are null (NaN). The
// NullFill step, when present, must be last and replaces every null with
// a constant. Selectors (Latest, Window) read from the derived series, and
// Normalize, ExcludeLabel and Breakdown summarise categorical columns.
package dataprocessing
