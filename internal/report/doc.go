// Package report builds the dashboard payload. A Builder loads every
// registered dataset concurrently, derives its reporting columns and then
// selects the latest snapshots, date-windowed trend series and categorical
// breakdowns the presentation layer renders.
package report
