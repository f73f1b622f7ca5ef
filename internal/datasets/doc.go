// Package datasets declares the Ontario open data files the dashboard
// reads: where each lives, which columns to project and the derive spec
// that turns it into reporting columns. Definitions are held in a Registry
// and validated once at startup.
package datasets
