package model

import "time"

// RegressionReport is the outcome of one regression pipeline run.
type RegressionReport struct {
	RunID        string
	Target       string
	Reference    string
	TableRows    int64
	Empty        bool // the trades table had no rows; nothing was computed
	Observations int  // rows surviving the timestamp join
	Adjustment   *Adjustment
	GeneratedAt  time.Time
}
