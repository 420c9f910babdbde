package models

// ShareStats is a point-in-time count of shares by state, used for metrics.
type ShareStats struct {
	Active  int64
	Expired int64
	Files   int64
	Bytes   int64
}
