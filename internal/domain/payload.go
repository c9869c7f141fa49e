package domain

// Typed payloads for kinds that carry structured data. They marshal into
// LedgerEntry.Payload and are validated both at record and at fold time.

// SplitPayload carries a stock split ratio (Numerator new shares per
// Denominator old shares).
type SplitPayload struct {
	Numerator   int64 `json:"numerator"`
	Denominator int64 `json:"denominator"`
}

// PausePayload carries the pause flag for a pause entry.
type PausePayload struct {
	Paused bool `json:"paused"`
}

// SymbolChangePayload carries old and new token symbols.
type SymbolChangePayload struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// VestingSchedulePayload carries the immutable parameters of a vesting
// schedule, set once by its vesting_schedule_create entry.
type VestingSchedulePayload struct {
	Beneficiary     string       `json:"beneficiary"`
	TotalAmount     int64        `json:"total_amount"`
	StartTime       int64        `json:"start_time"`       // Unix seconds
	CliffSeconds    int64        `json:"cliff_seconds"`    // offset from start
	DurationSeconds int64        `json:"duration_seconds"` // offset from start
	Interval        IntervalUnit `json:"interval"`
}

// VestingReleasePayload carries running totals at the moment of a release,
// for the audit trail. Replay derives released amounts from entry Amounts,
// never from these totals.
type VestingReleasePayload struct {
	TotalVested     int64  `json:"total_vested"`
	TotalReleased   int64  `json:"total_released"`
	TotalAmount     int64  `json:"total_amount"`
	ScheduleAddress string `json:"schedule_address,omitempty"`
}

// ValuationPayload carries a company valuation mark.
type ValuationPayload struct {
	Valuation int64  `json:"valuation"` // quote base units
	Method    string `json:"method,omitempty"`
}

// IntervalUnit selects the discrete step of an interval vesting schedule.
type IntervalUnit string

// Interval unit constants.
const (
	IntervalMinute IntervalUnit = "minute"
	IntervalHour   IntervalUnit = "hour"
	IntervalDay    IntervalUnit = "day"
	IntervalMonth  IntervalUnit = "month" // fixed 30 days
)

// Seconds returns the interval length in seconds, or 0 for an unknown unit.
func (u IntervalUnit) Seconds() int64 {
	switch u {
	case IntervalMinute:
		return 60
	case IntervalHour:
		return 3600
	case IntervalDay:
		return 86400
	case IntervalMonth:
		return 30 * 86400
	default:
		return 0
	}
}
