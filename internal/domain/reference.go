package domain

// Reference types linking ledger entries to the domain object they originate
// from. Stored in LedgerEntry.ReferenceType next to the object id.
const (
	RefTypeVestingSchedule = "vesting_schedule"
	RefTypeFundingRound    = "funding_round"
	RefTypeProposal        = "proposal"
	RefTypeDividendRound   = "dividend_round"
	RefTypeConvertible     = "convertible_note"
)
