package orchestrator

// Token costs reserved before calling each AI layer
const (
	PerceptualCost = 2000
	CognitiveCost  = 2500

	DefaultTokenBudget = 10000
)

// Budget is the token allowance of one analysis run. It is a value: stages
// receive it and return the updated copy, so concurrent runs never share one.
type Budget struct {
	Limit int `json:"limit"`
	Used  int `json:"used"`
}

// NewBudget returns an unspent budget
func NewBudget(limit int) Budget {
	return Budget{Limit: limit}
}

// Allows reports whether a layer costing cost still fits
func (b Budget) Allows(cost int) bool {
	return b.Used+cost <= b.Limit
}

// Spend returns the budget after consuming n tokens. Collaborators report
// actual usage, which may exceed the reservation.
func (b Budget) Spend(n int) Budget {
	if n > 0 {
		b.Used += n
	}
	return b
}

// Remaining returns the unspent tokens, never negative
func (b Budget) Remaining() int {
	if b.Used >= b.Limit {
		return 0
	}
	return b.Limit - b.Used
}
