package allowance

import "time"

type Rates struct {
	Daily float64
	PerKm float64
}

func DefaultRates() Rates {
	return Rates{Daily: DefaultDailyAllowance, PerKm: DefaultRatePerKm}
}

type BreakdownInput struct {
	Departure    time.Time
	Return       time.Time
	StartMileage float64
	EndMileage   float64
	Expenses     []float64
}

type Breakdown struct {
	TotalHours        int     `json:"totalHours"`
	Allowance         float64 `json:"allowance"`
	Kilometers        float64 `json:"kilometers"`
	DistanceAllowance float64 `json:"distanceAllowance"`
	ExpensesTotal     float64 `json:"expensesTotal"`
	Total             float64 `json:"total"`
}

// Compute builds the reimbursement shown for a trip. Total is the time
// allowance plus itemized expenses; the distance allowance is reported on
// its own.
func Compute(in BreakdownInput, rates Rates) Breakdown {
	var b Breakdown

	b.TotalHours = TotalHours(in.Departure, in.Return)
	b.Allowance = RoundCents(AllowanceWithRate(float64(b.TotalHours), rates.Daily))

	if valid(in.StartMileage) && valid(in.EndMileage) && in.EndMileage > in.StartMileage {
		b.Kilometers = in.EndMileage - in.StartMileage
	}
	b.DistanceAllowance = RoundCents(DistanceAllowanceWithRate(b.Kilometers, rates.PerKm))

	for _, amount := range in.Expenses {
		if valid(amount) {
			b.ExpensesTotal += amount
		}
	}
	b.ExpensesTotal = RoundCents(b.ExpensesTotal)

	b.Total = RoundCents(b.Allowance + b.ExpensesTotal)

	return b
}
