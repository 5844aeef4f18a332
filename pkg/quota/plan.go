package quota

// Plan identifies a tenant's subscription tier.
type Plan string

const (
	PlanNone      Plan = "none"
	PlanStarter   Plan = "starter"
	PlanGrowth    Plan = "growth"
	PlanUnlimited Plan = "unlimited"
)

// Unlimited indicates no view ceiling for a plan (-1 chosen for SQL compatibility).
const Unlimited int64 = -1

// Price thresholds of the plan ladder, in whole currency units per month.
// These values mirror the billing catalog the storefront platform charges
// against and must not drift from it.
const (
	priceUnlimited = 99
	priceGrowth    = 49
)

// PlanInfo describes a purchasable tier as shown on the pricing surface.
// ViewCeiling is display metadata only; lock decisions come from Evaluate.
type PlanInfo struct {
	Plan        Plan
	Name        string
	Price       float64 // monthly price in whole currency units
	ViewCeiling int64   // -1 means unlimited
}

// Catalog lists the purchasable plans in ascending price order.
func Catalog() []PlanInfo {
	return []PlanInfo{
		{Plan: PlanStarter, Name: "Starter", Price: 19, ViewCeiling: 5000},
		{Plan: PlanGrowth, Name: "Growth", Price: 49, ViewCeiling: 50000},
		{Plan: PlanUnlimited, Name: "Unlimited", Price: 99, ViewCeiling: Unlimited},
	}
}

// PlanFromPrice derives the tier from the charged monthly price.
// The thresholds form a fixed ladder: anything at or above the unlimited
// price maps to unlimited, then growth, and everything else to starter.
func PlanFromPrice(price float64) Plan {
	switch {
	case price >= priceUnlimited:
		return PlanUnlimited
	case price >= priceGrowth:
		return PlanGrowth
	default:
		return PlanStarter
	}
}

// Valid reports whether p is one of the known plan values.
func (p Plan) Valid() bool {
	switch p {
	case PlanNone, PlanStarter, PlanGrowth, PlanUnlimited:
		return true
	}
	return false
}
