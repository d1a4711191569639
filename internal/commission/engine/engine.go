// Package engine computes a single commission amount for one (user, job)
// pair. It is pure: all historical context arrives through Input, nothing is
// fetched, and the same input always yields the same amount.
package engine

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crewpay/internal/config"
	jobdomain "github.com/smallbiznis/crewpay/internal/job/domain"
	teamdomain "github.com/smallbiznis/crewpay/internal/team/domain"
	userdomain "github.com/smallbiznis/crewpay/internal/user/domain"
)

// Warning codes for data-quality conditions the engine resolves to zero.
const (
	WarnUnknownRole     = "unknown_role"
	WarnNoMembership    = "no_membership"
	WarnNoTeammate      = "teammate_not_on_team"
	WarnNegativeCoerced = "negative_amount_coerced"
)

// Input carries everything the formula needs. Team is the user's historical
// membership context as of the job's creation date; nil means the user had
// no team at that date.
type Input struct {
	User userdomain.User
	Job  jobdomain.Job
	Team *teamdomain.Context
	Plan config.CommissionPlan
}

// Outcome is the computed amount (rounded to cents, never negative) plus
// any data-quality warnings raised along the way.
type Outcome struct {
	Amount   decimal.Decimal
	Warnings []string
}

// Compute resolves the commission for one (user, job) pair.
func Compute(in Input) Outcome {
	out := Outcome{Amount: decimal.Zero}

	job := in.Job
	total := job.TotalJobPrice
	initial := job.InitialScopePrice

	// A job with no economics pays nobody, floors notwithstanding.
	if total.IsZero() && initial.IsZero() {
		return out
	}

	marginAdded := total.Sub(initial)
	effectivePrice := initial
	if initial.IsZero() {
		// Retail jobs carry no separate scope price.
		effectivePrice = total
	}

	tenure := TenureMonths(in.User.HireDate, job.CreatedDate)
	createdBeforeHire := in.User.HireDate != nil && job.CreatedDate.Before(*in.User.HireDate)
	// A manager with no historical claim to a job that predates their
	// tenure earns nothing for it.
	skipOverride := createdBeforeHire && !job.AssignedTo(in.User.ID)

	// Role values arrive as free text from the user store; normalize before
	// dispatch so anything outside the closed set lands in the unknown branch.
	var amount decimal.Decimal
	switch userdomain.ParseRole(string(in.User.Role)) {
	case userdomain.RoleAffiliateMarketer:
		amount = affiliateAmount(total, in.Plan.Affiliate)

	case userdomain.RoleSalesman:
		amount = salesmanAmount(job, effectivePrice, marginAdded, tenure, in.Plan.Salesman)

	case userdomain.RoleSalesManager:
		if skipOverride {
			return out
		}
		amount = salesManagerAmount(&out, in, total)

	case userdomain.RoleSupplementManager:
		if skipOverride {
			return out
		}
		amount = supplementManagerAmount(&out, in, marginAdded)

	case userdomain.RoleSupplementer:
		rate := in.Plan.Supplementer.StandardRate
		if job.GoingToAppraisal {
			rate = in.Plan.Supplementer.AppraisalRate
		}
		amount = floorAt(marginAdded.Mul(dec(rate)), in.Plan.Supplementer.Floor)

	default:
		out.Warnings = append(out.Warnings, WarnUnknownRole)
		return out
	}

	if amount.IsNegative() {
		out.Warnings = append(out.Warnings, WarnNegativeCoerced)
		return out
	}
	out.Amount = amount.Round(2)
	return out
}

func affiliateAmount(total decimal.Decimal, plan config.AffiliatePlan) decimal.Decimal {
	amount := total.Mul(dec(plan.Rate))
	cap := dec(plan.Cap)
	if amount.GreaterThan(cap) {
		return cap
	}
	return amount
}

func salesmanAmount(job jobdomain.Job, effectivePrice, marginAdded decimal.Decimal, tenure int, plan config.SalesmanPlan) decimal.Decimal {
	rate := plan.TableForTenure(tenure).Lookup(job.LeadSource)
	inScope := effectivePrice.Mul(dec(rate.Rate)).Sub(dec(rate.Deduction))

	// Margin bonus only when the job has both a scope price and a final
	// price; retail jobs have no margin to bonus.
	if !job.InitialScopePrice.IsZero() && !job.TotalJobPrice.IsZero() {
		inScope = inScope.Add(marginAdded.Mul(dec(plan.MarginBonusRate)))
	}
	return inScope
}

func salesManagerAmount(out *Outcome, in Input, total decimal.Decimal) decimal.Decimal {
	job := in.Job

	// Self-worked job: the manager sold it themselves and is paid the
	// senior salesman table on the full job price.
	if job.SalesmanID != nil && *job.SalesmanID == in.User.ID {
		rate := in.Plan.Salesman.Senior.Lookup(job.LeadSource)
		return total.Mul(dec(rate.Rate)).Sub(dec(rate.Deduction))
	}

	if job.SalesmanID == nil {
		return decimal.Zero
	}
	if in.Team == nil {
		out.Warnings = append(out.Warnings, WarnNoMembership)
		return decimal.Zero
	}
	teammate, ok := in.Team.Snapshot.Salesman(*job.SalesmanID)
	if !ok {
		out.Warnings = append(out.Warnings, WarnNoTeammate)
		return decimal.Zero
	}

	// Override percentage keys off the teammate's tenure at the job's
	// creation date, not the manager's.
	subTenure := TenureMonths(teammate.HireDate, job.CreatedDate)
	return total.Mul(dec(in.Plan.ManagerOverride.RateForTenure(subTenure)))
}

func supplementManagerAmount(out *Outcome, in Input, marginAdded decimal.Decimal) decimal.Decimal {
	job := in.Job
	plan := in.Plan.SupplementManager

	if job.SupplementerID != nil && *job.SupplementerID == in.User.ID {
		rate := plan.SelfStandardRate
		if job.GoingToAppraisal {
			rate = plan.SelfAppraisalRate
		}
		return floorAt(marginAdded.Mul(dec(rate)), plan.SelfFloor)
	}

	if job.SupplementerID == nil {
		return decimal.Zero
	}
	if in.Team == nil {
		out.Warnings = append(out.Warnings, WarnNoMembership)
		return decimal.Zero
	}
	if _, ok := in.Team.Snapshot.Supplementer(*job.SupplementerID); !ok {
		out.Warnings = append(out.Warnings, WarnNoTeammate)
		return decimal.Zero
	}

	rate := plan.OverrideStandardRate
	if job.GoingToAppraisal {
		rate = plan.OverrideAppraisalRate
	}
	return floorAt(marginAdded.Mul(dec(rate)), plan.OverrideFloor)
}

func floorAt(amount decimal.Decimal, floor float64) decimal.Decimal {
	f := dec(floor)
	if amount.LessThan(f) {
		return f
	}
	return amount
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
