package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCommissionPlanValidates(t *testing.T) {
	require.NoError(t, ValidateCommissionPlan(DefaultCommissionPlan()))
}

func TestSalesmanPlan_TableForTenure(t *testing.T) {
	plan := DefaultCommissionPlan().Salesman

	junior := plan.TableForTenure(5)
	mid := plan.TableForTenure(6)
	midUpper := plan.TableForTenure(12)
	senior := plan.TableForTenure(13)

	assert.Equal(t, 0.10, junior.Lookup(LeadSourceCanvassingSalesman).Rate)
	assert.Equal(t, 0.13, mid.Lookup(LeadSourceCanvassingSalesman).Rate)
	assert.Equal(t, 0.13, midUpper.Lookup(LeadSourceCanvassingSalesman).Rate)
	assert.Equal(t, 0.15, senior.Lookup(LeadSourceCanvassingSalesman).Rate)
}

func TestRateTable_LookupFallsBackToDefault(t *testing.T) {
	table := DefaultCommissionPlan().Salesman.Junior
	assert.Equal(t, 0.08, table.Lookup("Door Hanger").Rate)
}

func TestManagerOverride_RateForTenure(t *testing.T) {
	plan := DefaultCommissionPlan().ManagerOverride

	assert.Equal(t, 0.04, plan.RateForTenure(0))
	assert.Equal(t, 0.04, plan.RateForTenure(6))
	assert.Equal(t, 0.02, plan.RateForTenure(7))
	assert.Equal(t, 0.02, plan.RateForTenure(12))
	assert.Equal(t, 0.03, plan.RateForTenure(13))
}

func TestValidateCommissionPlan_RejectsBadPlans(t *testing.T) {
	overRate := DefaultCommissionPlan()
	overRate.Affiliate.Rate = 1.5
	assert.Error(t, ValidateCommissionPlan(overRate))

	negativeFloor := DefaultCommissionPlan()
	negativeFloor.Supplementer.Floor = -1
	assert.Error(t, ValidateCommissionPlan(negativeFloor))

	misordered := DefaultCommissionPlan()
	misordered.Salesman.SeniorAboveMonths = 3
	assert.Error(t, ValidateCommissionPlan(misordered))

	misorderedOverride := DefaultCommissionPlan()
	misorderedOverride.ManagerOverride.MidMaxMonths = 2
	assert.Error(t, ValidateCommissionPlan(misorderedOverride))
}

func TestStaticPlanHolder(t *testing.T) {
	plan := DefaultCommissionPlan()
	plan.Affiliate.Cap = 1234

	holder := NewStaticPlanHolder(plan)
	assert.Equal(t, 1234.0, holder.Current().Affiliate.Cap)
}
