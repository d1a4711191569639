package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Lead source labels as they arrive from the ingestion collaborator.
const (
	LeadSourceCanvassingSalesman = "Canvassing - Salesman"
	LeadSourceCanvassingCompany  = "Canvassing - Company"
	LeadSourceAffiliate          = "Affiliate"
	LeadSourceReferral           = "Referral"
)

// SalesmanRate is a percentage of the effective price with an optional flat deduction.
type SalesmanRate struct {
	Rate      float64 `mapstructure:"rate"`
	Deduction float64 `mapstructure:"deduction"`
}

// RateTable maps lead sources to rates, with a fallback for unlisted sources.
type RateTable struct {
	BySource map[string]SalesmanRate `mapstructure:"bySource"`
	Default  SalesmanRate            `mapstructure:"default"`
}

// Lookup returns the rate for a lead source, falling back to the default.
func (t RateTable) Lookup(leadSource string) SalesmanRate {
	if rate, ok := t.BySource[leadSource]; ok {
		return rate
	}
	return t.Default
}

// SalesmanPlan holds the tenure-tiered salesman rate tables.
// Tenure strictly below JuniorBelowMonths is junior; strictly above
// SeniorAboveMonths is senior; everything between is mid.
type SalesmanPlan struct {
	MarginBonusRate   float64   `mapstructure:"marginBonusRate"`
	JuniorBelowMonths int       `mapstructure:"juniorBelowMonths"`
	SeniorAboveMonths int       `mapstructure:"seniorAboveMonths"`
	Junior            RateTable `mapstructure:"junior"`
	Mid               RateTable `mapstructure:"mid"`
	Senior            RateTable `mapstructure:"senior"`
}

// TableForTenure selects the rate table for a tenure in whole months.
func (p SalesmanPlan) TableForTenure(months int) RateTable {
	switch {
	case months < p.JuniorBelowMonths:
		return p.Junior
	case months <= p.SeniorAboveMonths:
		return p.Mid
	default:
		return p.Senior
	}
}

type AffiliatePlan struct {
	Rate float64 `mapstructure:"rate"`
	Cap  float64 `mapstructure:"cap"`
}

type SupplementerPlan struct {
	AppraisalRate float64 `mapstructure:"appraisalRate"`
	StandardRate  float64 `mapstructure:"standardRate"`
	Floor         float64 `mapstructure:"floor"`
}

type SupplementManagerPlan struct {
	SelfAppraisalRate     float64 `mapstructure:"selfAppraisalRate"`
	SelfStandardRate      float64 `mapstructure:"selfStandardRate"`
	SelfFloor             float64 `mapstructure:"selfFloor"`
	OverrideAppraisalRate float64 `mapstructure:"overrideAppraisalRate"`
	OverrideStandardRate  float64 `mapstructure:"overrideStandardRate"`
	OverrideFloor         float64 `mapstructure:"overrideFloor"`
}

// ManagerOverridePlan pays the sales manager on a teammate's job, keyed by
// the teammate's tenure at the job's creation date (both bounds inclusive).
type ManagerOverridePlan struct {
	JuniorMaxMonths int     `mapstructure:"juniorMaxMonths"`
	MidMaxMonths    int     `mapstructure:"midMaxMonths"`
	JuniorRate      float64 `mapstructure:"juniorRate"`
	MidRate         float64 `mapstructure:"midRate"`
	SeniorRate      float64 `mapstructure:"seniorRate"`
}

// RateForTenure selects the override rate for a teammate tenure in whole months.
func (p ManagerOverridePlan) RateForTenure(months int) float64 {
	switch {
	case months <= p.JuniorMaxMonths:
		return p.JuniorRate
	case months <= p.MidMaxMonths:
		return p.MidRate
	default:
		return p.SeniorRate
	}
}

// CommissionPlan is the full set of rate tables the formula engine runs on.
type CommissionPlan struct {
	Salesman          SalesmanPlan          `mapstructure:"salesman"`
	Affiliate         AffiliatePlan         `mapstructure:"affiliate"`
	Supplementer      SupplementerPlan      `mapstructure:"supplementer"`
	SupplementManager SupplementManagerPlan `mapstructure:"supplementManager"`
	ManagerOverride   ManagerOverridePlan   `mapstructure:"managerOverride"`
}

func DefaultCommissionPlan() CommissionPlan {
	return CommissionPlan{
		Salesman: SalesmanPlan{
			MarginBonusRate:   0.04,
			JuniorBelowMonths: 6,
			SeniorAboveMonths: 12,
			Junior: RateTable{
				BySource: map[string]SalesmanRate{
					LeadSourceCanvassingSalesman: {Rate: 0.10},
					LeadSourceCanvassingCompany:  {Rate: 0.08, Deduction: 300},
					LeadSourceAffiliate:          {Rate: 0.06},
					LeadSourceReferral:           {Rate: 0.10},
				},
				Default: SalesmanRate{Rate: 0.08},
			},
			Mid: RateTable{
				BySource: map[string]SalesmanRate{
					LeadSourceCanvassingSalesman: {Rate: 0.13},
					LeadSourceCanvassingCompany:  {Rate: 0.10, Deduction: 300},
					LeadSourceAffiliate:          {Rate: 0.08},
					LeadSourceReferral:           {Rate: 0.10},
				},
				Default: SalesmanRate{Rate: 0.10},
			},
			Senior: RateTable{
				BySource: map[string]SalesmanRate{
					LeadSourceCanvassingSalesman: {Rate: 0.15},
					LeadSourceCanvassingCompany:  {Rate: 0.12, Deduction: 300},
					LeadSourceAffiliate:          {Rate: 0.10},
					LeadSourceReferral:           {Rate: 0.12},
				},
				Default: SalesmanRate{Rate: 0.12},
			},
		},
		Affiliate: AffiliatePlan{Rate: 0.05, Cap: 750},
		Supplementer: SupplementerPlan{
			AppraisalRate: 0.06,
			StandardRate:  0.07,
			Floor:         300,
		},
		SupplementManager: SupplementManagerPlan{
			SelfAppraisalRate:     0.08,
			SelfStandardRate:      0.10,
			SelfFloor:             500,
			OverrideAppraisalRate: 0.02,
			OverrideStandardRate:  0.03,
			OverrideFloor:         200,
		},
		ManagerOverride: ManagerOverridePlan{
			JuniorMaxMonths: 6,
			MidMaxMonths:    12,
			JuniorRate:      0.04,
			MidRate:         0.02,
			SeniorRate:      0.03,
		},
	}
}

// PlanHolder hands out the active commission plan and hot-reloads it when
// the commission.yml file changes. A bad file keeps the previous plan active.
type PlanHolder struct {
	current atomic.Value // holds CommissionPlan
}

func NewPlanHolder() (*PlanHolder, error) {
	v := viper.New()

	v.SetConfigName("commission")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/crewpay/config")
	v.AddConfigPath("/etc/crewpay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CREWPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &PlanHolder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(DefaultCommissionPlan())
		return holder, nil
	}

	plan, err := decodePlan(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(plan)

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		reloaded, err := decodePlan(v)
		if err != nil {
			log.Printf("commission plan reload rejected: %v", err)
			return
		}
		holder.current.Store(reloaded)
	})

	return holder, nil
}

// NewStaticPlanHolder returns a holder pinned to the given plan. Used by tests
// and by callers that manage plan lifecycle themselves.
func NewStaticPlanHolder(plan CommissionPlan) *PlanHolder {
	holder := &PlanHolder{}
	holder.current.Store(plan)
	return holder
}

// Current returns the active commission plan.
func (h *PlanHolder) Current() CommissionPlan {
	return h.current.Load().(CommissionPlan)
}

func decodePlan(v *viper.Viper) (CommissionPlan, error) {
	plan := DefaultCommissionPlan()
	if err := v.UnmarshalKey("commission", &plan); err != nil {
		return CommissionPlan{}, err
	}
	if err := ValidateCommissionPlan(plan); err != nil {
		return CommissionPlan{}, err
	}
	return plan, nil
}

// ValidateCommissionPlan rejects plans with out-of-range rates or
// misordered tenure boundaries.
func ValidateCommissionPlan(plan CommissionPlan) error {
	rates := []float64{
		plan.Salesman.MarginBonusRate,
		plan.Affiliate.Rate,
		plan.Supplementer.AppraisalRate,
		plan.Supplementer.StandardRate,
		plan.SupplementManager.SelfAppraisalRate,
		plan.SupplementManager.SelfStandardRate,
		plan.SupplementManager.OverrideAppraisalRate,
		plan.SupplementManager.OverrideStandardRate,
		plan.ManagerOverride.JuniorRate,
		plan.ManagerOverride.MidRate,
		plan.ManagerOverride.SeniorRate,
	}
	for _, table := range []RateTable{
		plan.Salesman.Junior, plan.Salesman.Mid, plan.Salesman.Senior,
	} {
		rates = append(rates, table.Default.Rate)
		for _, rate := range table.BySource {
			rates = append(rates, rate.Rate)
		}
	}
	for _, rate := range rates {
		if rate < 0 || rate > 1 {
			return errors.New("commission plan: rate out of range [0,1]")
		}
	}

	if plan.Affiliate.Cap < 0 ||
		plan.Supplementer.Floor < 0 ||
		plan.SupplementManager.SelfFloor < 0 ||
		plan.SupplementManager.OverrideFloor < 0 {
		return errors.New("commission plan: negative cap or floor")
	}

	if plan.Salesman.JuniorBelowMonths <= 0 ||
		plan.Salesman.SeniorAboveMonths < plan.Salesman.JuniorBelowMonths {
		return errors.New("commission plan: misordered salesman tenure boundaries")
	}
	if plan.ManagerOverride.JuniorMaxMonths <= 0 ||
		plan.ManagerOverride.MidMaxMonths < plan.ManagerOverride.JuniorMaxMonths {
		return errors.New("commission plan: misordered override tenure boundaries")
	}
	return nil
}
