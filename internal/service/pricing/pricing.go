// internal/service/pricing/pricing.go
package pricing

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"paywall-service/internal/domain/entitlement"
	xerrors "paywall-service/internal/pkg/errors"
)

// Recognized duration codes. Anything else prices and expires as one month.
const (
	Duration1M  = "1M"
	Duration3M  = "3M"
	Duration6M  = "6M"
	Duration12M = "12M"
)

var recognizedDurations = []string{Duration1M, Duration3M, Duration6M, Duration12M}

// MonthsFor maps a duration code to its length in months.
func MonthsFor(duration string) int {
	switch normalizeDuration(duration) {
	case Duration1M:
		return 1
	case Duration3M:
		return 3
	case Duration6M:
		return 6
	case Duration12M:
		return 12
	default:
		return 1
	}
}

func normalizeDuration(duration string) string {
	return strings.ToUpper(strings.TrimSpace(duration))
}

// Config holds base prices in paise and the discount percent per duration code.
type Config struct {
	PerBlogPaise           int64          `env:"PER_BLOG_PAISE" envDefault:"4900"`
	SubsectionMonthlyPaise int64          `env:"SUBSECTION_MONTHLY_PAISE" envDefault:"19900"`
	SectionMonthlyPaise    int64          `env:"SECTION_MONTHLY_PAISE" envDefault:"49900"`
	AllAccessMonthlyPaise  int64          `env:"ALL_ACCESS_MONTHLY_PAISE" envDefault:"99900"`
	DurationDiscounts      map[string]int `env:"DURATION_DISCOUNTS" envDefault:"1M:0,3M:20,6M:35,12M:50"`
}

// DefaultConfig returns the stock price list.
func DefaultConfig() Config {
	return Config{
		PerBlogPaise:           4900,
		SubsectionMonthlyPaise: 19900,
		SectionMonthlyPaise:    49900,
		AllAccessMonthlyPaise:  99900,
		DurationDiscounts: map[string]int{
			Duration1M:  0,
			Duration3M:  20,
			Duration6M:  35,
			Duration12M: 50,
		},
	}
}

// Engine prices plans from a Config fixed at construction.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and keeps a private copy of it.
func NewEngine(cfg Config) (*Engine, error) {
	for name, v := range map[string]int64{
		"per blog":           cfg.PerBlogPaise,
		"subsection monthly": cfg.SubsectionMonthlyPaise,
		"section monthly":    cfg.SectionMonthlyPaise,
		"all access monthly": cfg.AllAccessMonthlyPaise,
	} {
		if v < 0 {
			return nil, fmt.Errorf("pricing: %s price must not be negative, got %d", name, v)
		}
	}

	discounts := make(map[string]int, len(cfg.DurationDiscounts))
	for code, pct := range cfg.DurationDiscounts {
		if pct < 0 || pct > 100 {
			return nil, fmt.Errorf("pricing: discount for %s must be within 0..100, got %d", code, pct)
		}
		discounts[normalizeDuration(code)] = pct
	}
	cfg.DurationDiscounts = discounts

	return &Engine{cfg: cfg}, nil
}

// BasePrice returns the configured base for a plan: the flat price for
// PER_BLOG and the monthly price for subscriptions.
func (e *Engine) BasePrice(planType entitlement.PlanType) (int64, error) {
	switch planType {
	case entitlement.PlanPerBlog:
		return e.cfg.PerBlogPaise, nil
	case entitlement.PlanSubscriptionSubsection:
		return e.cfg.SubsectionMonthlyPaise, nil
	case entitlement.PlanSubscriptionSection:
		return e.cfg.SectionMonthlyPaise, nil
	case entitlement.PlanSubscriptionAll:
		return e.cfg.AllAccessMonthlyPaise, nil
	default:
		return 0, xerrors.Invalid("unknown plan type %q", planType)
	}
}

// DiscountPercent returns the configured discount for a duration code, 0 if absent.
func (e *Engine) DiscountPercent(duration string) int {
	return e.cfg.DurationDiscounts[normalizeDuration(duration)]
}

// CalculatePrice returns the amount in paise for a plan bought for duration.
// Single posts ignore duration.
func (e *Engine) CalculatePrice(planType entitlement.PlanType, duration string) (int64, error) {
	base, err := e.BasePrice(planType)
	if err != nil {
		return 0, err
	}
	if planType == entitlement.PlanPerBlog {
		return base, nil
	}
	return discounted(base*int64(MonthsFor(duration)), e.DiscountPercent(duration)), nil
}

func discounted(total int64, pct int) int64 {
	return total - total*int64(pct)/100
}

// Table is the public price list.
type Table struct {
	Currency      string              `json:"currency"`
	PerBlogPaise  int64               `json:"per_blog_paise"`
	Subscriptions []SubscriptionPrice `json:"subscriptions"`
}

type SubscriptionPrice struct {
	PlanType     entitlement.PlanType `json:"plan_type"`
	MonthlyPaise int64                `json:"monthly_paise"`
	Durations    []DurationPrice      `json:"durations"`
}

type DurationPrice struct {
	Duration              string `json:"duration"`
	Months                int    `json:"months"`
	DiscountPercent       int    `json:"discount_percent"`
	TotalPaise            int64  `json:"total_paise"`
	EffectiveMonthlyPaise int64  `json:"effective_monthly_paise"`
}

// Table lists every subscription plan priced for every configured duration,
// recognized codes first.
func (e *Engine) Table(currency string) Table {
	codes := slices.Clone(recognizedDurations)
	for _, code := range slices.Sorted(maps.Keys(e.cfg.DurationDiscounts)) {
		if !slices.Contains(codes, code) {
			codes = append(codes, code)
		}
	}

	t := Table{Currency: currency, PerBlogPaise: e.cfg.PerBlogPaise}
	for _, planType := range []entitlement.PlanType{
		entitlement.PlanSubscriptionSubsection,
		entitlement.PlanSubscriptionSection,
		entitlement.PlanSubscriptionAll,
	} {
		monthly, _ := e.BasePrice(planType)
		sp := SubscriptionPrice{PlanType: planType, MonthlyPaise: monthly}
		for _, code := range codes {
			months := MonthsFor(code)
			total, _ := e.CalculatePrice(planType, code)
			sp.Durations = append(sp.Durations, DurationPrice{
				Duration:              code,
				Months:                months,
				DiscountPercent:       e.DiscountPercent(code),
				TotalPaise:            total,
				EffectiveMonthlyPaise: total / int64(months),
			})
		}
		t.Subscriptions = append(t.Subscriptions, sp)
	}
	return t
}
