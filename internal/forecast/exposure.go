package forecast

import (
	"sort"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
)

const daysPerYear = 365.25

// BuildExposures derives one exposure per product from active policies and
// claims. Products with claims but no active policy get zero premium.
// Claims without any product reference are not attributed to a product.
func BuildExposures(policies []domain.ActivePolicy, claims []domain.ClaimRecord, yearly []domain.YearlyAggregate, now time.Time) []domain.ProductExposure {
	now = Day(now)
	byKey := make(map[string]*domain.ProductExposure)
	starts := make(map[string]*time.Time)

	get := func(key, id, name string) *domain.ProductExposure {
		e, ok := byKey[key]
		if !ok {
			e = &domain.ProductExposure{ProductID: id, Product: name}
			byKey[key] = e
		}
		if e.Product == "" {
			e.Product = name
		}
		return e
	}

	for _, p := range policies {
		key := p.ProductKey()
		if key == "" {
			continue
		}
		e := get(key, productID(p.ProductID, key), p.Product)
		e.AnnualPremium += p.AnnualPremium
		e.Active = true
		if p.StartDate != nil && (starts[key] == nil || p.StartDate.Before(*starts[key])) {
			starts[key] = p.StartDate
		}
	}

	for _, c := range claims {
		key := c.ProductKey()
		if key == "" {
			continue
		}
		e := get(key, productID(c.ProductID, key), c.Product)
		e.ClaimCount++
		e.ClaimCost += c.TotalCost
	}

	fallbackYears := aggregateSpanYears(yearly, now)
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.ProductExposure, 0, len(keys))
	for _, k := range keys {
		e := *byKey[k]
		years := fallbackYears
		if start := starts[k]; start != nil {
			years = max(now.Sub(*start).Hours()/24/daysPerYear, 1.0/12)
		}
		e.EarnedPremium = e.AnnualPremium * years
		e.LossRatio = domain.LossRatioOf(e.ClaimCost, e.EarnedPremium)
		out = append(out, e)
	}
	return out
}

// MergeExposures completes caller-supplied exposures with claim statistics
// they are missing. Supplied figures always win.
func MergeExposures(supplied []domain.ProductExposure, claims []domain.ClaimRecord) []domain.ProductExposure {
	counts := make(map[string]int)
	costs := make(map[string]float64)
	for _, c := range claims {
		counts[c.ProductKey()]++
		costs[c.ProductKey()] += c.TotalCost
	}

	out := make([]domain.ProductExposure, 0, len(supplied))
	for _, e := range supplied {
		if e.Key() == "" {
			continue
		}
		if e.ClaimCount == 0 && e.ClaimCost == 0 {
			e.ClaimCount = counts[e.Key()]
			e.ClaimCost = costs[e.Key()]
		}
		if e.EarnedPremium <= 0 {
			e.EarnedPremium = e.AnnualPremium
		}
		if e.LossRatio <= 0 || !finite(e.LossRatio) {
			e.LossRatio = domain.LossRatioOf(e.ClaimCost, e.EarnedPremium)
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// aggregateSpanYears is the exposure length implied by the yearly
// aggregates, with the current year counted pro rata. At least one month.
func aggregateSpanYears(yearly []domain.YearlyAggregate, now time.Time) float64 {
	if len(yearly) == 0 {
		return 1
	}
	first, last := yearly[0].Year, yearly[0].Year
	for _, y := range yearly {
		first = min(first, y.Year)
		last = max(last, y.Year)
	}
	span := float64(last - first + 1)
	if last == now.Year() {
		span = float64(last-first) + float64(now.Month())/12
	}
	return max(span, 1.0/12)
}

func productID(id, key string) string {
	if id != "" {
		return id
	}
	return key
}
