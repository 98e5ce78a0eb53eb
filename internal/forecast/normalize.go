package forecast

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
)

// Normalized is the canonical view of one customer's raw history.
type Normalized struct {
	Claims   []domain.ClaimRecord
	Yearly   []domain.YearlyAggregate
	Policies []domain.ActivePolicy
	Warnings []domain.DataQualityWarning

	SkippedClaims   int
	SynthesizedYear bool
}

// CompletedYears returns the aggregates for calendar years before now.
func (n Normalized) CompletedYears(now time.Time) []domain.YearlyAggregate {
	return completedYears(n.Yearly, now)
}

// Normalize reshapes raw customer data into sorted claim and year records.
// Malformed records are skipped one by one and reported as warnings.
func Normalize(profile *domain.CustomerProfile, now time.Time) Normalized {
	now = Day(now)
	var out Normalized
	if profile == nil {
		return out
	}

	out.Claims, out.Warnings = normalizeClaims(profile.Claims, now)
	out.SkippedClaims = len(profile.Claims) - len(out.Claims)

	policies, warns := normalizePolicies(profile.Policies, now)
	out.Policies = policies
	out.Warnings = append(out.Warnings, warns...)

	yearly, warns := normalizeYearly(profile.Yearly, now)
	out.Warnings = append(out.Warnings, warns...)

	if current, ok := synthesizeCurrentYear(yearly, out.Claims, out.Policies, now); ok {
		yearly = append(yearly, current)
		out.SynthesizedYear = true
	}
	sort.Slice(yearly, func(i, j int) bool { return yearly[i].Year < yearly[j].Year })
	out.Yearly = yearly

	return out
}

func normalizeClaims(raw []domain.RawClaim, now time.Time) ([]domain.ClaimRecord, []domain.DataQualityWarning) {
	claims := make([]domain.ClaimRecord, 0, len(raw))
	var warns []domain.DataQualityWarning

	for i, rc := range raw {
		date, ok := ParseDate(rc.Date)
		if !ok {
			warns = append(warns, warning(domain.WarnUnparseableDate, "claim", i, rc.ID,
				fmt.Sprintf("claim date %v could not be parsed", rc.Date)))
			continue
		}
		if date.After(now) {
			warns = append(warns, warning(domain.WarnFutureDate, "claim", i, rc.ID,
				fmt.Sprintf("claim dated %s is after %s", date.Format(time.DateOnly), now.Format(time.DateOnly))))
			continue
		}

		cost, code := amountValue(rc.TotalCost)
		if code != "" {
			warns = append(warns, warning(code, "claim", i, rc.ID,
				fmt.Sprintf("claim cost %q is not a usable amount", rc.TotalCost.String())))
			continue
		}

		claim := domain.ClaimRecord{
			ID:        rc.ID,
			Date:      date,
			TotalCost: cost,
			ProductID: strings.TrimSpace(rc.ProductID),
			Product:   strings.TrimSpace(rc.Product),
			Open:      isOpen(rc),
		}
		if rc.Reserve != nil {
			if reserve, code := amountValue(*rc.Reserve); code == "" {
				claim.Reserve = &reserve
			}
		}
		claims = append(claims, claim)
	}

	sort.SliceStable(claims, func(i, j int) bool {
		if !claims[i].Date.Equal(claims[j].Date) {
			return claims[i].Date.Before(claims[j].Date)
		}
		return claims[i].ID < claims[j].ID
	})

	for i := 1; i < len(claims); i++ {
		if claims[i].Date.Equal(claims[i-1].Date) {
			warns = append(warns, warning(domain.WarnDuplicateInterval, "claim", i, claims[i].ID,
				fmt.Sprintf("another claim is dated %s; the zero-day gap is ignored", claims[i].Date.Format(time.DateOnly))))
		}
	}

	return claims, warns
}

func isOpen(rc domain.RawClaim) bool {
	if rc.Open != nil {
		return *rc.Open
	}
	switch strings.ToLower(strings.TrimSpace(rc.Status)) {
	case "open", "reopened", "pending", "in-progress":
		return true
	}
	return false
}

func normalizePolicies(raw []domain.RawPolicy, now time.Time) ([]domain.ActivePolicy, []domain.DataQualityWarning) {
	var policies []domain.ActivePolicy
	var warns []domain.DataQualityWarning

	for i, rp := range raw {
		switch strings.ToLower(strings.TrimSpace(rp.Status)) {
		case "", "active", "in-force", "inforce":
		default:
			continue
		}
		if end, ok := ParseDate(rp.EndDate); ok && end.Before(now) {
			continue
		}

		premium, code := amountValue(rp.AnnualPremium)
		if code != "" {
			warns = append(warns, warning(code, "policy", i, rp.ID,
				fmt.Sprintf("annual premium %q is not a usable amount", rp.AnnualPremium.String())))
			continue
		}

		policy := domain.ActivePolicy{
			ID:            rp.ID,
			ProductID:     strings.TrimSpace(rp.ProductID),
			Product:       strings.TrimSpace(rp.Product),
			AnnualPremium: premium,
		}
		if start, ok := ParseDate(rp.StartDate); ok && !start.After(now) {
			policy.StartDate = &start
		}
		policies = append(policies, policy)
	}

	return policies, warns
}

func normalizeYearly(raw []domain.RawYearlyAggregate, now time.Time) ([]domain.YearlyAggregate, []domain.DataQualityWarning) {
	var yearly []domain.YearlyAggregate
	var warns []domain.DataQualityWarning
	seen := make(map[int]bool, len(raw))

	for i, ry := range raw {
		switch {
		case ry.Year < minYear:
			warns = append(warns, warning(domain.WarnInvalidYear, "yearly", i, strconv.Itoa(ry.Year),
				fmt.Sprintf("year %d is not a valid calendar year", ry.Year)))
			continue
		case ry.Year > now.Year():
			warns = append(warns, warning(domain.WarnFutureYear, "yearly", i, strconv.Itoa(ry.Year),
				fmt.Sprintf("year %d is after the current year", ry.Year)))
			continue
		case seen[ry.Year]:
			warns = append(warns, warning(domain.WarnDuplicateYear, "yearly", i, strconv.Itoa(ry.Year),
				fmt.Sprintf("year %d appears more than once; the first entry is kept", ry.Year)))
			continue
		}

		premium, code := amountValue(ry.Premium)
		if code != "" {
			warns = append(warns, warning(code, "yearly", i, strconv.Itoa(ry.Year),
				fmt.Sprintf("premium %q for %d is not a usable amount", ry.Premium.String(), ry.Year)))
			continue
		}
		cost, code := amountValue(ry.ClaimCost)
		if code != "" {
			warns = append(warns, warning(code, "yearly", i, strconv.Itoa(ry.Year),
				fmt.Sprintf("claim cost %q for %d is not a usable amount", ry.ClaimCost.String(), ry.Year)))
			continue
		}
		seen[ry.Year] = true

		agg := domain.YearlyAggregate{
			Year:           ry.Year,
			Premium:        premium,
			ClaimCost:      cost,
			ClaimCount:     max(ry.ClaimCount, 0),
			OpenClaimCount: max(ry.OpenClaimCount, 0),
			ActiveProducts: max(ry.ActiveProducts, 0),
		}
		if ry.LossRatio != nil && finite(*ry.LossRatio) && *ry.LossRatio >= 0 {
			agg.LossRatio = *ry.LossRatio
		} else {
			agg.LossRatio = domain.LossRatioOf(cost, premium)
		}
		if premium == 0 && cost > 0 && ry.LossRatio == nil {
			warns = append(warns, warning(domain.WarnZeroPremium, "yearly", i, strconv.Itoa(ry.Year),
				fmt.Sprintf("year %d has claim cost but no premium; loss ratio reported as 0", ry.Year)))
		}
		yearly = append(yearly, agg)
	}

	return yearly, warns
}

// synthesizeCurrentYear builds the in-progress year aggregate when the
// caller did not supply one and current-year claims exist.
func synthesizeCurrentYear(yearly []domain.YearlyAggregate, claims []domain.ClaimRecord, policies []domain.ActivePolicy, now time.Time) (domain.YearlyAggregate, bool) {
	year := now.Year()
	for _, y := range yearly {
		if y.Year == year {
			return domain.YearlyAggregate{}, false
		}
	}

	agg := domain.YearlyAggregate{Year: year, IsEstimated: true}
	for _, c := range claims {
		if c.Date.Year() != year {
			continue
		}
		agg.ClaimCount++
		agg.ClaimCost += c.TotalCost
		if c.Open {
			agg.OpenClaimCount++
		}
	}
	if agg.ClaimCount == 0 {
		return domain.YearlyAggregate{}, false
	}

	products := make(map[string]bool, len(policies))
	var annual float64
	for _, p := range policies {
		annual += p.AnnualPremium
		products[p.ProductKey()] = true
	}
	agg.Premium = annual * float64(now.Month()) / 12
	agg.ActiveProducts = len(products)
	agg.LossRatio = domain.LossRatioOf(agg.ClaimCost, agg.Premium)

	return agg, true
}

func completedYears(yearly []domain.YearlyAggregate, now time.Time) []domain.YearlyAggregate {
	var out []domain.YearlyAggregate
	for _, y := range yearly {
		if y.Year < now.Year() && !y.IsEstimated {
			out = append(out, y)
		}
	}
	return out
}

// amountValue returns the float value of a, or a warning code when a is
// unreadable or negative.
func amountValue(a domain.Amount) (float64, string) {
	v, ok := a.Float()
	if !ok || !finite(v) {
		return 0, domain.WarnInvalidAmount
	}
	if v < 0 {
		return 0, domain.WarnNegativeAmount
	}
	return v, ""
}

func warning(code, record string, index int, id, msg string) domain.DataQualityWarning {
	return domain.DataQualityWarning{
		Code:    code,
		Record:  record,
		Index:   index,
		ID:      id,
		Message: msg,
	}
}
