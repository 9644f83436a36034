package drift

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultPSIFloor substitutes for a zero share inside the PSI log terms. The
// value is a convention carried over from production PSI usage; it is
// asymmetric near distributional boundaries and adjustable here if reported
// magnitudes need recalibrating.
const DefaultPSIFloor = 0.001

// DetectCategoricalDrift runs a chi-square test of independence on the 2xK
// contingency table built from two categorical samples, with the population
// stability index reported alongside. An empty table or an empty side is a
// degenerate no-drift fallback with a warning.
func DetectCategoricalDrift(reference, current []string, significanceLevel float64) FeatureDriftResult {
	refCounts := countLabels(reference)
	curCounts := countLabels(current)
	categories := unionCategories(refCounts, curCounts)

	refTotal := len(reference)
	curTotal := len(current)
	if refTotal == 0 || curTotal == 0 {
		return FeatureDriftResult{
			Outcome:       OutcomeDegenerate,
			Method:        MethodInsufficientData,
			DriftDetected: false,
			PValue:        1.0,
			TestStatistic: 0.0,
			Warning:       "Insufficient data for chi-square test",
		}
	}

	statistic, pValue := chiSquareIndependence(categories, refCounts, curCounts)
	psi := populationStabilityIndex(categories, refCounts, curCounts, refTotal, curTotal)

	return FeatureDriftResult{
		FeatureType:   Categorical.String(),
		Method:        MethodChiSquare,
		Outcome:       OutcomeOK,
		DriftDetected: pValue < significanceLevel,
		PValue:        pValue,
		TestStatistic: statistic,
		PSI:           psi,
	}
}

func countLabels(values []string) map[string]int {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	return counts
}

func unionCategories(ref, cur map[string]int) []string {
	seen := make(map[string]struct{}, len(ref)+len(cur))
	for c := range ref {
		seen[c] = struct{}{}
	}
	for c := range cur {
		seen[c] = struct{}{}
	}
	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

// chiSquareIndependence computes the chi-square statistic and p-value for the
// 2xK table of reference and current counts. Yates' continuity correction is
// applied for a single degree of freedom, matching the standard contingency
// test behavior. K < 2 leaves no degrees of freedom, so the p-value is 1.
func chiSquareIndependence(categories []string, refCounts, curCounts map[string]int) (statistic, pValue float64) {
	dof := len(categories) - 1
	if dof < 1 {
		return 0.0, 1.0
	}

	var refRow, curRow float64
	for _, c := range categories {
		refRow += float64(refCounts[c])
		curRow += float64(curCounts[c])
	}
	total := refRow + curRow
	yates := dof == 1

	for _, c := range categories {
		colSum := float64(refCounts[c] + curCounts[c])
		for _, cell := range [2]struct{ observed, rowSum float64 }{
			{float64(refCounts[c]), refRow},
			{float64(curCounts[c]), curRow},
		} {
			expected := cell.rowSum * colSum / total
			diff := math.Abs(cell.observed - expected)
			if yates {
				diff -= 0.5
				if diff < 0 {
					diff = 0
				}
			}
			statistic += diff * diff / expected
		}
	}

	pValue = distuv.ChiSquared{K: float64(dof)}.Survival(statistic)
	return statistic, pValue
}

// populationStabilityIndex accumulates (cur% - ref%) * ln(cur% / ref%) over
// the union of categories. A side with zero share contributes through the
// DefaultPSIFloor substitute instead, which keeps the sum finite.
func populationStabilityIndex(categories []string, refCounts, curCounts map[string]int, refTotal, curTotal int) float64 {
	var psi float64
	for _, c := range categories {
		refPct := float64(refCounts[c]) / float64(refTotal)
		curPct := float64(curCounts[c]) / float64(curTotal)
		switch {
		case refPct > 0 && curPct > 0:
			psi += (curPct - refPct) * math.Log(curPct/refPct)
		case refPct == 0 && curPct > 0:
			psi += curPct * math.Log(curPct/DefaultPSIFloor)
		case refPct > 0 && curPct == 0:
			psi += refPct * math.Log(refPct/DefaultPSIFloor)
		}
	}
	return psi
}
