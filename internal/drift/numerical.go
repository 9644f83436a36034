package drift

import (
	"math"
	"sort"
)

// DetectNumericalDrift runs the two-sample Kolmogorov-Smirnov test between a
// reference and a current numeric sample. Non-finite values are stripped from
// each side independently; if either side has no clean values left the result
// is a degenerate no-drift fallback with a warning. The Wasserstein distance
// and Jensen-Shannon divergence are reported alongside, but only the KS
// p-value drives the drift verdict.
func DetectNumericalDrift(reference, current []float64, significanceLevel float64) FeatureDriftResult {
	ref := cleanValues(reference)
	cur := cleanValues(current)

	if len(ref) == 0 || len(cur) == 0 {
		return FeatureDriftResult{
			Outcome:       OutcomeDegenerate,
			Method:        MethodInsufficientData,
			DriftDetected: false,
			PValue:        1.0,
			TestStatistic: 0.0,
			Warning:       "Insufficient clean data for testing",
		}
	}

	sort.Float64s(ref)
	sort.Float64s(cur)

	statistic := ksStatistic(ref, cur)
	pValue := ksPValue(statistic, len(ref), len(cur))

	return FeatureDriftResult{
		FeatureType:         Numerical.String(),
		Method:              MethodKSTest,
		Outcome:             OutcomeOK,
		DriftDetected:       pValue < significanceLevel,
		PValue:              pValue,
		TestStatistic:       statistic,
		WassersteinDistance: wassersteinDistance(ref, cur),
		JSDivergence:        jensenShannonDivergence(ref, cur),
	}
}

// cleanValues returns a copy of xs with NaN and infinite values removed.
func cleanValues(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ksStatistic computes the maximum absolute difference between the empirical
// CDFs of two sorted samples.
func ksStatistic(ref, cur []float64) float64 {
	n1 := float64(len(ref))
	n2 := float64(len(cur))
	var statistic float64
	i, j := 0, 0
	for i < len(ref) && j < len(cur) {
		v := ref[i]
		if cur[j] < v {
			v = cur[j]
		}
		for i < len(ref) && ref[i] == v {
			i++
		}
		for j < len(cur) && cur[j] == v {
			j++
		}
		diff := math.Abs(float64(i)/n1 - float64(j)/n2)
		if diff > statistic {
			statistic = diff
		}
	}
	return statistic
}

// ksPValue evaluates the asymptotic two-sample KS survival function at the
// observed statistic, with the small-sample effective-size correction.
func ksPValue(statistic float64, n1, n2 int) float64 {
	if statistic <= 0 {
		return 1.0
	}
	ne := float64(n1) * float64(n2) / float64(n1+n2)
	sqrtNe := math.Sqrt(ne)
	lambda := (sqrtNe + 0.12 + 0.11/sqrtNe) * statistic
	return ksSurvival(lambda)
}

// ksSurvival is the Kolmogorov distribution survival function
// Q(lambda) = 2 * sum_{j>=1} (-1)^{j-1} exp(-2 j^2 lambda^2).
func ksSurvival(lambda float64) float64 {
	if lambda < 0.2 {
		return 1.0
	}
	var sum float64
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := math.Exp(-2 * float64(j*j) * lambda * lambda)
		sum += sign * term
		if term < 1e-10 {
			break
		}
		sign = -sign
	}
	p := 2 * sum
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// wassersteinDistance computes the first Wasserstein (earth mover's) distance
// between two sorted samples by integrating |F1 - F2| over the merged value
// range.
func wassersteinDistance(ref, cur []float64) float64 {
	all := make([]float64, 0, len(ref)+len(cur))
	all = append(all, ref...)
	all = append(all, cur...)
	sort.Float64s(all)

	n1 := float64(len(ref))
	n2 := float64(len(cur))
	var distance float64
	i, j := 0, 0
	for k := 0; k < len(all)-1; k++ {
		v := all[k]
		for i < len(ref) && ref[i] <= v {
			i++
		}
		for j < len(cur) && cur[j] <= v {
			j++
		}
		distance += math.Abs(float64(i)/n1-float64(j)/n2) * (all[k+1] - v)
	}
	return distance
}

const (
	jsBins    = 50
	jsEpsilon = 1e-10
)

// jensenShannonDivergence computes the JS divergence between the histograms
// of two samples over 50 equal-width bins spanning their joint range. A
// single-point joint range yields 0.
func jensenShannonDivergence(p, q []float64) float64 {
	minVal := math.Min(p[0], q[0])
	maxVal := math.Max(p[len(p)-1], q[len(q)-1])
	if minVal == maxVal {
		return 0.0
	}

	width := (maxVal - minVal) / jsBins
	pHist := histogram(p, minVal, width)
	qHist := histogram(q, minVal, width)

	m := make([]float64, jsBins)
	for k := range m {
		m[k] = 0.5 * (pHist[k] + qHist[k])
	}
	return 0.5*klDivergence(pHist, m) + 0.5*klDivergence(qHist, m)
}

// histogram bins a sample into jsBins probability masses, adding a small
// epsilon to every bin before renormalizing so no bin is empty.
func histogram(xs []float64, minVal, width float64) []float64 {
	h := make([]float64, jsBins)
	for _, v := range xs {
		idx := int((v - minVal) / width)
		if idx >= jsBins {
			idx = jsBins - 1
		}
		if idx < 0 {
			idx = 0
		}
		h[idx]++
	}
	total := float64(len(xs))
	var sum float64
	for k := range h {
		h[k] = h[k]/total + jsEpsilon
		sum += h[k]
	}
	for k := range h {
		h[k] /= sum
	}
	return h
}

func klDivergence(p, m []float64) float64 {
	var kl float64
	for k := range p {
		kl += p[k] * math.Log(p[k]/m[k])
	}
	return kl
}
