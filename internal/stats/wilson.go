package stats

import "math"

// DefaultZ is the two-sided 95% critical value used throughout the engine.
const DefaultZ = 1.96

// Interval is a closed confidence interval.
type Interval struct {
	Low  float64 `json:"ciLow"`
	High float64 `json:"ciHigh"`
}

// WilsonScore calculates the Wilson score interval for x successes in n
// trials at critical value z. It's more accurate for small samples and for
// rates near 0 or 1 than the normal approximation.
//
// For n = 0 it returns [0, 0], which callers should read as "unknown".
func WilsonScore(x, n int, z float64) Interval {
	if n <= 0 {
		return Interval{}
	}

	p := float64(x) / float64(n)
	nf := float64(n)
	c := z * z / nf

	center := (p + c/2) / (1 + c)
	half := z * math.Sqrt(p*(1-p)/nf+z*z/(4*nf*nf)) / (1 + c)

	// Rounding at p = 0 or p = 1 can leave the rate a hair outside the bounds.
	return Interval{
		Low:  math.Min(clamp01(center-half), p),
		High: math.Max(clamp01(center+half), p),
	}
}

// WilsonInterval is WilsonScore at a confidence level (0.95, 0.99, ...)
// instead of a critical value.
func WilsonInterval(successes, trials int, confidence float64) (lower, upper float64) {
	ci := WilsonScore(successes, trials, ZScore(confidence))
	return ci.Low, ci.High
}

// DiffCINormal returns the normal-approximation interval for p2 - p1.
// Both n1 and n2 must be positive; callers substitute a zero-width interval otherwise.
func DiffCINormal(p1 float64, n1 int, p2 float64, n2 int, z float64) Interval {
	se := math.Sqrt(p1*(1-p1)/float64(n1) + p2*(1-p2)/float64(n2))
	half := z * se
	diff := p2 - p1
	return Interval{Low: diff - half, High: diff + half}
}

// ZScore returns the two-sided critical value for a given confidence level.
// Common values:
//   - 0.90 -> 1.645
//   - 0.95 -> 1.96
//   - 0.99 -> 2.576
func ZScore(confidence float64) float64 {
	// Exact levels use the precomputed values, everything else the approximation.
	switch confidence {
	case 0.99:
		return 2.576
	case 0.95:
		return 1.96
	case 0.90:
		return 1.645
	case 0.80:
		return 1.28
	}
	return approximateZScore(confidence)
}

// approximateZScore uses Acklam's rational approximation for the inverse
// of the standard normal CDF.
func approximateZScore(confidence float64) float64 {
	// Convert confidence to one-tailed probability
	p := (1 + confidence) / 2
	if p <= 0.5 {
		return 0
	}
	if p >= 1 {
		return math.Inf(1)
	}

	a := []float64{-3.969683028665376e+01, 2.209460984245205e+02,
		-2.759285104469687e+02, 1.383577518672690e+02,
		-3.066479806614716e+01, 2.506628277459239e+00}
	b := []float64{-5.447609879822406e+01, 1.615858368580409e+02,
		-1.556989798598866e+02, 6.680131188771972e+01,
		-1.328068155288572e+01}
	c := []float64{-7.784894002430293e-03, -3.223964580411365e-01,
		-2.400758277161838e+00, -2.549732539343734e+00,
		4.374664141464968e+00, 2.938163982698783e+00}
	d := []float64{7.784695709041462e-03, 3.224671290700398e-01,
		2.445134137142996e+00, 3.754408661907416e+00}

	pHigh := 1 - 0.02425

	if p <= pHigh {
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	}

	q := math.Sqrt(-2 * math.Log(1-p))
	return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
		((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
}
