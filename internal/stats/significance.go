package stats

import "math"

// Small-sample thresholds for choosing an exact test over the z-test.
const (
	minExpectedCell = 5
	minGroupSize    = 30
	fisherTolerance = 1e-12
)

// ZTest is the outcome of a two-proportion z-test.
type ZTest struct {
	Z float64
	P float64
}

// ChiSquare is the outcome of a 2×k chi-square test of homogeneity.
type ChiSquare struct {
	Chi2 float64
	DF   int
	P    float64
}

// SmallCounts reports whether a 2×2 comparison is too small for the normal
// approximation: any expected cell below 5 or either group below 30 units.
func SmallCounts(x1, n1, x2, n2 int) bool {
	total := n1 + n2
	if total == 0 {
		total = 1
	}
	p := float64(x1+x2) / float64(total)

	for _, n := range []float64{float64(n1), float64(n2)} {
		if n*p < minExpectedCell || n*(1-p) < minExpectedCell {
			return true
		}
	}
	return n1 < minGroupSize || n2 < minGroupSize
}

// TwoPropZTest performs a two-sided two-proportion z-test of x2/n2 against x1/n1
// using the pooled proportion. A zero standard error yields z = 0, p = 1.
func TwoPropZTest(x1, n1, x2, n2 int) ZTest {
	if n1 <= 0 || n2 <= 0 {
		return ZTest{Z: 0, P: 1}
	}

	p1 := float64(x1) / float64(n1)
	p2 := float64(x2) / float64(n2)

	// Pooled proportion under null hypothesis (p1 = p2)
	pooled := float64(x1+x2) / float64(n1+n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(n1) + 1/float64(n2)))
	if se == 0 || math.IsNaN(se) {
		return ZTest{Z: 0, P: 1}
	}

	z := (p2 - p1) / se
	return ZTest{Z: z, P: clampP(2 * (1 - Phi(math.Abs(z))))}
}

// HypergeometricLogP is the log probability of a 2×2 table with top-left cell a
// given row total row1, column total col1 and grand total n.
func HypergeometricLogP(f *LogFactorials, a, row1, col1, n int) float64 {
	f = orShared(f)
	return f.LogChoose(col1, a) + f.LogChoose(n-col1, row1-a) - f.LogChoose(n, row1)
}

// FisherSupport returns the feasible range of the top-left cell for fixed margins.
func FisherSupport(row1, row2, col1 int) (lo, hi int) {
	return max(0, col1-row2), min(col1, row1)
}

// FishersExactTwoSided runs the two-sided Fisher exact test on the table
// [[x1, n1-x1], [x2, n2-x2]]. It sums the probability of every table with the
// same margins that is no more likely than the observed one.
// A nil table uses the package-wide shared memo table.
func FishersExactTwoSided(f *LogFactorials, x1, n1, x2, n2 int) float64 {
	f = orShared(f)

	row1, row2 := n1, n2
	col1 := x1 + x2
	n := row1 + row2
	if n == 0 {
		return 1
	}

	observed := HypergeometricLogP(f, x1, row1, col1, n)
	lo, hi := FisherSupport(row1, row2, col1)

	sum := 0.0
	for a := lo; a <= hi; a++ {
		lp := HypergeometricLogP(f, a, row1, col1, n)
		if lp <= observed+fisherTolerance {
			sum += math.Exp(lp)
		}
	}
	return clampP(sum)
}

// ChiSquare2xK runs a chi-square test of homogeneity over k groups with xs
// successes out of ns trials. Cells with zero expected count are skipped.
func ChiSquare2xK(xs, ns []int) ChiSquare {
	k := len(ns)
	df := k - 1

	totalX, totalN := 0, 0
	for i := range ns {
		totalX += xs[i]
		totalN += ns[i]
	}
	if totalN == 0 || df < 1 {
		return ChiSquare{Chi2: 0, DF: df, P: 1}
	}

	pooled := float64(totalX) / float64(totalN)
	chi2 := 0.0
	for i := range ns {
		n := float64(ns[i])
		x := float64(xs[i])

		expSucc := n * pooled
		expFail := n * (1 - pooled)
		if expSucc > 0 {
			chi2 += (x - expSucc) * (x - expSucc) / expSucc
		}
		if expFail > 0 {
			chi2 += ((n - x) - expFail) * ((n - x) - expFail) / expFail
		}
	}

	return ChiSquare{Chi2: chi2, DF: df, P: clampP(1 - ChiSquareCDF(chi2, df))}
}

// clampP maps a computed probability into [0, 1]; NaN is treated as no evidence.
func clampP(p float64) float64 {
	if math.IsNaN(p) {
		return 1
	}
	return clamp01(p)
}
