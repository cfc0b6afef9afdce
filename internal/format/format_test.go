package format_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gkobilansky/ab-advisor/internal/format"
)

func ptr(v float64) *float64 { return &v }

func TestP(t *testing.T) {
	assert.Equal(t, "< 0.0001", format.P(0.00005))
	assert.Equal(t, "0.0001", format.P(0.0001))
	assert.Equal(t, "0.0468", format.P(0.04677))
	assert.Equal(t, "1.0000", format.P(1))
	assert.Equal(t, format.Missing, format.P(math.NaN()))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "5.50", format.Percent(0.055))
	assert.Equal(t, "0.00", format.Percent(0))
	assert.Equal(t, "5.50%", format.Pct(0.055))
	assert.Equal(t, format.Missing, format.Pct(math.Inf(1)))
}

func TestPctSmart(t *testing.T) {
	assert.Equal(t, "5.50%", format.PctSmart(0.055))
	assert.Equal(t, "12.3%", format.PctSmart(0.1234))
	assert.Equal(t, "100.0%", format.PctSmart(1))
}

func TestLift(t *testing.T) {
	assert.Equal(t, "10.00%", format.Lift(ptr(0.1)))
	assert.Equal(t, format.Missing, format.Lift(nil))

	assert.Equal(t, "+10.0%", format.LiftSigned(ptr(0.1)))
	assert.Equal(t, "-5.00%", format.LiftSigned(ptr(-0.05)))
	assert.Equal(t, "0.00%", format.LiftSigned(ptr(0)))
	assert.Equal(t, format.Missing, format.LiftSigned(nil))
}

func TestPP(t *testing.T) {
	assert.Equal(t, "+0.50 pp", format.PP(0.005))
	assert.Equal(t, "-12.0 pp", format.PP(-0.12))
	assert.Equal(t, "0.00 pp", format.PP(0))
}

func TestCounts(t *testing.T) {
	assert.Equal(t, "5/100", format.Counts(5, 100))
}
