package stats

import (
	"math"
	"sync"
)

// maxCachedFactorial bounds the memo table. Larger arguments are evaluated
// through LogGamma instead of growing the table.
const maxCachedFactorial = 1 << 20

// LogFactorials is an append-only memo table of log(n!).
//
// Entries are written once, in order, under the write lock and never change
// afterwards, so any value a reader has observed stays valid. A single table
// may be shared by any number of goroutines.
type LogFactorials struct {
	mu    sync.RWMutex
	table []float64
}

// NewLogFactorials returns a table seeded with log(0!) and log(1!).
func NewLogFactorials() *LogFactorials {
	return &LogFactorials{table: []float64{0, 0}}
}

var sharedLogFactorials = NewLogFactorials()

// Len reports how many entries have been committed.
func (f *LogFactorials) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.table)
}

// LogFactorial returns log(n!). It returns NaN for negative n.
func (f *LogFactorials) LogFactorial(n int) float64 {
	if n < 0 {
		return math.NaN()
	}
	if n >= maxCachedFactorial {
		return LogGamma(float64(n) + 1)
	}

	f.mu.RLock()
	if n < len(f.table) {
		v := f.table[n]
		f.mu.RUnlock()
		return v
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	// Another writer may have extended the table while we waited.
	for i := len(f.table); i <= n; i++ {
		f.table = append(f.table, f.table[i-1]+math.Log(float64(i)))
	}
	return f.table[n]
}

// LogChoose returns log(C(n, k)). Out of range k yields -Inf, a zero-probability term.
func (f *LogFactorials) LogChoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	return f.LogFactorial(n) - f.LogFactorial(k) - f.LogFactorial(n-k)
}

func orShared(f *LogFactorials) *LogFactorials {
	if f == nil {
		return sharedLogFactorials
	}
	return f
}
