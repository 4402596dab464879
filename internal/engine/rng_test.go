package engine

import (
	"math"
	"testing"
)

func TestNextDeterministic(t *testing.T) {
	a := NewRNGFromString("memex")
	b := NewRNGFromString("memex")
	for i := 0; i < 1000; i++ {
		x, y := a.Next(), b.Next()
		if x != y {
			t.Fatalf("sample %d diverged: %v vs %v", i, x, y)
		}
		if x < 0 || x >= 1 {
			t.Fatalf("sample %d out of [0,1): %v", i, x)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := NewRNGFromString("memex")
	b := NewRNGFromString("memex2")
	same := true
	for i := 0; i < 10; i++ {
		if a.Next() != b.Next() {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different seeds produced identical streams")
	}
}

func TestZeroSeedRemapped(t *testing.T) {
	r := NewRNG(0)
	if r.Next() == r.Next() {
		t.Fatalf("zero-seed generator is stuck")
	}
	if HashSeed("") == 0 {
		t.Fatalf("empty string must not hash to zero")
	}
}

func TestNormalMoments(t *testing.T) {
	r := NewRNGFromString("normal-moments")
	const n = 50000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		x := r.Normal()
		sum += x
		sumSq += x * x
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if math.Abs(mean) > 0.03 {
		t.Fatalf("mean too far from 0: %v", mean)
	}
	if math.Abs(variance-1) > 0.05 {
		t.Fatalf("variance too far from 1: %v", variance)
	}
}

func TestPoissonZeroLambda(t *testing.T) {
	r := NewRNGFromString("poisson")
	if got := r.Poisson(0); got != 0 {
		t.Fatalf("lambda=0 should yield 0, got %d", got)
	}
	if got := r.Poisson(-1); got != 0 {
		t.Fatalf("negative lambda should yield 0, got %d", got)
	}
}

func TestPoissonSmallMean(t *testing.T) {
	r := NewRNGFromString("poisson-small")
	const n = 20000
	lambda := 5.0
	sum := 0
	for i := 0; i < n; i++ {
		sum += r.Poisson(lambda)
	}
	mean := float64(sum) / n
	if math.Abs(mean-lambda) > 0.1 {
		t.Fatalf("small-mean sample mean %v too far from %v", mean, lambda)
	}
}

func TestPoissonLargeMean(t *testing.T) {
	r := NewRNGFromString("poisson-large")
	const n = 10000
	lambda := 80.0
	sum := 0
	for i := 0; i < n; i++ {
		k := r.Poisson(lambda)
		if k < 0 {
			t.Fatalf("negative poisson sample %d", k)
		}
		sum += k
	}
	mean := float64(sum) / n
	if math.Abs(mean-lambda) > 1.0 {
		t.Fatalf("large-mean sample mean %v too far from %v", mean, lambda)
	}
}
