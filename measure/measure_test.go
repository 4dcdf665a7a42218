package measure_test

import (
	"math"
	"testing"

	"github.com/js-arias/topdown/geotree"
	"github.com/js-arias/topdown/measure"
)

func TestParseMechanism(t *testing.T) {
	if m, err := measure.ParseMechanism("discrete_gaussian"); err != nil || m != measure.DiscreteGaussian {
		t.Errorf("discrete_gaussian: got %v, %v", m, err)
	}
	if m, err := measure.ParseMechanism("discrete_laplace"); err != nil || m != measure.DiscreteLaplace {
		t.Errorf("discrete_laplace: got %v, %v", m, err)
	}
	if _, err := measure.ParseMechanism("bogus"); err == nil {
		t.Errorf("expecting an error for an unknown mechanism")
	}
}

func TestPerturbNoSamplerLeavesVectorUnchanged(t *testing.T) {
	root := &geotree.Node{
		V: []float64{3, 1, 2, 2},
		Children: []*geotree.Node{
			{V: []float64{2, 1, 0, 1}},
			{V: []float64{1, 0, 2, 1}},
		},
	}
	want := []float64{3, 1, 2, 2}

	if err := measure.Perturb(root, measure.DiscreteLaplace, []float64{10, 10}, measure.NoSampler{}); err != nil {
		t.Fatalf("Perturb: %v", err)
	}
	for i, v := range root.V {
		if v != want[i] {
			t.Errorf("root.V[%d]: got %v, want %v", i, v, want[i])
		}
	}
	for _, c := range root.Children {
		if c.State != geotree.Noisy {
			t.Errorf("child state: got %v, want Noisy", c.State)
		}
	}
}

func TestCKSSamplerLaplaceMeanAndVariance(t *testing.T) {
	s := measure.NewCKSSampler(1, 2)
	const eps = 0.5
	const n = 20000

	var sum, sumSq float64
	for i := 0; i < n; i++ {
		y := float64(s.SampleLaplace(1 / eps))
		sum += y
		sumSq += y * y
	}
	mean := sum / n
	variance := sumSq/n - mean*mean

	if math.Abs(mean) > 0.5 {
		t.Errorf("mean: got %v, want close to 0", mean)
	}
	// P8: variance approaches 2/eps^2 as K -> infinity.
	want := 2 / (eps * eps)
	if math.Abs(variance-want) > want*0.3 {
		t.Errorf("variance: got %v, want close to %v", variance, want)
	}
}

func TestCKSSamplerGaussianZeroAtInfiniteRho(t *testing.T) {
	s := measure.NewCKSSampler(3, 4)
	if y := s.SampleGaussian(math.Inf(1)); y != 0 {
		t.Errorf("SampleGaussian(+Inf): got %v, want 0", y)
	}
	if y := s.SampleLaplace(0); y != 0 {
		t.Errorf("SampleLaplace(0): got %v, want 0", y)
	}
}
