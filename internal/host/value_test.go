package host

import (
	"math"
	"testing"
)

func TestClassifyScalar(t *testing.T) {
	v := Classify(3.5)
	if v.Kind != KindScalar || v.Scalar != 3.5 {
		t.Fatalf("unexpected value: %+v", v)
	}
}

func TestClassifyVector(t *testing.T) {
	v := Classify([]any{0.1, 0.2, 0.3, 1.0})
	if v.Kind != KindVector {
		t.Fatalf("expected vector, got %+v", v)
	}
	if len(v.Vector) != 4 || v.Vector[0] != 0.1 {
		t.Fatalf("unexpected components: %v", v.Vector)
	}
}

func TestClassifyUnsupported(t *testing.T) {
	cases := []any{
		"text",
		nil,
		[]any{},
		[]any{0.5, "mixed"},
		math.NaN(),
		math.Inf(1),
		[]float64{1, math.Inf(-1)},
	}
	for _, raw := range cases {
		if v := Classify(raw); v.Kind != KindUnsupported {
			t.Fatalf("Classify(%v) = %+v, want unsupported", raw, v)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := VectorValue(true, 0.5, 0.6)
	clone := orig.Clone()
	clone.Vector[0] = 0.9
	if orig.Vector[0] != 0.5 {
		t.Fatalf("clone mutated original: %v", orig.Vector)
	}
}
