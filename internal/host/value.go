package host

import "math"

// Kind tags the shape of a parameter value. Resolved once per read instead
// of re-inspected ad hoc by every consumer.
type Kind string

const (
	KindScalar      Kind = "scalar"
	KindVector      Kind = "vector"
	KindUnsupported Kind = "unsupported"
)

// Value is a tagged parameter value. Scalar is set for KindScalar, Vector
// for KindVector. ColorLike marks vectors whose components live in [0,1]
// color space and take scaled, clamped deltas.
type Value struct {
	Kind      Kind      `json:"kind"`
	Scalar    float64   `json:"scalar,omitempty"`
	Vector    []float64 `json:"vector,omitempty"`
	ColorLike bool      `json:"color_like,omitempty"`
}

// ScalarValue builds a KindScalar value.
func ScalarValue(v float64) Value {
	return Value{Kind: KindScalar, Scalar: v}
}

// VectorValue builds a KindVector value.
func VectorValue(colorLike bool, components ...float64) Value {
	return Value{Kind: KindVector, Vector: components, ColorLike: colorLike}
}

// Classify converts an untyped value (as produced by a JSON decoder or a
// scripting bridge) into a tagged Value. Anything that is not a finite
// number or a non-empty slice of finite numbers is KindUnsupported.
func Classify(raw any) Value {
	switch v := raw.(type) {
	case float64:
		if !isFinite(v) {
			return Value{Kind: KindUnsupported}
		}
		return ScalarValue(v)
	case float32:
		return Classify(float64(v))
	case int:
		return ScalarValue(float64(v))
	case int64:
		return ScalarValue(float64(v))
	case []float64:
		return classifySlice(v)
	case []any:
		components := make([]float64, 0, len(v))
		for _, item := range v {
			f, ok := item.(float64)
			if !ok {
				return Value{Kind: KindUnsupported}
			}
			components = append(components, f)
		}
		return classifySlice(components)
	default:
		return Value{Kind: KindUnsupported}
	}
}

func classifySlice(components []float64) Value {
	if len(components) == 0 {
		return Value{Kind: KindUnsupported}
	}
	for _, c := range components {
		if !isFinite(c) {
			return Value{Kind: KindUnsupported}
		}
	}
	return Value{Kind: KindVector, Vector: components}
}

// Clone returns a copy that shares no state with the receiver.
func (v Value) Clone() Value {
	out := v
	if v.Vector != nil {
		out.Vector = make([]float64, len(v.Vector))
		copy(out.Vector, v.Vector)
	}
	return out
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
