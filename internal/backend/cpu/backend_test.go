package cpu

import (
	"math"
	"testing"

	"github.com/tapir-nmt/tapir/internal/tensor"
)

func rawFromFloat32(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func rawFromInt32(t *testing.T, data []int32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Int32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	copy(raw.AsInt32(), data)
	return raw
}

func TestAddSameShape(t *testing.T) {
	backend := New()

	a := rawFromFloat32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := rawFromFloat32(t, []float32{10, 20, 30, 40}, tensor.Shape{2, 2})

	out := backend.Add(a, b).AsFloat32()
	want := []float32{11, 22, 33, 44}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}

	// Inputs must not be mutated.
	if a.AsFloat32()[0] != 1 {
		t.Error("Add mutated its input")
	}
}

func TestMulBroadcastMask(t *testing.T) {
	backend := New()

	// Weights [batch=1, heads=2, queries=2, keys=3] times mask [1, 1, 1, 3].
	weights := rawFromFloat32(t, []float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
		10, 11, 12,
	}, tensor.Shape{1, 2, 2, 3})
	mask := rawFromFloat32(t, []float32{1, 1, 0}, tensor.Shape{1, 1, 1, 3})

	out := backend.Mul(weights, mask).AsFloat32()
	want := []float32{1, 2, 0, 4, 5, 0, 7, 8, 0, 10, 11, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestMatMul(t *testing.T) {
	backend := New()

	a := rawFromFloat32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := rawFromFloat32(t, []float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

	out := backend.MatMul(a, b)
	if !out.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("shape = %v, want [2 2]", out.Shape())
	}

	want := []float32{58, 64, 139, 154}
	got := out.AsFloat32()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBatchMatMul4D(t *testing.T) {
	backend := New()

	// Two identity-like batches.
	a := rawFromFloat32(t, []float32{
		1, 0, 0, 1, // batch 0: identity
		2, 0, 0, 2, // batch 1: 2*identity
	}, tensor.Shape{1, 2, 2, 2})
	b := rawFromFloat32(t, []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
	}, tensor.Shape{1, 2, 2, 2})

	out := backend.BatchMatMul(a, b)
	if !out.Shape().Equal(tensor.Shape{1, 2, 2, 2}) {
		t.Fatalf("shape = %v, want [1 2 2 2]", out.Shape())
	}

	want := []float32{1, 2, 3, 4, 10, 12, 14, 16}
	got := out.AsFloat32()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSoftmaxLastDim(t *testing.T) {
	backend := New()

	x := rawFromFloat32(t, []float32{1, 2, 3, 1000, 1001, 1002}, tensor.Shape{2, 3})
	out := backend.Softmax(x, -1).AsFloat32()

	for r := 0; r < 2; r++ {
		var sum float32
		for c := 0; c < 3; c++ {
			v := out[r*3+c]
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("softmax produced %v at [%d, %d]", v, r, c)
			}
			sum += v
		}
		if math.Abs(float64(sum)-1) > 1e-5 {
			t.Errorf("row %d sums to %v, want 1", r, sum)
		}
	}

	// Both rows have the same relative logits, so identical distributions.
	for c := 0; c < 3; c++ {
		if math.Abs(float64(out[c]-out[3+c])) > 1e-5 {
			t.Errorf("rows differ at column %d: %v vs %v", c, out[c], out[3+c])
		}
	}
}

func TestTranspose(t *testing.T) {
	backend := New()

	x := rawFromFloat32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	out := backend.Transpose(x)
	if !out.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("shape = %v, want [3 2]", out.Shape())
	}

	want := []float32{1, 4, 2, 5, 3, 6}
	got := out.AsFloat32()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTransposeHeadSplit(t *testing.T) {
	backend := New()

	// [batch=1, time=2, heads=2, headDim=1] -> [batch, heads, time, headDim]
	x := rawFromFloat32(t, []float32{1, 2, 3, 4}, tensor.Shape{1, 2, 2, 1})
	out := backend.Transpose(x, 0, 2, 1, 3)

	if !out.Shape().Equal(tensor.Shape{1, 2, 2, 1}) {
		t.Fatalf("shape = %v, want [1 2 2 1]", out.Shape())
	}
	want := []float32{1, 3, 2, 4}
	got := out.AsFloat32()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSumDimKeepDim(t *testing.T) {
	backend := New()

	x := rawFromFloat32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	out := backend.SumDim(x, 1, true)

	if !out.Shape().Equal(tensor.Shape{2, 1}) {
		t.Fatalf("shape = %v, want [2 1]", out.Shape())
	}
	got := out.AsFloat32()
	if got[0] != 6 || got[1] != 15 {
		t.Errorf("sums = %v, want [6 15]", got)
	}
}

func TestCatChunkRoundtrip(t *testing.T) {
	backend := New()

	a := rawFromFloat32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := rawFromFloat32(t, []float32{5, 6, 7, 8}, tensor.Shape{2, 2})

	joined := backend.Cat([]*tensor.RawTensor{a, b}, 1)
	if !joined.Shape().Equal(tensor.Shape{2, 4}) {
		t.Fatalf("cat shape = %v, want [2 4]", joined.Shape())
	}

	parts := backend.Chunk(joined, 2, 1)
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	for i, orig := range []*tensor.RawTensor{a, b} {
		got := parts[i].AsFloat32()
		want := orig.AsFloat32()
		for j := range want {
			if got[j] != want[j] {
				t.Errorf("part %d elem %d = %v, want %v", i, j, got[j], want[j])
			}
		}
	}
}

func TestEmbedding(t *testing.T) {
	backend := New()

	weight := rawFromFloat32(t, []float32{
		0, 0,
		1, 1,
		2, 2,
	}, tensor.Shape{3, 2})
	indices := rawFromInt32(t, []int32{2, 0, 1, 1}, tensor.Shape{2, 2})

	out := backend.Embedding(weight, indices)
	if !out.Shape().Equal(tensor.Shape{2, 2, 2}) {
		t.Fatalf("shape = %v, want [2 2 2]", out.Shape())
	}

	want := []float32{2, 2, 0, 0, 1, 1, 1, 1}
	got := out.AsFloat32()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEmbeddingOutOfRange(t *testing.T) {
	backend := New()

	weight := rawFromFloat32(t, []float32{0, 0, 1, 1}, tensor.Shape{2, 2})
	indices := rawFromInt32(t, []int32{5}, tensor.Shape{1})

	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-range index")
		}
	}()
	backend.Embedding(weight, indices)
}
