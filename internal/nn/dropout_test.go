package nn

import (
	"testing"

	"github.com/tapir-nmt/tapir/internal/backend/cpu"
	"github.com/tapir-nmt/tapir/internal/tensor"
)

func TestDropoutEvalIsIdentity(t *testing.T) {
	backend := cpu.New()
	x := tensor.Ones[float32](tensor.Shape{4, 4}, backend)

	out := Dropout(x, 0.5, false)
	if out != x {
		t.Error("eval-mode dropout should return the input unchanged")
	}
}

func TestDropoutKeepAllIsIdentity(t *testing.T) {
	backend := cpu.New()
	x := tensor.Ones[float32](tensor.Shape{4, 4}, backend)

	out := Dropout(x, 1.0, true)
	if out != x {
		t.Error("keepProb=1 dropout should return the input unchanged")
	}
}

func TestDropoutZerosAndScales(t *testing.T) {
	backend := cpu.New()
	x := tensor.Ones[float32](tensor.Shape{100, 100}, backend)

	keep := float32(0.5)
	out := Dropout(x, keep, true)

	// Input must not be mutated.
	for _, v := range x.Data() {
		if v != 1 {
			t.Fatal("dropout mutated its input")
		}
	}

	scale := 1 / keep
	zeros := 0
	for _, v := range out.Data() {
		switch v {
		case 0:
			zeros++
		case scale:
		default:
			t.Fatalf("unexpected value %v, want 0 or %v", v, scale)
		}
	}

	// With 10000 elements the kept fraction concentrates tightly around 0.5.
	ratio := float64(zeros) / float64(out.NumElements())
	if ratio < 0.4 || ratio > 0.6 {
		t.Errorf("dropped fraction = %v, want about 0.5", ratio)
	}
}

func TestDropoutPanicsOnZeroKeep(t *testing.T) {
	backend := cpu.New()
	x := tensor.Ones[float32](tensor.Shape{2, 2}, backend)

	defer func() {
		if recover() == nil {
			t.Error("expected panic for keepProb=0")
		}
	}()
	Dropout(x, 0, true)
}
