package tensor

import (
	"fmt"
	"math"
)

// Verify that MockBackend implements Backend.
var _ Backend = (*MockBackend)(nil)

// MockBackend is a simple backend for testing.
// It implements all operations naively over float32 for correctness
// verification; production code uses the cpu backend instead.
type MockBackend struct{}

// NewMockBackend creates a new MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Name returns the backend name.
func (m *MockBackend) Name() string {
	return "mock"
}

// Device returns the device type.
func (m *MockBackend) Device() Device {
	return CPU
}

func (m *MockBackend) alloc(shape Shape, dtype DataType) *RawTensor {
	raw, err := NewRaw(shape, dtype, m.Device())
	if err != nil {
		panic(err)
	}
	return raw
}

// broadcastIndex maps a flat index into outShape to the corresponding flat
// index into srcShape under right-aligned broadcasting.
func broadcastIndex(flat int, outShape, srcShape Shape) int {
	outStrides := outShape.ComputeStrides()
	srcStrides := srcShape.ComputeStrides()
	offset := len(outShape) - len(srcShape)

	srcIdx := 0
	for i := range outShape {
		coord := (flat / outStrides[i]) % outShape[i]
		if i < offset {
			continue
		}
		if srcShape[i-offset] == 1 {
			continue
		}
		srcIdx += coord * srcStrides[i-offset]
	}
	return srcIdx
}

func (m *MockBackend) elementWise(a, b *RawTensor, op func(x, y float32) float32) *RawTensor {
	outShape, _, err := BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}

	result := m.alloc(outShape, a.DType())
	aData, bData, out := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()
	for i := range out {
		out[i] = op(aData[broadcastIndex(i, outShape, a.Shape())], bData[broadcastIndex(i, outShape, b.Shape())])
	}
	return result
}

// Add performs element-wise addition with broadcasting.
func (m *MockBackend) Add(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (m *MockBackend) Sub(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (m *MockBackend) Mul(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float32) float32 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (m *MockBackend) Div(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float32) float32 { return x / y })
}

// MatMul performs naive 2D matrix multiplication.
func (m *MockBackend) MatMul(a, b *RawTensor) *RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("MatMul requires 2D tensors, got %v and %v", aShape, bShape))
	}
	M, K, N := aShape[0], aShape[1], bShape[1]
	if bShape[0] != K {
		panic(fmt.Sprintf("MatMul shape mismatch: %v @ %v", aShape, bShape))
	}

	result := m.alloc(Shape{M, N}, a.DType())
	aData, bData, out := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()
	for i := 0; i < M; i++ {
		for j := 0; j < N; j++ {
			var sum float32
			for k := 0; k < K; k++ {
				sum += aData[i*K+k] * bData[k*N+j]
			}
			out[i*N+j] = sum
		}
	}
	return result
}

// BatchMatMul performs naive batched matrix multiplication.
func (m *MockBackend) BatchMatMul(a, b *RawTensor) *RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != len(bShape) || (len(aShape) != 3 && len(aShape) != 4) {
		panic(fmt.Sprintf("BatchMatMul requires matching 3D or 4D tensors, got %v and %v", aShape, bShape))
	}

	batch := 1
	for _, dim := range aShape[:len(aShape)-2] {
		batch *= dim
	}
	M, K := aShape[len(aShape)-2], aShape[len(aShape)-1]
	N := bShape[len(bShape)-1]
	if bShape[len(bShape)-2] != K {
		panic(fmt.Sprintf("BatchMatMul shape mismatch: %v @ %v", aShape, bShape))
	}

	outShape := append(aShape[:len(aShape)-2].Clone(), M, N)
	result := m.alloc(outShape, a.DType())
	aData, bData, out := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()
	for bi := 0; bi < batch; bi++ {
		aOff, bOff, oOff := bi*M*K, bi*K*N, bi*M*N
		for i := 0; i < M; i++ {
			for j := 0; j < N; j++ {
				var sum float32
				for k := 0; k < K; k++ {
					sum += aData[aOff+i*K+k] * bData[bOff+k*N+j]
				}
				out[oOff+i*N+j] = sum
			}
		}
	}
	return result
}

// Reshape returns a copy of the tensor with a new shape.
func (m *MockBackend) Reshape(t *RawTensor, newShape Shape) *RawTensor {
	if newShape.NumElements() != t.NumElements() {
		panic(fmt.Sprintf("cannot reshape %v to %v", t.Shape(), newShape))
	}
	result := m.alloc(newShape, t.DType())
	copy(result.data, t.data)
	return result
}

// Transpose permutes the tensor's dimensions.
func (m *MockBackend) Transpose(t *RawTensor, axes ...int) *RawTensor {
	shape := t.Shape()
	if len(axes) == 0 {
		axes = make([]int, len(shape))
		for i := range axes {
			axes[i] = len(shape) - 1 - i
		}
	}
	if len(axes) != len(shape) {
		panic(fmt.Sprintf("Transpose requires %d axes, got %d", len(shape), len(axes)))
	}

	outShape := make(Shape, len(shape))
	for i, axis := range axes {
		outShape[i] = shape[axis]
	}

	result := m.alloc(outShape, t.DType())
	in, out := t.AsFloat32(), result.AsFloat32()
	inStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	for i := range out {
		srcIdx := 0
		for d := range outShape {
			coord := (i / outStrides[d]) % outShape[d]
			srcIdx += coord * inStrides[axes[d]]
		}
		out[i] = in[srcIdx]
	}
	return result
}

func (m *MockBackend) scalarOp(x *RawTensor, op func(v float32) float32) *RawTensor {
	result := m.alloc(x.Shape(), x.DType())
	in, out := x.AsFloat32(), result.AsFloat32()
	for i := range in {
		out[i] = op(in[i])
	}
	return result
}

func toFloat32(scalar any) float32 {
	switch v := scalar.(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	case int:
		return float32(v)
	default:
		panic(fmt.Sprintf("unsupported scalar type %T", scalar))
	}
}

// MulScalar multiplies every element by a scalar.
func (m *MockBackend) MulScalar(x *RawTensor, scalar any) *RawTensor {
	s := toFloat32(scalar)
	return m.scalarOp(x, func(v float32) float32 { return v * s })
}

// AddScalar adds a scalar to every element.
func (m *MockBackend) AddScalar(x *RawTensor, scalar any) *RawTensor {
	s := toFloat32(scalar)
	return m.scalarOp(x, func(v float32) float32 { return v + s })
}

// DivScalar divides every element by a scalar.
func (m *MockBackend) DivScalar(x *RawTensor, scalar any) *RawTensor {
	s := toFloat32(scalar)
	return m.scalarOp(x, func(v float32) float32 { return v / s })
}

// Exp computes e^x element-wise.
func (m *MockBackend) Exp(x *RawTensor) *RawTensor {
	return m.scalarOp(x, func(v float32) float32 { return float32(math.Exp(float64(v))) })
}

// Softmax applies softmax along the given dimension.
func (m *MockBackend) Softmax(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}

	result := m.alloc(shape, x.DType())
	in, out := x.AsFloat32(), result.AsFloat32()
	strides := shape.ComputeStrides()
	dimSize, dimStride := shape[dim], strides[dim]

	outer := shape.NumElements() / dimSize
	for o := 0; o < outer; o++ {
		base := (o/dimStride)*dimStride*dimSize + o%dimStride

		maxVal := float32(math.Inf(-1))
		for i := 0; i < dimSize; i++ {
			if v := in[base+i*dimStride]; v > maxVal {
				maxVal = v
			}
		}

		var sum float32
		for i := 0; i < dimSize; i++ {
			e := float32(math.Exp(float64(in[base+i*dimStride] - maxVal)))
			out[base+i*dimStride] = e
			sum += e
		}
		for i := 0; i < dimSize; i++ {
			out[base+i*dimStride] /= sum
		}
	}
	return result
}

// SumDim sums along the given dimension.
func (m *MockBackend) SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}

	outShape := make(Shape, 0, len(shape))
	for i, d := range shape {
		if i == dim {
			if keepDim {
				outShape = append(outShape, 1)
			}
			continue
		}
		outShape = append(outShape, d)
	}

	result := m.alloc(outShape, x.DType())
	in, out := x.AsFloat32(), result.AsFloat32()
	strides := shape.ComputeStrides()
	dimSize, dimStride := shape[dim], strides[dim]

	outer := shape.NumElements() / dimSize
	for o := 0; o < outer; o++ {
		base := (o/dimStride)*dimStride*dimSize + o%dimStride
		var sum float32
		for i := 0; i < dimSize; i++ {
			sum += in[base+i*dimStride]
		}
		out[o] = sum
	}
	return result
}

// Cat concatenates tensors along the given dimension.
func (m *MockBackend) Cat(tensors []*RawTensor, dim int) *RawTensor {
	first := tensors[0].Shape()
	if dim < 0 {
		dim += len(first)
	}

	outShape := first.Clone()
	for _, t := range tensors[1:] {
		outShape[dim] += t.Shape()[dim]
	}

	result := m.alloc(outShape, tensors[0].DType())
	out := result.AsFloat32()

	outer := 1
	for _, d := range first[:dim] {
		outer *= d
	}
	inner := 1
	for _, d := range first[dim+1:] {
		inner *= d
	}

	rowSize := outShape[dim] * inner
	offset := 0
	for _, t := range tensors {
		in := t.AsFloat32()
		chunk := t.Shape()[dim] * inner
		for o := 0; o < outer; o++ {
			copy(out[o*rowSize+offset:o*rowSize+offset+chunk], in[o*chunk:(o+1)*chunk])
		}
		offset += chunk
	}
	return result
}

// Chunk splits the tensor into n equal parts along the given dimension.
func (m *MockBackend) Chunk(x *RawTensor, n, dim int) []*RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if shape[dim]%n != 0 {
		panic(fmt.Sprintf("cannot chunk dimension of size %d into %d parts", shape[dim], n))
	}

	partShape := shape.Clone()
	partShape[dim] = shape[dim] / n

	outer := 1
	for _, d := range shape[:dim] {
		outer *= d
	}
	inner := 1
	for _, d := range shape[dim+1:] {
		inner *= d
	}

	in := x.AsFloat32()
	rowSize := shape[dim] * inner
	chunkSize := partShape[dim] * inner

	parts := make([]*RawTensor, n)
	for p := 0; p < n; p++ {
		part := m.alloc(partShape, x.DType())
		out := part.AsFloat32()
		for o := 0; o < outer; o++ {
			copy(out[o*chunkSize:(o+1)*chunkSize], in[o*rowSize+p*chunkSize:o*rowSize+(p+1)*chunkSize])
		}
		parts[p] = part
	}
	return parts
}

// Unsqueeze inserts a dimension of size 1 at the given position.
func (m *MockBackend) Unsqueeze(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape) + 1
	}
	newShape := make(Shape, 0, len(shape)+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)
	return m.Reshape(x, newShape)
}

// Squeeze removes a dimension of size 1 at the given position.
func (m *MockBackend) Squeeze(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if shape[dim] != 1 {
		panic(fmt.Sprintf("cannot squeeze dimension %d of size %d", dim, shape[dim]))
	}
	newShape := make(Shape, 0, len(shape)-1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, shape[dim+1:]...)
	return m.Reshape(x, newShape)
}

// Embedding gathers rows of weight by int32 indices.
func (m *MockBackend) Embedding(weight, indices *RawTensor) *RawTensor {
	wShape := weight.Shape()
	vocab, embDim := wShape[0], wShape[1]

	outShape := append(indices.Shape().Clone(), embDim)
	result := m.alloc(outShape, weight.DType())
	w, idx, out := weight.AsFloat32(), indices.AsInt32(), result.AsFloat32()
	for i, id := range idx {
		if id < 0 || int(id) >= vocab {
			panic(fmt.Sprintf("embedding index %d out of range [0, %d)", id, vocab))
		}
		copy(out[i*embDim:(i+1)*embDim], w[int(id)*embDim:(int(id)+1)*embDim])
	}
	return result
}
