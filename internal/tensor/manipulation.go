package tensor

// Cat concatenates tensors along the given dimension.
// All tensors must have the same shape except along dim.
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int, b B) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("Cat requires at least one tensor")
	}
	raws := make([]*RawTensor, len(tensors))
	for i, t := range tensors {
		raws[i] = t.Raw()
	}
	return New[T, B](b.Cat(raws, dim), b)
}

// Stack stacks tensors along a new leading dimension at position dim.
// All tensors must have identical shapes.
//
// An empty input yields an empty tensor of shape [0], so that a history
// collected over zero steps is still a well-formed tensor.
func Stack[T DType, B Backend](tensors []*Tensor[T, B], dim int, b B) *Tensor[T, B] {
	if len(tensors) == 0 {
		return Zeros[T, B](Shape{0}, b)
	}
	expanded := make([]*Tensor[T, B], len(tensors))
	for i, t := range tensors {
		expanded[i] = t.Unsqueeze(dim)
	}
	return Cat(expanded, dim, b)
}
