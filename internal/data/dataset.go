package data

import (
	"fmt"

	"github.com/tapir-nmt/tapir/internal/model"
)

// Dataset provides named series of tokenized sentences. A series is one
// parallel view of the data, such as the surface forms and their part of
// speech tags for the same sentences.
type Dataset interface {
	// Series returns the sentences of the named series.
	// Returns an error wrapping model.ErrLookup for unknown names.
	Series(name string) ([][]string, error)

	// Len returns the number of sentences in each series.
	Len() int
}

// InMemoryDataset is a Dataset backed by a map of series.
type InMemoryDataset struct {
	series map[string][][]string
	length int
}

var _ Dataset = (*InMemoryDataset)(nil)

// NewInMemoryDataset builds a dataset from named series. All series must
// hold the same number of sentences.
func NewInMemoryDataset(series map[string][][]string) (*InMemoryDataset, error) {
	length := -1
	for name, sentences := range series {
		if length == -1 {
			length = len(sentences)
			continue
		}
		if len(sentences) != length {
			return nil, fmt.Errorf("%w: series %q has %d sentences, expected %d",
				model.ErrData, name, len(sentences), length)
		}
	}
	if length == -1 {
		length = 0
	}

	return &InMemoryDataset{series: series, length: length}, nil
}

// Series returns the sentences of the named series.
func (d *InMemoryDataset) Series(name string) ([][]string, error) {
	sentences, ok := d.series[name]
	if !ok {
		return nil, fmt.Errorf("%w: dataset has no series %q", model.ErrLookup, name)
	}
	return sentences, nil
}

// Len returns the number of sentences in each series.
func (d *InMemoryDataset) Len() int {
	return d.length
}
