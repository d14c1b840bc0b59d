package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrShapeMismatch signals sequences that must be the same length are not.
var ErrShapeMismatch = errors.New("dataset: images and labels differ in length")

// Split holds the train and held-out partitions.
type Split struct {
	TrainX []Image
	TrainY []Label
	TestX  []Image
	TestY  []Label
}

// Len returns the total number of examples across both partitions.
func (s Split) Len() int {
	return len(s.TrainX) + len(s.TestX)
}

// Shuffle permutes images and labels with the same seeded permutation.
func Shuffle(images []Image, labels []Label, seed int64) ([]Image, []Label, error) {
	if len(images) != len(labels) {
		return nil, nil, fmt.Errorf("%w: %d images, %d labels", ErrShapeMismatch, len(images), len(labels))
	}
	perm := rand.New(rand.NewSource(seed)).Perm(len(images))
	outX := make([]Image, len(images))
	outY := make([]Label, len(labels))
	for i, j := range perm {
		outX[i] = images[j]
		outY[i] = labels[j]
	}
	return outX, outY, nil
}

// TrainTestSplit partitions images and labels into disjoint, exhaustive
// train and test sets. The test side receives ceil(testFraction*n) examples.
func TrainTestSplit(images []Image, labels []Label, testFraction float64, seed int64) (Split, error) {
	if len(images) != len(labels) {
		return Split{}, fmt.Errorf("%w: %d images, %d labels", ErrShapeMismatch, len(images), len(labels))
	}
	trainIdx, testIdx, err := splitIndices(len(images), testFraction, seed)
	if err != nil {
		return Split{}, err
	}
	s := Split{
		TrainX: make([]Image, len(trainIdx)),
		TrainY: make([]Label, len(trainIdx)),
		TestX:  make([]Image, len(testIdx)),
		TestY:  make([]Label, len(testIdx)),
	}
	for i, idx := range trainIdx {
		s.TrainX[i] = images[idx]
		s.TrainY[i] = labels[idx]
	}
	for i, idx := range testIdx {
		s.TestX[i] = images[idx]
		s.TestY[i] = labels[idx]
	}
	return s, nil
}

func splitIndices(n int, testFraction float64, seed int64) ([]int, []int, error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("split: test fraction must be in (0, 1) (got %g)", testFraction)
	}
	nTest := int(math.Ceil(testFraction * float64(n)))
	nTrain := n - nTest
	if nTrain <= 0 || nTest <= 0 {
		return nil, nil, fmt.Errorf("split: %d examples cannot be split with test fraction %g", n, testFraction)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}
