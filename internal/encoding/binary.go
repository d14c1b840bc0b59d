// Package encoding turns normalized images into quantum data circuits: pixel
// intensities are thresholded to bits, and every set bit flips its qubit.
package encoding

import "idc-qnn/internal/dataset"

// Binarize thresholds the train and test images. An element becomes 1 when
// it is strictly greater than threshold and 0 otherwise. threshold is assumed
// to lie in [0, 1]; config validation enforces that.
func Binarize(train, test []dataset.Image, threshold float64) ([]dataset.Image, []dataset.Image) {
	return binarizeAll(train, threshold), binarizeAll(test, threshold)
}

func binarizeAll(images []dataset.Image, threshold float64) []dataset.Image {
	out := make([]dataset.Image, len(images))
	for i, im := range images {
		out[i] = BinarizeImage(im, threshold)
	}
	return out
}

// BinarizeImage thresholds a single image.
func BinarizeImage(im dataset.Image, threshold float64) dataset.Image {
	b := dataset.NewImage(im.Dim)
	for i, v := range im.Pix {
		if v > threshold {
			b.Pix[i] = 1
		}
	}
	return b
}
