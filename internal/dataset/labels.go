package dataset

// Label is the class of a histopathology patch, decided once at ingestion.
type Label uint8

const (
	Benign Label = iota
	Malignant
)

// malignantDir is the class directory name holding IDC positive patches.
const malignantDir = "1"

// ParseLabel maps a class directory name to a Label.
func ParseLabel(dir string) Label {
	if dir == malignantDir {
		return Malignant
	}
	return Benign
}

// Bool reports whether the label is the positive class.
func (l Label) Bool() bool {
	return l == Malignant
}

// Target returns the hinge loss target 2*label - 1.
func (l Label) Target() float64 {
	v := 0.0
	if l.Bool() {
		v = 1.0
	}
	return 2*v - 1
}

// LabelFromSign recovers a label from a hinge target or prediction.
func LabelFromSign(v float64) Label {
	if v > 0 {
		return Malignant
	}
	return Benign
}

func (l Label) String() string {
	if l.Bool() {
		return "malignant"
	}
	return "benign"
}

// Targets remaps labels to hinge targets, preserving order.
func Targets(labels []Label) []float64 {
	out := make([]float64, len(labels))
	for i, l := range labels {
		out[i] = l.Target()
	}
	return out
}
