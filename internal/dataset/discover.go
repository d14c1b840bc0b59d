package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoImages is returned when discovery finds nothing to train on.
var ErrNoImages = errors.New("dataset: no images discovered")

// Record is an image path with the label of its class directory.
type Record struct {
	Path  string
	Label Label
}

// DiscoverImages lists images one level below each class directory of root.
// Files are kept when their lowercase name ends with an allowed extension.
func DiscoverImages(root string, allowed []string) ([]Record, error) {
	classes, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("discover images: %w", err)
	}
	records := make([]Record, 0)
	for _, class := range classes {
		if !class.IsDir() {
			continue
		}
		classDir := filepath.Join(root, class.Name())
		entries, err := os.ReadDir(classDir)
		if err != nil {
			return nil, fmt.Errorf("discover images in %s: %w", classDir, err)
		}
		label := ParseLabel(class.Name())
		for _, entry := range entries {
			if entry.IsDir() || !hasAllowedExt(entry.Name(), allowed) {
				continue
			}
			records = append(records, Record{
				Path:  filepath.Join(classDir, entry.Name()),
				Label: label,
			})
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoImages, root)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Path < records[j].Path
	})
	return records, nil
}

func hasAllowedExt(name string, allowed []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range allowed {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// CountByLabel returns how many records fall in each class.
func CountByLabel(records []Record) map[Label]int {
	counts := make(map[Label]int, 2)
	for _, r := range records {
		counts[r.Label]++
	}
	return counts
}
