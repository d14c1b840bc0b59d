package dataset

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// LoadOptions configures Load.
type LoadOptions struct {
	Dim          int
	TestFraction float64
	Seed         int64
	Workers      int
}

// Load decodes every record, shuffles, splits and normalizes the result.
// Decoding fans out over opts.Workers goroutines; any failure aborts the load.
func Load(ctx context.Context, records []Record, opts LoadOptions, log zerolog.Logger) (Split, error) {
	if len(records) == 0 {
		return Split{}, ErrNoImages
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	pre := Preprocessor{Dim: opts.Dim}
	images := make([]Image, len(records))
	labels := make([]Label, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, rec := range records {
		i, rec := i, rec
		labels[i] = rec.Label
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := pre.DecodeFile(rec.Path)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Split{}, fmt.Errorf("load images: %w", err)
	}
	log.Info().Int("images", len(images)).Int("dim", opts.Dim).Msg("Images decoded")

	images, labels, err := Shuffle(images, labels, opts.Seed)
	if err != nil {
		return Split{}, err
	}
	log.Info().Msg("Data shuffled")

	split, err := TrainTestSplit(images, labels, opts.TestFraction, opts.Seed)
	if err != nil {
		return Split{}, err
	}
	split.TrainX = Normalize(split.TrainX)
	split.TestX = Normalize(split.TestX)

	log.Info().
		Int("train", len(split.TrainX)).
		Int("validation", len(split.TestX)).
		Ints("shape", shapeOf(split.TrainX)).
		Msg("Data split")
	return split, nil
}

func shapeOf(images []Image) []int {
	if len(images) == 0 {
		return []int{0}
	}
	s := images[0].Shape()
	return []int{len(images), s[0], s[1], s[2]}
}
