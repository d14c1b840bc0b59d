// Package pipeline wires the loader, preprocessor, encoders and trainer into
// the train and evaluate run modes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"idc-qnn/internal/circuit"
	"idc-qnn/internal/config"
	"idc-qnn/internal/dataset"
	"idc-qnn/internal/encoding"
	"idc-qnn/internal/history"
	"idc-qnn/internal/model"
	"idc-qnn/internal/sysinfo"
	"idc-qnn/internal/trainer"
	"idc-qnn/pkg/logger"
)

// Run modes.
const (
	ModeTrain    = "train"
	ModeEvaluate = "evaluate"
)

// ErrNoParams is returned by Evaluate when no parameter file is configured.
var ErrNoParams = errors.New("pipeline: params_out must be set to evaluate")

// Pipeline runs one mode against a validated configuration.
type Pipeline struct {
	cfg *config.Config
	log zerolog.Logger
}

// Report summarises a run.
type Report struct {
	RunID   string
	Workers int
	History trainer.History
	Test    trainer.Result
}

// prepared is the encoded dataset and the readout template for it.
type prepared struct {
	tpl   *circuit.Template
	train model.Batch
	test  model.Batch
}

// New returns a pipeline for cfg.
func New(cfg *config.Config, log zerolog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, log: log}, nil
}

// Run dispatches to the named mode.
func (p *Pipeline) Run(ctx context.Context, mode string) (Report, error) {
	if !p.cfg.ModeAllowed(mode) {
		return Report{}, fmt.Errorf("pipeline: mode %q not allowed", mode)
	}
	switch mode {
	case ModeTrain:
		return p.Train(ctx)
	case ModeEvaluate:
		return p.Evaluate(ctx)
	default:
		return Report{}, fmt.Errorf("pipeline: unknown mode %q", mode)
	}
}

// Train loads and encodes the data, fits a freshly initialised readout model
// and evaluates it on the held-out split. Parameters are saved only after the
// run completes.
func (p *Pipeline) Train(ctx context.Context) (rep Report, err error) {
	host := sysinfo.Probe(logger.Component(p.log, "sysinfo"))
	prep, workers, err := p.prepare(ctx, host)
	if err != nil {
		return Report{}, err
	}
	rep.Workers = workers

	pqc, err := p.newModel(prep.tpl, workers)
	if err != nil {
		return Report{}, err
	}

	var observers []trainer.EpochObserver
	rep.RunID = uuid.New().String()
	var run *history.Run
	if p.cfg.HistoryDB != "" {
		store, oerr := history.Open(p.cfg.HistoryDB)
		if oerr != nil {
			return Report{}, oerr
		}
		defer store.Close()
		run, err = store.StartRun(ctx, history.RunMeta{
			Dim:           p.cfg.Data.Dim,
			Seed:          p.cfg.Data.Seed,
			BatchSize:     p.cfg.Train.BatchSize,
			Epochs:        p.cfg.Train.Epochs,
			LearningRate:  p.cfg.Train.LearningRate,
			TrainExamples: len(prep.train.Circuits),
			TestExamples:  len(prep.test.Circuits),
		})
		if err != nil {
			return Report{}, err
		}
		rep.RunID = run.ID
		observers = append(observers, run)
		defer func() {
			// The run context may already be cancelled.
			if ferr := run.Finish(context.Background(), err); ferr != nil && err == nil {
				err = ferr
			}
		}()
	}

	tlog := logger.Component(p.log, "trainer").With().Str("run_id", rep.RunID).Logger()
	start := time.Now()
	rep.History, err = trainer.Fit(ctx, pqc, prep.train, prep.test, p.runConfig(), tlog, observers...)
	if err != nil {
		return rep, fmt.Errorf("fit: %w", err)
	}

	rep.Test, err = trainer.Evaluate(ctx, pqc, prep.test, p.cfg.Train.BatchSize)
	if err != nil {
		return rep, fmt.Errorf("evaluate: %w", err)
	}
	tlog.Info().
		Float64("loss", rep.Test.Loss).
		Float64("hinge_accuracy", rep.Test.Accuracy).
		Int("examples", rep.Test.Examples).
		Dur("elapsed", time.Since(start)).
		Msg("Training finished")

	if run != nil {
		if err := run.RecordEvaluation(ctx, "test", rep.Test); err != nil {
			return rep, err
		}
	}
	if p.cfg.ParamsPath != "" {
		snap := pqc.Snapshot(rep.RunID)
		if err := model.SaveParams(p.cfg.ParamsPath, snap); err != nil {
			return rep, err
		}
		tlog.Info().Str("path", p.cfg.ParamsPath).Int("steps", snap.Steps).Msg("Parameters saved")
	}
	return rep, nil
}

// Evaluate restores saved parameters and scores them on the held-out split,
// which the fixed seed reproduces exactly.
func (p *Pipeline) Evaluate(ctx context.Context) (Report, error) {
	if p.cfg.ParamsPath == "" {
		return Report{}, ErrNoParams
	}
	snap, err := model.LoadParams(p.cfg.ParamsPath)
	if err != nil {
		return Report{}, err
	}
	if snap.Dim != p.cfg.Data.Dim {
		return Report{}, fmt.Errorf("pipeline: params were trained at dim %d, config has dim %d", snap.Dim, p.cfg.Data.Dim)
	}

	host := sysinfo.Probe(logger.Component(p.log, "sysinfo"))
	prep, workers, err := p.prepare(ctx, host)
	if err != nil {
		return Report{}, err
	}
	pqc, err := p.newModel(prep.tpl, workers)
	if err != nil {
		return Report{}, err
	}
	if err := pqc.Restore(snap); err != nil {
		return Report{}, err
	}

	rep := Report{RunID: snap.RunID, Workers: workers}
	rep.Test, err = trainer.Evaluate(ctx, pqc, prep.test, p.cfg.Train.BatchSize)
	if err != nil {
		return rep, fmt.Errorf("evaluate: %w", err)
	}
	elog := logger.Component(p.log, "evaluate").With().Str("run_id", rep.RunID).Logger()
	elog.Info().
		Float64("loss", rep.Test.Loss).
		Float64("hinge_accuracy", rep.Test.Accuracy).
		Int("examples", rep.Test.Examples).
		Msg("Evaluation finished")

	if p.cfg.HistoryDB != "" {
		if err := p.recordEvaluation(ctx, rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (p *Pipeline) recordEvaluation(ctx context.Context, rep Report) error {
	store, err := history.Open(p.cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()
	run, err := store.Attach(ctx, rep.RunID)
	if errors.Is(err, history.ErrRunNotFound) {
		p.log.Warn().Str("run_id", rep.RunID).Msg("Run not in history, evaluation not recorded")
		return nil
	}
	if err != nil {
		return err
	}
	return run.RecordEvaluation(ctx, "test", rep.Test)
}

// prepare runs the loader, preprocessor, binary encoder and circuit encoder
// and builds the readout template for the configured grid.
func (p *Pipeline) prepare(ctx context.Context, host sysinfo.Host) (prepared, int, error) {
	dlog := logger.Component(p.log, "dataset")
	records, err := dataset.DiscoverImages(p.cfg.Data.DirTrain, p.cfg.Data.Allowed)
	if err != nil {
		return prepared{}, 0, err
	}
	counts := dataset.CountByLabel(records)
	dlog.Info().
		Str("dir", p.cfg.Data.DirTrain).
		Int("benign", counts[dataset.Benign]).
		Int("malignant", counts[dataset.Malignant]).
		Msg("Images discovered")

	reg, err := circuit.NewRegister(p.cfg.Data.Dim)
	if err != nil {
		return prepared{}, 0, err
	}
	workers := host.Workers(p.cfg.Train.Workers, reg.Len())

	split, err := dataset.Load(ctx, records, dataset.LoadOptions{
		Dim:          p.cfg.Data.Dim,
		TestFraction: p.cfg.Data.TestFraction,
		Seed:         p.cfg.Data.Seed,
		Workers:      workers,
	}, dlog)
	if err != nil {
		return prepared{}, 0, err
	}

	trainBin, testBin := encoding.Binarize(split.TrainX, split.TestX, p.cfg.Core.BinThreshold)
	trainBatch, err := encodeBatch(reg, trainBin, split.TrainY)
	if err != nil {
		return prepared{}, 0, fmt.Errorf("encode training set: %w", err)
	}
	testBatch, err := encodeBatch(reg, testBin, split.TestY)
	if err != nil {
		return prepared{}, 0, fmt.Errorf("encode test set: %w", err)
	}
	encLog := logger.Component(p.log, "encoding")
	encLog.Info().
		Int("train", len(trainBatch.Circuits)).
		Int("test", len(testBatch.Circuits)).
		Float64("threshold", p.cfg.Core.BinThreshold).
		Msg("Circuits encoded")

	tpl, err := circuit.NewReadoutModel(reg)
	if err != nil {
		return prepared{}, 0, err
	}
	return prepared{tpl: tpl, train: trainBatch, test: testBatch}, workers, nil
}

func encodeBatch(reg *circuit.Register, images []dataset.Image, labels []dataset.Label) (model.Batch, error) {
	circuits, err := encoding.EncodeAll(images)
	if err != nil {
		return model.Batch{}, err
	}
	batch, err := encoding.ToBatch(reg, circuits)
	if err != nil {
		return model.Batch{}, err
	}
	return model.Batch{Circuits: batch.Circuits, Targets: dataset.Targets(labels)}, nil
}

func (p *Pipeline) newModel(tpl *circuit.Template, workers int) (*model.PQC, error) {
	adam := model.DefaultAdamConfig()
	adam.LearningRate = p.cfg.Train.LearningRate
	return model.NewPQC(tpl, model.PQCOptions{
		Seed:    p.cfg.Data.Seed,
		Workers: workers,
		Adam:    adam,
	})
}

func (p *Pipeline) runConfig() trainer.RunConfig {
	return trainer.RunConfig{
		BatchSize:   p.cfg.Train.BatchSize,
		Epochs:      p.cfg.Train.Epochs,
		Verbose:     p.cfg.Train.Verbose,
		NumExamples: p.cfg.Train.NumExamples,
		Seed:        p.cfg.Data.Seed,
	}
}
