package data

import (
	"context"
	"fmt"
	"time"

	"github.com/banachtech/capvol/calib"
	db "github.com/banachtech/capvol/db/sqlc"
	"github.com/banachtech/capvol/vol"
	"github.com/golang/glog"
	"github.com/schollz/progressbar/v3"
)

const dateLayout = "2006-01-02"

// Job pairs one curve definition with the market snapshot it calibrates to.
type Job struct {
	Definition calib.DirectFlatDefinition
	Snapshot   MarketSnapshot
}

// Recalibrate bootstraps every job and persists the results. A failed job is
// logged and skipped; the batch keeps going and the error count is reported
// at the end.
func Recalibrate(ctx context.Context, store db.Store, jobs []Job) error {
	bar := progressBar(len(jobs))
	failed := 0

	for _, job := range jobs {
		if err := runJob(ctx, store, job); err != nil {
			glog.Errorf("calibration %s failed: %v", job.Definition.Name, err)
			failed++
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if failed > 0 {
		return fmt.Errorf("%d of %d calibrations failed", failed, len(jobs))
	}
	return nil
}

func runJob(ctx context.Context, store db.Store, job Job) error {
	valuation, err := time.Parse(dateLayout, job.Snapshot.ValuationDate)
	if err != nil {
		return fmt.Errorf("valuation date: %w", err)
	}
	raw, err := job.Snapshot.Grid.Raw()
	if err != nil {
		return err
	}
	provider, err := job.Snapshot.Curve.Provider()
	if err != nil {
		return err
	}

	result, err := calib.NewCalibrator().CalibrateFlat(job.Definition, raw, provider, valuation)
	if err != nil {
		return err
	}
	glog.Infof("calibrated %s: %d iterations, residual norm %.3e",
		job.Definition.Name, result.Iterations, result.ResidualNorm)

	flat, ok := result.Model.(*vol.FlatCurve)
	if !ok {
		return fmt.Errorf("unexpected model type %T", result.Model)
	}
	cv, ok := flat.Curve(flat.Name())
	if !ok {
		return fmt.Errorf("model %s has no curve", flat.Name())
	}

	xs, ys := cv.Xs(), cv.Ys()
	nodes := make([]db.NodeValue, len(xs))
	for i := range xs {
		nodes[i] = db.NodeValue{Expiry: xs[i], Value: ys[i]}
	}

	_, err = store.SaveCalibration(ctx, db.SaveCalibrationParams{
		Name:          job.Definition.Name,
		ValuationDate: job.Snapshot.ValuationDate,
		DayCount:      string(job.Definition.DayCount),
		ValueType:     string(flat.ValueType()),
		Interpolator:  string(job.Definition.Interpolator),
		Method:        "Bootstrap",
		Converged:     result.Converged,
		Iterations:    int32(result.Iterations),
		ResidualNorm:  result.ResidualNorm,
		Nodes:         nodes,
	})
	return err
}

func progressBar(length int) *progressbar.ProgressBar {
	bar := progressbar.NewOptions(
		length,
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetVisibility(true),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionSetDescription("calibrating"),
	)
	return bar
}
