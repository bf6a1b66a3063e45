package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/banachtech/capvol/api"
	"github.com/banachtech/capvol/calib"
	"github.com/banachtech/capvol/curve"
	"github.com/banachtech/capvol/data"
	"github.com/banachtech/capvol/daycount"
	db "github.com/banachtech/capvol/db/sqlc"
	"github.com/banachtech/capvol/interp"
	"github.com/banachtech/capvol/vol"
	"github.com/golang/glog"
)

const layout = "2006-01-02"

func main() {
	flag.Parse()
	defer glog.Flush()

	conn, err := db.ConnectDB()
	if err != nil {
		glog.Warningf("no database, running the standalone demo: %v", err)
		if err := demo(); err != nil {
			fmt.Println(err)
			os.Exit(-1)
		}
		return
	}
	store := db.NewStore(conn)

	if err := recalibrateAll(store); err != nil {
		glog.Errorf("startup recalibration: %v", err)
	}

	address := os.Getenv("SERVER_ADDRESS")
	if address == "" {
		address = "0.0.0.0:8080"
	}
	server := api.NewServer(store)
	if err := server.Start(address); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}

// recalibrateAll bootstraps every snapshot in the data directory so the API
// serves fresh surfaces from the first request.
func recalibrateAll(store db.Store) error {
	paths, err := data.ListSnapshots(data.SnapshotDir())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}

	def := calib.NewDirectFlatDefinition("usd-capvol", "usd-libor-3m", daycount.Act365F, interp.TimeSquare, 0.07)
	jobs := make([]data.Job, 0, len(paths))
	for _, p := range paths {
		snap, err := data.LoadSnapshot(p)
		if err != nil {
			return err
		}
		jobs = append(jobs, data.Job{Definition: def, Snapshot: snap})
	}
	return data.Recalibrate(context.Background(), store, jobs)
}

// demo bootstraps a term structure of caplet volatilities from a small flat
// cap quote grid and prints the resulting curve.
func demo() error {
	grid := data.QuoteGrid{
		ValueType: string(vol.BlackVolatility),
		Expiries:  []float64{1.0, 3.0, 5.0},
		Values:    [][]float64{{0.18}, {0.15}, {0.115}},
	}
	raw, err := grid.Raw()
	if err != nil {
		return err
	}
	flatRate := 0.02
	provider, err := data.CurveSpec{FlatRate: &flatRate}.Provider()
	if err != nil {
		return err
	}
	valuation, _ := time.Parse(layout, time.Now().Format(layout))

	def := calib.NewDirectFlatDefinition("usd-capvol", "usd-libor-3m", daycount.Act365F, interp.TimeSquare, 0.07)
	result, err := calib.NewCalibrator().CalibrateFlat(def, raw, provider, valuation)
	if err != nil {
		return err
	}
	fmt.Printf("bootstrapped %s in %d iterations, residual norm %.3e\n",
		def.Name, result.Iterations, result.ResidualNorm)
	for _, e := range []float64{0.5, 1.0, 2.0, 3.0, 4.0, 5.0} {
		fwd := provider.Forward(e, e+0.25)
		fmt.Printf("  %4.2fy caplet vol %.4f\n", e, result.Model.Volatility(e, fwd, fwd))
	}

	return demoSABR(provider, valuation)
}

// demoSABR fits a one-expiry SABR smile and prints the fitted parameters.
func demoSABR(provider curve.Provider, valuation time.Time) error {
	grid := data.QuoteGrid{
		ValueType: string(vol.BlackVolatility),
		Expiries:  []float64{2.0},
		Strikes:   []float64{0.01, 0.015, 0.02, 0.025, 0.03},
		Values:    [][]float64{{0.34, 0.31, 0.295, 0.30, 0.315}},
	}
	raw, err := grid.Raw()
	if err != nil {
		return err
	}
	spec := data.SABRSpec{
		Name:         "usd-sabr-demo",
		Index:        "usd-libor-3m",
		IndexTenor:   0.25,
		DayCount:     string(daycount.Act365F),
		Interpolator: string(interp.Linear),
		AlphaKnots:   []float64{2.0},
		RhoKnots:     []float64{2.0},
		NuKnots:      []float64{2.0},
		FixedBeta:    &data.CurveNodes{Xs: []float64{2.0}, Ys: []float64{0.5}},
		InitialAlpha: 0.04,
		InitialRho:   -0.1,
		InitialNu:    0.6,
	}
	def, err := spec.Definition()
	if err != nil {
		return err
	}
	result, err := calib.NewCalibrator().CalibrateSABR(def, raw, provider, valuation)
	if err != nil {
		return err
	}
	fmt.Printf("fitted %s in %d iterations, residual norm %.3e\n",
		def.Name, result.Iterations, result.ResidualNorm)
	names := result.Model.ParameterNames()
	if sabr, ok := result.Model.(*vol.SABR); ok {
		for i, v := range sabr.FreeValues() {
			fmt.Printf("  %-12s %.5f\n", names[i], v)
		}
	}
	return nil
}
