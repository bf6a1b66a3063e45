package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Store provides all functions to execute queries and transactions.
type Store interface {
	GetUser(ctx context.Context, prefix string) (User, error)
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	SaveCalibration(ctx context.Context, arg SaveCalibrationParams) (SaveCalibrationResult, error)
	LoadLatestSurface(ctx context.Context, name string) (LoadSurfaceResult, error)
}

type SQLStore struct {
	db *sql.DB
	*Queries
}

func NewStore(db *sql.DB) Store {
	return &SQLStore{db: db, Queries: New(db)}
}

// execTx executes a function within a database transaction.
func (store *SQLStore) execTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	q := New(tx)
	err = fn(q)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// NodeValue is one stored surface node. Strike is nil for strike-flat
// curves.
type NodeValue struct {
	Expiry float64
	Strike *float64
	Value  float64
}

type SaveCalibrationParams struct {
	Name          string
	ValuationDate string
	DayCount      string
	ValueType     string
	Interpolator  string
	Method        string
	Converged     bool
	Iterations    int32
	ResidualNorm  float64
	Nodes         []NodeValue
}

type SaveCalibrationResult struct {
	Surface Surface
	Run     Calibrationrun
}

type LoadSurfaceResult struct {
	Surface Surface
	Run     Calibrationrun
	Nodes   []Surfacenode
}

// SaveCalibration writes the surface header, its nodes and the run record in
// one transaction, so readers never observe a surface without its nodes.
func (store *SQLStore) SaveCalibration(ctx context.Context, arg SaveCalibrationParams) (SaveCalibrationResult, error) {
	var result SaveCalibrationResult
	err := store.execTx(ctx, func(q *Queries) error {
		var err error

		result.Surface, err = q.CreateSurface(ctx, CreateSurfaceParams{
			Name:          arg.Name,
			ValuationDate: arg.ValuationDate,
			DayCount:      arg.DayCount,
			ValueType:     arg.ValueType,
			Interpolator:  arg.Interpolator,
		})
		if err != nil {
			return err
		}

		for _, node := range arg.Nodes {
			strike := sql.NullFloat64{}
			if node.Strike != nil {
				strike = sql.NullFloat64{Float64: *node.Strike, Valid: true}
			}
			err = q.CreateSurfaceNode(ctx, CreateSurfaceNodeParams{
				SurfaceID: result.Surface.ID,
				Expiry:    node.Expiry,
				Strike:    strike,
				Value:     node.Value,
			})
			if err != nil {
				return err
			}
		}

		result.Run, err = q.CreateCalibrationRun(ctx, CreateCalibrationRunParams{
			SurfaceID:    result.Surface.ID,
			Method:       arg.Method,
			Converged:    arg.Converged,
			Iterations:   arg.Iterations,
			ResidualNorm: arg.ResidualNorm,
		})
		return err
	})
	return result, err
}

// LoadLatestSurface reads the most recent surface with the given name, its
// nodes and the run that produced it in one transaction.
func (store *SQLStore) LoadLatestSurface(ctx context.Context, name string) (LoadSurfaceResult, error) {
	var result LoadSurfaceResult
	err := store.execTx(ctx, func(q *Queries) error {
		var err error

		result.Surface, err = q.GetLatestSurface(ctx, name)
		if err != nil {
			return err
		}

		result.Nodes, err = q.GetSurfaceNodes(ctx, result.Surface.ID)
		if err != nil {
			return err
		}

		result.Run, err = q.GetLatestRun(ctx, result.Surface.ID)
		return err
	})
	return result, err
}
