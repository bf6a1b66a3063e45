package db

import (
	"context"
	"database/sql"
)

const createSurface = `
INSERT INTO surfaces (name, valuation_date, day_count, value_type, interpolator)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, name, valuation_date, day_count, value_type, interpolator, created_at
`

type CreateSurfaceParams struct {
	Name          string
	ValuationDate string
	DayCount      string
	ValueType     string
	Interpolator  string
}

func (q *Queries) CreateSurface(ctx context.Context, arg CreateSurfaceParams) (Surface, error) {
	row := q.db.QueryRowContext(ctx, createSurface, arg.Name, arg.ValuationDate, arg.DayCount, arg.ValueType, arg.Interpolator)
	var i Surface
	err := row.Scan(&i.ID, &i.Name, &i.ValuationDate, &i.DayCount, &i.ValueType, &i.Interpolator, &i.CreatedAt)
	return i, err
}

const createSurfaceNode = `
INSERT INTO surface_nodes (surface_id, expiry, strike, value)
VALUES ($1, $2, $3, $4)
`

type CreateSurfaceNodeParams struct {
	SurfaceID int64
	Expiry    float64
	Strike    sql.NullFloat64
	Value     float64
}

func (q *Queries) CreateSurfaceNode(ctx context.Context, arg CreateSurfaceNodeParams) error {
	_, err := q.db.ExecContext(ctx, createSurfaceNode, arg.SurfaceID, arg.Expiry, arg.Strike, arg.Value)
	return err
}

const createCalibrationRun = `
INSERT INTO calibration_runs (surface_id, method, converged, iterations, residual_norm)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, surface_id, method, converged, iterations, residual_norm, created_at
`

type CreateCalibrationRunParams struct {
	SurfaceID    int64
	Method       string
	Converged    bool
	Iterations   int32
	ResidualNorm float64
}

func (q *Queries) CreateCalibrationRun(ctx context.Context, arg CreateCalibrationRunParams) (Calibrationrun, error) {
	row := q.db.QueryRowContext(ctx, createCalibrationRun, arg.SurfaceID, arg.Method, arg.Converged, arg.Iterations, arg.ResidualNorm)
	var i Calibrationrun
	err := row.Scan(&i.ID, &i.SurfaceID, &i.Method, &i.Converged, &i.Iterations, &i.ResidualNorm, &i.CreatedAt)
	return i, err
}

const getLatestSurface = `
SELECT id, name, valuation_date, day_count, value_type, interpolator, created_at
FROM surfaces
WHERE name = $1
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestSurface(ctx context.Context, name string) (Surface, error) {
	row := q.db.QueryRowContext(ctx, getLatestSurface, name)
	var i Surface
	err := row.Scan(&i.ID, &i.Name, &i.ValuationDate, &i.DayCount, &i.ValueType, &i.Interpolator, &i.CreatedAt)
	return i, err
}

const getSurfaceNodes = `
SELECT surface_id, expiry, strike, value
FROM surface_nodes
WHERE surface_id = $1
ORDER BY expiry, strike NULLS FIRST
`

func (q *Queries) GetSurfaceNodes(ctx context.Context, surfaceID int64) ([]Surfacenode, error) {
	rows, err := q.db.QueryContext(ctx, getSurfaceNodes, surfaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Surfacenode
	for rows.Next() {
		var i Surfacenode
		if err := rows.Scan(&i.SurfaceID, &i.Expiry, &i.Strike, &i.Value); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getLatestRun = `
SELECT id, surface_id, method, converged, iterations, residual_norm, created_at
FROM calibration_runs
WHERE surface_id = $1
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestRun(ctx context.Context, surfaceID int64) (Calibrationrun, error) {
	row := q.db.QueryRowContext(ctx, getLatestRun, surfaceID)
	var i Calibrationrun
	err := row.Scan(&i.ID, &i.SurfaceID, &i.Method, &i.Converged, &i.Iterations, &i.ResidualNorm, &i.CreatedAt)
	return i, err
}
