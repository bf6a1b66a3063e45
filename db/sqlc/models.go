package db

import (
	"database/sql"
	"time"
)

type Surface struct {
	ID            int64
	Name          string
	ValuationDate string
	DayCount      string
	ValueType     string
	Interpolator  string
	CreatedAt     time.Time
}

type Surfacenode struct {
	SurfaceID int64
	Expiry    float64
	Strike    sql.NullFloat64
	Value     float64
}

type Calibrationrun struct {
	ID           int64
	SurfaceID    int64
	Method       string
	Converged    bool
	Iterations   int32
	ResidualNorm float64
	CreatedAt    time.Time
}

type User struct {
	EmailAddress string
	Prefix       string
	Token        string
	GeneratedAt  string
	ExpiredAt    string
}
