package db

import (
	"context"
	"testing"

	"github.com/banachtech/capvol/util"
	"github.com/stretchr/testify/require"
)

func randomCalibration() SaveCalibrationParams {
	n := int(util.RandomInt(2, 5))
	nodes := make([]NodeValue, n)
	expiry := 0.0
	for i := range nodes {
		expiry += util.RandomExpiry()
		nodes[i] = NodeValue{Expiry: expiry, Value: util.RandomVol()}
	}
	return SaveCalibrationParams{
		Name:          util.RandomSurfaceName(),
		ValuationDate: util.RandomDate(),
		DayCount:      "ACT/365F",
		ValueType:     "BlackVolatility",
		Interpolator:  "TimeSquare",
		Method:        "LevenbergMarquardt",
		Converged:     true,
		Iterations:    util.RandomInt(1, 100),
		ResidualNorm:  util.RandomVol() / 1000.0,
		Nodes:         nodes,
	}
}

func TestSaveCalibration(t *testing.T) {
	requireDB(t)
	store := NewStore(testDB)

	arg := randomCalibration()
	result, err := store.SaveCalibration(context.Background(), arg)
	require.NoError(t, err)
	require.NotZero(t, result.Surface.ID)
	require.Equal(t, arg.Name, result.Surface.Name)
	require.Equal(t, arg.ValuationDate, result.Surface.ValuationDate)
	require.Equal(t, result.Surface.ID, result.Run.SurfaceID)
	require.Equal(t, arg.Method, result.Run.Method)
	require.True(t, result.Run.Converged)
}

func TestLoadLatestSurface(t *testing.T) {
	requireDB(t)
	store := NewStore(testDB)

	arg := randomCalibration()
	strike := 0.02
	arg.Nodes[0].Strike = &strike

	saved, err := store.SaveCalibration(context.Background(), arg)
	require.NoError(t, err)

	loaded, err := store.LoadLatestSurface(context.Background(), arg.Name)
	require.NoError(t, err)
	require.Equal(t, saved.Surface.ID, loaded.Surface.ID)
	require.Equal(t, saved.Run.ID, loaded.Run.ID)
	require.Len(t, loaded.Nodes, len(arg.Nodes))

	require.True(t, loaded.Nodes[0].Strike.Valid)
	require.Equal(t, strike, loaded.Nodes[0].Strike.Float64)
	for i, node := range loaded.Nodes {
		require.Equal(t, arg.Nodes[i].Expiry, node.Expiry)
		require.Equal(t, arg.Nodes[i].Value, node.Value)
	}
}

func TestSaveCalibrationConcurrent(t *testing.T) {
	requireDB(t)
	store := NewStore(testDB)

	n := 5
	errs := make(chan error)
	results := make(chan SaveCalibrationResult)

	// run n concurrent transactions
	for i := 0; i < n; i++ {
		go func() {
			result, err := store.SaveCalibration(context.Background(), randomCalibration())
			errs <- err
			results <- result
		}()
	}
	for i := 0; i < n; i++ {
		err := <-errs
		require.NoError(t, err)
		result := <-results
		require.NotZero(t, result.Surface.ID)
		require.Equal(t, result.Surface.ID, result.Run.SurfaceID)
	}
}

func TestCreateAndGetUser(t *testing.T) {
	requireDB(t)
	store := NewStore(testDB)

	prefix, secret, err := util.GenerateToken()
	require.NoError(t, err)

	arg := CreateUserParams{
		EmailAddress: util.RandomEmail(),
		Prefix:       prefix,
		Token:        secret,
		GeneratedAt:  "2024-03-01 00:00:00",
		ExpiredAt:    "2030-03-01 00:00:00",
	}
	created, err := store.CreateUser(context.Background(), arg)
	require.NoError(t, err)
	require.Equal(t, arg.Prefix, created.Prefix)

	got, err := store.GetUser(context.Background(), prefix)
	require.NoError(t, err)
	require.Equal(t, arg.EmailAddress, got.EmailAddress)
	require.Equal(t, arg.Token, got.Token)
}
