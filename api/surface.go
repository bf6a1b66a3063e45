package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/banachtech/capvol/daycount"
	db "github.com/banachtech/capvol/db/sqlc"
	"github.com/banachtech/capvol/interp"
	"github.com/banachtech/capvol/vol"
	"github.com/gin-gonic/gin"
)

type surfaceNodeResponse struct {
	Expiry float64  `json:"expiry"`
	Strike *float64 `json:"strike,omitempty"`
	Value  float64  `json:"value"`
}

func (server *Server) getSurface(c *gin.Context) {
	name := c.Param("name")

	result, err := server.store.LoadLatestSurface(c, name)
	if err != nil {
		if err == sql.ErrNoRows {
			c.AbortWithStatusJSON(http.StatusNotFound, errorResponse(err))
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	nodes := make([]surfaceNodeResponse, len(result.Nodes))
	for i, n := range result.Nodes {
		nodes[i] = surfaceNodeResponse{Expiry: n.Expiry, Value: n.Value}
		if n.Strike.Valid {
			strike := n.Strike.Float64
			nodes[i].Strike = &strike
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"name":           result.Surface.Name,
		"valuation_date": result.Surface.ValuationDate,
		"day_count":      result.Surface.DayCount,
		"value_type":     result.Surface.ValueType,
		"interpolator":   result.Surface.Interpolator,
		"converged":      result.Run.Converged,
		"residual_norm":  result.Run.ResidualNorm,
		"nodes":          nodes,
	})
}

type volPoint struct {
	Expiry float64 `json:"expiry"`
	Strike float64 `json:"strike"`
}

type evaluateRequest struct {
	Name   string     `json:"name" binding:"required"`
	Points []volPoint `json:"points" binding:"required,min=1"`
}

// evaluate rebuilds the latest stored surface with that name and reads it at
// the requested points.
func (server *Server) evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	stored, err := server.store.LoadLatestSurface(c, req.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			c.AbortWithStatusJSON(http.StatusNotFound, errorResponse(err))
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	model, err := modelFromStored(stored)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	vols := make([]float64, len(req.Points))
	for i, pt := range req.Points {
		vols[i] = model.Volatility(pt.Expiry, pt.Strike, pt.Strike)
	}

	c.JSON(http.StatusOK, gin.H{
		"name":       req.Name,
		"value_type": stored.Surface.ValueType,
		"vols":       vols,
	})
}

// modelFromStored reassembles a volatility model from its persisted nodes.
// Rows without strikes rebuild a flat curve; full grids rebuild a nodal
// surface.
func modelFromStored(stored db.LoadSurfaceResult) (vol.Model, error) {
	valuation, err := time.Parse(dateLayout, stored.Surface.ValuationDate)
	if err != nil {
		return nil, fmt.Errorf("valuation date: %w", err)
	}
	kind := interp.Kind(stored.Surface.Interpolator)
	dc := daycount.Convention(stored.Surface.DayCount)
	valueType := vol.ValueType(stored.Surface.ValueType)

	flat := true
	for _, n := range stored.Nodes {
		if n.Strike.Valid {
			flat = false
			break
		}
	}

	if flat {
		xs := make([]float64, len(stored.Nodes))
		ys := make([]float64, len(stored.Nodes))
		for i, n := range stored.Nodes {
			xs[i], ys[i] = n.Expiry, n.Value
		}
		cv, err := interp.NewCurve(kind, xs, ys, interp.FlatExtrapolation, interp.FlatExtrapolation)
		if err != nil {
			return nil, err
		}
		return vol.NewFlatCurve(stored.Surface.Name, valuation, dc, valueType, cv)
	}

	var expiries, strikes []float64
	for _, n := range stored.Nodes {
		if len(expiries) == 0 || n.Expiry != expiries[len(expiries)-1] {
			expiries = append(expiries, n.Expiry)
		}
	}
	for _, n := range stored.Nodes {
		if n.Expiry != expiries[0] {
			break
		}
		strikes = append(strikes, n.Strike.Float64)
	}
	if len(expiries)*len(strikes) != len(stored.Nodes) {
		return nil, fmt.Errorf("stored surface %s has a ragged node grid", stored.Surface.Name)
	}

	values := make([][]float64, len(expiries))
	for i := range expiries {
		values[i] = make([]float64, len(strikes))
		for j := range strikes {
			values[i][j] = stored.Nodes[i*len(strikes)+j].Value
		}
	}
	return vol.NewSurface(vol.SurfaceConfig{
		Name:               stored.Surface.Name,
		Valuation:          valuation,
		DayCount:           dc,
		ValueType:          valueType,
		Expiries:           expiries,
		Strikes:            strikes,
		Values:             values,
		TimeInterpolator:   kind,
		StrikeInterpolator: kind,
	})
}
