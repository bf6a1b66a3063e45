package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/banachtech/capvol/calib"
	"github.com/banachtech/capvol/curve"
	"github.com/banachtech/capvol/data"
	db "github.com/banachtech/capvol/db/sqlc"
	"github.com/banachtech/capvol/interp"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type calibrateSABRRequest struct {
	ValuationDate string         `json:"valuation_date" binding:"required"`
	Definition    data.SABRSpec  `json:"definition" binding:"required"`
	Curve         data.CurveSpec `json:"curve" binding:"required"`
	Grid          data.QuoteGrid `json:"grid" binding:"required"`
	Method        string         `json:"method"`
}

func (server *Server) calibrateSABR(c *gin.Context) {
	var req calibrateSABRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	valuation, err := time.Parse(dateLayout, req.ValuationDate)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	def, err := req.Definition.Definition()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	raw, err := req.Grid.Raw()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	provider, err := req.Curve.Provider()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	calibrator := calib.NewCalibrator()
	if req.Method != "" {
		calibrator.Method = calib.Method(req.Method)
	}

	result, err := calibrator.CalibrateSABR(def, raw, provider, valuation)
	if err != nil {
		var nc *calib.NonConvergenceError
		if errors.As(err, &nc) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"error":         nc.Error(),
				"iterations":    nc.Iterations,
				"residual_norm": nc.ResidualNorm,
			})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	saved, err := server.store.SaveCalibration(c, db.SaveCalibrationParams{
		Name:          def.Name,
		ValuationDate: req.ValuationDate,
		DayCount:      string(def.DayCount),
		ValueType:     string(raw.ValueType()),
		Interpolator:  string(def.Interpolator),
		Method:        string(calibrator.Method),
		Converged:     result.Converged,
		Iterations:    int32(result.Iterations),
		ResidualNorm:  result.ResidualNorm,
		Nodes:         sampledNodes(result, raw, provider, def.IndexTenor),
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"surface_id":    saved.Surface.ID,
		"converged":     result.Converged,
		"iterations":    result.Iterations,
		"residual_norm": result.ResidualNorm,
		"parameters":    result.Model.ParameterNames(),
	})
}

// sampledNodes snapshots the calibrated model at the quote grid points for
// persistence.
func sampledNodes(result calib.Result, raw calib.RawOptionData, provider curve.Provider, tenor float64) []db.NodeValue {
	if tenor <= 0 {
		tenor = 0.25
	}
	var nodes []db.NodeValue
	strikes := raw.Strikes()
	for _, e := range raw.Expiries() {
		fwd := provider.Forward(e, e+tenor)
		if len(strikes) == 0 {
			nodes = append(nodes, db.NodeValue{Expiry: e, Value: result.Model.Volatility(e, fwd, fwd)})
			continue
		}
		for _, k := range strikes {
			strike := k
			nodes = append(nodes, db.NodeValue{
				Expiry: e,
				Strike: &strike,
				Value:  result.Model.Volatility(e, k, fwd),
			})
		}
	}
	return nodes
}

type calibrateFlatRequest struct {
	ValuationDate string                     `json:"valuation_date" binding:"required"`
	Definition    calib.DirectFlatDefinition `json:"definition" binding:"required"`
	Curve         data.CurveSpec             `json:"curve" binding:"required"`
	Grid          data.QuoteGrid             `json:"grid" binding:"required"`
}

func (server *Server) calibrateFlat(c *gin.Context) {
	var req calibrateFlatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	valuation, err := time.Parse(dateLayout, req.ValuationDate)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	def := req.Definition
	if def.Interpolator == "" {
		def.Interpolator = interp.Linear
	}
	if def.ExtrapolatorLeft == "" {
		def.ExtrapolatorLeft = interp.FlatExtrapolation
	}
	if def.ExtrapolatorRight == "" {
		def.ExtrapolatorRight = interp.FlatExtrapolation
	}

	raw, err := req.Grid.Raw()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	provider, err := req.Curve.Provider()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	result, err := calib.NewCalibrator().CalibrateFlat(def, raw, provider, valuation)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	saved, err := server.store.SaveCalibration(c, db.SaveCalibrationParams{
		Name:          def.Name,
		ValuationDate: req.ValuationDate,
		DayCount:      string(def.DayCount),
		ValueType:     string(raw.ValueType()),
		Interpolator:  string(def.Interpolator),
		Method:        "Bootstrap",
		Converged:     result.Converged,
		Iterations:    int32(result.Iterations),
		ResidualNorm:  result.ResidualNorm,
		Nodes:         sampledNodes(result, raw, provider, def.IndexTenor),
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"surface_id":    saved.Surface.ID,
		"converged":     result.Converged,
		"iterations":    result.Iterations,
		"residual_norm": result.ResidualNorm,
	})
}
