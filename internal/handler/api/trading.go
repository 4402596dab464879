package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lotoos0/memex-sim/internal/domain/models"
	"github.com/lotoos0/memex-sim/internal/ledger"
	"github.com/lotoos0/memex-sim/internal/usecase"
	xhttp "github.com/lotoos0/memex-sim/pkg/http"
	xlogger "github.com/lotoos0/memex-sim/pkg/logger"
)

// TradingHandler exposes the simulation over HTTP: order entry, position
// management, candles, live controls and manual event injection.
type TradingHandler struct {
	logger *xlogger.Logger
	sim    *usecase.Simulation
}

func NewTradingHandler(logger *xlogger.Logger, sim *usecase.Simulation) *TradingHandler {
	return &TradingHandler{logger: logger, sim: sim}
}

func (h *TradingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/state", h.State)
	g.GET("/candles", h.Candles)
	g.POST("/orders", h.PlaceOrder)
	g.DELETE("/orders/:id", h.CancelOrder)
	g.PUT("/position/sltp", h.SetSLTP)
	g.POST("/position/close", h.ClosePosition)
	g.POST("/events", h.InjectEvent)
	g.PUT("/controls", h.SetControls)
	g.POST("/reset", h.Reset)
}

func (h *TradingHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// State returns the full snapshot: candles, orders, position, trades,
// history and realized P&L.
func (h *TradingHandler) State(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.sim.State())
}

func (h *TradingHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	candles := h.sim.Candles(req.Limit)
	return xhttp.ListResponse(c, candles, int64(len(candles)))
}

func (h *TradingHandler) PlaceOrder(c echo.Context) error {
	req := &models.PlaceOrderRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	params := usecase.PlaceOrderParams{
		Side:       models.Side(req.Side),
		Type:       models.OrderType(req.Type),
		Qty:        req.Qty,
		Price:      req.Price,
		Trigger:    req.Trigger,
		SlPct:      req.SlPct,
		TpPct:      req.TpPct,
		ReduceOnly: req.ReduceOnly,
	}
	if req.SlippagePct != nil {
		params.SlippagePct = *req.SlippagePct
	}

	o, err := h.sim.PlaceOrder(params)
	if err != nil {
		if errors.Is(err, usecase.ErrRateLimited) {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError(err.Error()))
		}
		h.logger.Warn("order rejected", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.CreatedResponse(c, o)
}

func (h *TradingHandler) CancelOrder(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("order id required"))
	}
	if err := h.sim.CancelOrder(id); err != nil {
		if errors.Is(err, ledger.ErrOrderNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("order %s not found", id))
		}
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	}
	return xhttp.NoContentResponse(c)
}

func (h *TradingHandler) SetSLTP(c echo.Context) error {
	req := &models.SetSLTPRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.sim.SetStopLossTakeProfit(req.StopLoss, req.TakeProfit); err != nil {
		if errors.Is(err, ledger.ErrNoPosition) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
		}
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, h.sim.State().Position)
}

func (h *TradingHandler) ClosePosition(c echo.Context) error {
	req := &models.ClosePositionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	o, err := h.sim.ClosePercent(req.Pct)
	if err != nil {
		if errors.Is(err, ledger.ErrNoPosition) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
		}
		if errors.Is(err, usecase.ErrRateLimited) {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError(err.Error()))
		}
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.CreatedResponse(c, o)
}

func (h *TradingHandler) InjectEvent(c echo.Context) error {
	req := &models.InjectEventRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ev, err := h.sim.InjectEvent(req.Type)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	h.logger.Info("event injected",
		xlogger.String("id", ev.ID),
		xlogger.String("type", ev.Type))
	return xhttp.CreatedResponse(c, ev)
}

// SetControls applies live tuning knobs. Each field is optional; a timeframe
// change rebuilds the candle series and returns it.
func (h *TradingHandler) SetControls(c echo.Context) error {
	req := &models.ControlsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if req.Speed != nil {
		h.sim.SetSpeed(*req.Speed)
	}
	if req.Volatility != nil {
		h.sim.SetVolatilityScale(*req.Volatility)
	}
	if req.Volume != nil {
		h.sim.SetVolumeScale(*req.Volume)
	}
	if req.EventRate != nil {
		h.sim.SetEventRateScale(*req.EventRate)
	}

	var candles []models.Candle
	if req.TimeframeSec != nil {
		var err error
		candles, err = h.sim.SetTimeframe(*req.TimeframeSec)
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		}
	}

	resp := map[string]interface{}{"applied": true}
	if candles != nil {
		resp["candles"] = candles
	}
	return xhttp.SuccessResponse(c, resp)
}

// Reset restarts the market from the initial price. Open positions survive
// and re-mark on the next tick.
func (h *TradingHandler) Reset(c echo.Context) error {
	req := &models.ResetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.sim.Reset(req.Seed)
	h.logger.Info("market reset requested", xlogger.String("seed", req.Seed))
	return xhttp.SuccessResponse(c, h.sim.State())
}
