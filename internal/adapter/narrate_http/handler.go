package narrate_http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"placetale/internal/domain"
	"placetale/internal/usecase"
)

type Handler struct {
	narrate usecase.NarrateUsecase
	framer  Framer
	log     *slog.Logger
}

func NewHandler(narrate usecase.NarrateUsecase, log *slog.Logger) *Handler {
	return &Handler{
		narrate: narrate,
		log:     log,
	}
}

type narrateRequest struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	BudgetMs int     `json:"budget_ms,omitempty"`
}

// Narrate handles POST /v1/narrate: the full pipeline, one JSON response.
func (h *Handler) Narrate(ctx echo.Context) error {
	var req narrateRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	input := usecase.NarrateInput{
		Point:    pointFromRequest(req),
		BudgetMs: req.BudgetMs,
	}
	if !input.Point.Valid() {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid coordinates"})
	}

	output, err := h.narrate.Execute(ctx.Request().Context(), input)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusOK, output)
}

// NarrateStream handles POST /v1/narrate/stream: the framed event stream.
// Domain errors become a message frame followed by END; the transport itself
// never fails open-ended.
func (h *Handler) NarrateStream(ctx echo.Context) error {
	var req narrateRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	input := usecase.NarrateInput{
		Point:    pointFromRequest(req),
		BudgetMs: req.BudgetMs,
	}

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "text/plain; charset=utf-8")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.WriteHeader(http.StatusOK)

	reqCtx := ctx.Request().Context()
	events := h.narrate.Stream(reqCtx, input)

	for event := range events {
		var frame string
		switch event.Kind {
		case usecase.StreamEventKindMeta:
			payload, err := json.Marshal(event.Meta)
			if err != nil {
				h.log.Error("failed to marshal stream meta", slog.String("error", err.Error()))
				frame = h.framer.EncodeFrame("internal error preparing metadata")
				break
			}
			frame = h.framer.EncodeFrame(MetaPrefix + string(payload))
		case usecase.StreamEventKindContent:
			frame = h.framer.EncodeFrame(event.Text)
		case usecase.StreamEventKindError:
			frame = h.framer.EncodeFrame(event.Message)
		case usecase.StreamEventKindDone:
			continue
		}

		if _, err := resp.Write([]byte(frame)); err != nil {
			// Caller disconnected mid-stream; nothing more to deliver.
			return nil
		}
		resp.Flush()
	}

	if reqCtx.Err() != nil {
		// No terminal frame for a caller that already went away.
		return nil
	}

	if _, err := resp.Write([]byte(Framer{}.EncodeFrame(EndSentinel))); err == nil {
		resp.Flush()
	}
	return nil
}

// Healthz reports liveness.
func (h *Handler) Healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports readiness. The pipeline holds no connections of its own, so
// readiness equals liveness.
func (h *Handler) Readyz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// Register attaches all routes to the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/v1/narrate", h.Narrate)
	e.POST("/v1/narrate/stream", h.NarrateStream)
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
}

func pointFromRequest(req narrateRequest) domain.GeoPoint {
	return domain.GeoPoint{Lat: req.Lat, Lon: req.Lon}
}
