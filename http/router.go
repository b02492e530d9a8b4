package http

import (
	"net/http"

	libHttp "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// NewHttpRouter exposes the read-only surface of the ledger: health,
// metrics and the current stock counters. All writes go through the
// bus.
func NewHttpRouter(stockRepo StockRepository) *echo.Echo {
	e := libHttp.NewEcho()
	e.Use(otelecho.Middleware("svc-stock"))

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handler := Handler{
		stockRepo: stockRepo,
	}

	e.GET("/stocks", handler.GetStocks)
	e.GET("/stocks/:product_id", handler.GetStockByProductID)

	return e
}
