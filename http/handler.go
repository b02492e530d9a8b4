package http

import (
	"context"
	"errors"
	"net/http"

	"stock/db"
	"stock/entities"

	"github.com/labstack/echo/v4"
)

type StockRepository interface {
	GetByProductID(ctx context.Context, productID string) (entities.StockRecord, error)
	List(ctx context.Context) ([]entities.StockRecord, error)
}

type Handler struct {
	stockRepo StockRepository
}

func (h Handler) GetStocks(c echo.Context) error {
	records, err := h.stockRepo.List(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, records)
}

func (h Handler) GetStockByProductID(c echo.Context) error {
	record, err := h.stockRepo.GetByProductID(c.Request().Context(), c.Param("product_id"))
	if errors.Is(err, db.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no stock record for product")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, record)
}
