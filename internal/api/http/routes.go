package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/airquality-etl/internal/history"
	"github.com/i474232898/airquality-etl/internal/pipeline"
	"github.com/i474232898/airquality-etl/internal/store"
)

var validate = validator.New()

// Readings reads persisted rows from the destination table.
type Readings interface {
	Range(ctx context.Context, from, to time.Time) ([]store.Record, error)
}

// Runs exposes recorded pipeline runs.
type Runs interface {
	Latest() (pipeline.Report, error)
	Range(from, to time.Time) ([]pipeline.Report, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, readings Readings, runs Runs) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/air-quality", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := readings.Range(c.UserContext(), req.From, req.To)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch air quality readings")
		}
		if len(records) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no air quality readings for requested range")
		}

		return c.JSON(fiber.Map{
			"from":     req.From,
			"to":       req.To,
			"readings": records,
		})
	})

	v1.Get("/runs/latest", func(c *fiber.Ctx) error {
		rep, err := runs.Latest()
		if err != nil {
			if errors.Is(err, history.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no pipeline runs recorded")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch latest run")
		}
		return c.JSON(rep)
	})

	v1.Get("/runs", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reports, err := runs.Range(req.From, req.To)
		if err != nil {
			if errors.Is(err, history.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no pipeline runs for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch pipeline runs")
		}

		return c.JSON(fiber.Map{
			"from": req.From,
			"to":   req.To,
			"runs": reports,
		})
	})
}

// rangeQuery holds the from/to query parameters shared by range endpoints.
type rangeQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (q *rangeQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	q.From = from
	q.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
