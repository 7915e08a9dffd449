package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/synheart/synheart-stress/internal/metrics"
	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/pipeline"
)

// TrendResponse is returned by the trend endpoint.
type TrendResponse struct {
	WindowSeconds int `json:"window_seconds"`
	models.TrendResult
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":        "synheart-stress",
		"uptime_seconds": int(time.Since(s.started) / time.Second),
		"endpoints": []string{
			"/api/biometric-data",
			"/api/biometric-data/history",
			"/api/biometric-data/range?seconds=N",
			"/api/biometric-data/trend?seconds=N",
			"/api/profiles",
			"/health",
		},
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, metrics.ContentType)
	return s.metrics.WriteText(c)
}

func (s *Server) handleProfiles(c *fiber.Ctx) error {
	return c.JSON(s.service.Profiles())
}

// handleCurrent serves the latest snapshot, optionally for ?profile=name.
func (s *Server) handleCurrent(c *fiber.Ctx) error {
	// Query values alias fiber's request buffer; the service keeps names.
	snap, err := s.service.Current(utils.CopyString(c.Query("profile")))
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	return c.JSON(models.NewHistoryResponse(s.service.History()))
}

func (s *Server) handleRange(c *fiber.Ctx) error {
	d, err := models.ParseSeconds("seconds", c.Query("seconds"))
	if err != nil {
		return err
	}
	return c.JSON(models.NewHistoryResponse(s.service.Range(d)))
}

// handleTrend defaults to the configured trend window when seconds is absent.
func (s *Server) handleTrend(c *fiber.Ctx) error {
	d := s.service.State().TrendWindow()
	if raw := c.Query("seconds"); raw != "" {
		var err error
		if d, err = models.ParseSeconds("seconds", raw); err != nil {
			return err
		}
	}
	return c.JSON(TrendResponse{
		WindowSeconds: int(d / time.Second),
		TrendResult:   s.service.Trend(d),
	})
}

// handleError maps handler errors onto JSON error bodies.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var verr *models.ValidationError
	var ferr *fiber.Error
	switch {
	case errors.As(err, &verr):
		return writeError(c, fiber.StatusBadRequest, verr.Error(), verr.Field)
	case errors.Is(err, pipeline.ErrUnknownProfile):
		return writeError(c, fiber.StatusNotFound, err.Error(), "profile")
	case errors.As(err, &ferr):
		return writeError(c, ferr.Code, ferr.Message, "")
	default:
		return writeError(c, fiber.StatusInternalServerError, err.Error(), "")
	}
}

func writeError(c *fiber.Ctx, status int, message, field string) error {
	body := fiber.Map{"error": message}
	if field != "" {
		body["field"] = field
	}
	return c.Status(status).JSON(body)
}
