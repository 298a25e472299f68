package server

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (s *Server) userStats(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	stats, err := s.stats.JobStats(c.Context(), userID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not load stats")
	}
	return c.JSON(stats)
}

func (s *Server) userExport(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	from, err := parseDateQuery(c.Query("from"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
	}
	to, err := parseDateQuery(c.Query("to"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
	}

	data, err := s.exporter.ExportTransactionsXLSX(c.Context(), userID, from, to)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "export failed")
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="transactions.xlsx"`)
	return c.Send(data)
}

func parseDateQuery(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// splitExt separates a filename into its base name and dot-less extension.
func splitExt(filename string) (string, string) {
	ext := filepath.Ext(filename)
	return strings.TrimSuffix(filename, ext), strings.TrimPrefix(ext, ".")
}
