package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/canvas-gradebook/internal/middleware"
	"github.com/noah-isme/canvas-gradebook/internal/models"
)

func canvasToken(c *gin.Context) string {
	return middleware.TokenFromContext(c)
}

// reportFormat reads the format query parameter, defaulting to CSV.
func reportFormat(raw string) models.ReportFormat {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return models.ReportFormatCSV
	}
	return models.ReportFormat(raw)
}
