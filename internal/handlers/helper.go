package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func ParseStringIDParam(c *gin.Context, param string) string {
	idStr := c.Param(param)
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return ""
	}
	return idStr
}

// attachmentName builds the download file name for an export.
func attachmentName(base, format string) string {
	return base + "." + format
}

func contentTypeFor(format string) string {
	if format == "csv" {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func sendFile(c *gin.Context, base, format string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+attachmentName(base, format)+`"`)
	c.Data(http.StatusOK, contentTypeFor(format), data)
}
