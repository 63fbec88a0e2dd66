// Package api defines the JSON envelope every handler in this module
// responds with: {success, data, message, errors, pagination}.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the shape of every response body.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Errors     []FieldErr  `json:"errors,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// FieldErr is a single per-field validation complaint.
type FieldErr struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Pagination describes a page of a list endpoint.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(page, limit int, total int64) *Pagination {
	if limit <= 0 {
		limit = 1
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// OK writes a 2xx success envelope.
func OK(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

// OKPage writes a 2xx success envelope carrying a pagination block.
func OKPage(c *gin.Context, data interface{}, page *Pagination) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Pagination: page})
}

// Fail writes an error envelope at the given HTTP status.
func Fail(c *gin.Context, status int, message string, errs ...FieldErr) {
	c.JSON(status, Envelope{Success: false, Message: message, Errors: errs})
}

// HealthResponse is returned by the liveness probe.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
