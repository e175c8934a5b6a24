package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentroll-payment-ledger/internal/review_api/middleware"
)

// Response is the envelope of every API reply
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo carries pagination for list endpoints
type MetaInfo struct {
	Page       int   `json:"page,omitempty"`
	PerPage    int   `json:"per_page,omitempty"`
	TotalPages int64 `json:"total_pages"`
	TotalItems int64 `json:"total_items"`
}

func newMeta(page, perPage int, totalItems int64) *MetaInfo {
	pages := totalItems / int64(perPage)
	if totalItems%int64(perPage) > 0 {
		pages++
	}
	return &MetaInfo{
		Page:       page,
		PerPage:    perPage,
		TotalPages: pages,
		TotalItems: totalItems,
	}
}

func respond(c *gin.Context, statusCode int, response *Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, &Response{Data: data})
}

// RespondPage sends a 200 with pagination metadata
func RespondPage(c *gin.Context, data interface{}, page, perPage int, totalItems int64) {
	respond(c, http.StatusOK, &Response{Data: data, Meta: newMeta(page, perPage, totalItems)})
}

func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	respond(c, statusCode, &Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

func RespondTooLarge(c *gin.Context, message string) {
	RespondWithError(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", message)
}

// RespondUnprocessable reports input that was well-formed HTTP but not a usable export
func RespondUnprocessable(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", message)
}

func RespondServiceUnavailable(c *gin.Context, message string) {
	RespondWithError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message)
}

func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
