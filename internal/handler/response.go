// Package handler exposes the memory backend over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

// fail maps domain errors to HTTP status codes and writes a JSON body.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrEmbeddingUnavailable),
		errors.Is(err, errs.ErrIndexUnavailable),
		errors.Is(err, errs.ErrRetrievalUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		logger.GetLogger(c.Request.Context()).WithError(err).Error("request failed")
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}
