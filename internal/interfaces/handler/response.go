package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"astrodash/internal/application/apperr"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, errorResponse{Code: status, Message: message})
}

// Fail maps an application error to its HTTP status.
func Fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrInvalidArgument):
		Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrStorage):
		log.Error().Err(err).Str("path", c.FullPath()).Msg("storage failure")
		Error(c, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		Error(c, http.StatusInternalServerError, err.Error())
	}
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}
