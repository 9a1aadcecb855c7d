package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/phishsim/internal/middleware"
	"github.com/xxxsen/phishsim/internal/pkg/errcode"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
	"github.com/xxxsen/phishsim/internal/pkg/response"
)

func getUserID(c *gin.Context) int64 {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(int64)
	return userID
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid "+name)
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, message string) {
	response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, message)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int64("user_id", getUserID(c)),
		zap.Error(err),
	)
	var (
		conflict   *appErr.ConflictError
		validation *appErr.ValidationError
	)
	switch {
	case errors.Is(err, appErr.ErrDelivery):
		response.Error(c, http.StatusInternalServerError, errcode.ErrDeliveryFailed, "mail delivery failed")
	case errors.As(err, &conflict):
		response.ErrorWithData(c, http.StatusConflict, errcode.ErrConflict, "already registered", gin.H{"conflicts": conflict.Fields})
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, http.StatusConflict, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTokenExpired):
		response.Error(c, http.StatusUnauthorized, errcode.ErrTokenExpired, "token expired")
	case errors.Is(err, appErr.ErrTokenInvalid), errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrNotVerified):
		response.Error(c, http.StatusBadRequest, errcode.ErrNotVerified, "email not verified")
	case errors.As(err, &validation):
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, validation.Reason)
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, "too many requests")
	default:
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, err.Error())
	}
}
