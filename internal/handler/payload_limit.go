package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/phishsim/internal/pkg/errcode"
	"github.com/xxxsen/phishsim/internal/pkg/response"
)

// maxPayloadSize caps bodies posted by decoy pages and trackers.
const maxPayloadSize int64 = 1 << 20

func formatPayloadLimit(bytes int64) string {
	const kb = 1024
	if bytes <= 0 {
		return "0KB"
	}
	value := bytes / kb
	if value <= 0 {
		value = 1
	}
	return strconv.FormatInt(value, 10) + "KB"
}

func limitPayload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadSize)
}

// payloadTooLarge writes 413 and reports true when err came from the body limit.
func payloadTooLarge(c *gin.Context, err error) bool {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		return false
	}
	response.Error(c, http.StatusRequestEntityTooLarge, errcode.ErrInvalid, "payload too large (max "+formatPayloadLimit(tooLarge.Limit)+")")
	return true
}
