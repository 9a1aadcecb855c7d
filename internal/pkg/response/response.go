package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type body struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, body{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, body{Code: 0, Message: "success", Data: data})
}

func Error(c *gin.Context, status int, code int, message string) {
	c.JSON(status, body{Code: code, Message: message})
}

func ErrorWithData(c *gin.Context, status int, code int, message string, data interface{}) {
	c.JSON(status, body{Code: code, Message: message, Data: data})
}
