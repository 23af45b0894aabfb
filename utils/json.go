package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success writes data as a 200 JSON response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Fail writes an error JSON response of the form {"err": "..."}.
func Fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.JSON(status, gin.H{"err": err.Error()})
}

// FailMsg writes an error JSON response with a fixed message.
func FailMsg(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"err": msg})
}
