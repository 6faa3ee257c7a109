package server

import (
	"github.com/gin-gonic/gin"
	"net/http"
)

func NotFoundHandler(c *gin.Context) {
	c.String(http.StatusNotFound, "Not Found")
}
