package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// paramID разбирает числовой параметр пути, при ошибке сам отвечает 400
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryInt разбирает числовой query-параметр с дефолтом
func queryInt(c *gin.Context, name string, def int) int {
	if s := c.Query(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

// queryInt64 разбирает int64 query-параметр с дефолтом
func queryInt64(c *gin.Context, name string, def int64) int64 {
	if s := c.Query(name); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
			return v
		}
	}
	return def
}
