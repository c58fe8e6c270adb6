package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gastro-system/internal/apperrors"
	"gastro-system/internal/gateway/middleware"
)

// Helper functions shared by the HTTP handlers.

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

func failErr(c *gin.Context, err error) {
	fail(c, apperrors.HTTPStatus(err), err.Error())
}

func parseIDParam(c *gin.Context, param string) (int64, bool) {
	val, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || val <= 0 {
		fail(c, http.StatusBadRequest, "Invalid "+param+" parameter")
		return 0, false
	}
	return val, true
}

func parseInt64Query(c *gin.Context, param string) *int64 {
	str := c.Query(param)
	if str == "" {
		return nil
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return nil
	}
	return &val
}

func parseBoolQuery(c *gin.Context, param string) bool {
	val, err := strconv.ParseBool(c.Query(param))
	return err == nil && val
}

func parseStringQuery(c *gin.Context, param string) *string {
	str := c.Query(param)
	if str == "" {
		return nil
	}
	return &str
}

func parsePagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.Query("page"))
	pageSize, _ = strconv.Atoi(c.Query("page_size"))
	return page, pageSize
}

func userIDFrom(c *gin.Context) int64 {
	return c.GetInt64(middleware.CtxUserID)
}

func accessLevelFrom(c *gin.Context) int32 {
	level, ok := c.Get(middleware.CtxAccessLevel)
	if !ok {
		return 0
	}
	return level.(int32)
}
