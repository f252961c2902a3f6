package handlers

import (
	"net/http"

	"pressroom/internal/apperr"
	"pressroom/internal/middleware"
	"pressroom/internal/services"
	"pressroom/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func respondError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// bindJSON decodes the request body, reporting malformed input as a
// validation error.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err))
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := utils.ParseID(c.Param(name))
	if err != nil {
		respondError(c, err)
		return 0, false
	}
	return id, true
}

// pageRequest reads page, size, sort and dir from the query string. Page
// and size are validated by the service; size is capped here.
func pageRequest(c *gin.Context) services.PageRequest {
	size := utils.StringToInt(c.Query("size"), defaultPageSize)
	if size > maxPageSize {
		size = maxPageSize
	}
	return services.PageRequest{
		Page:      utils.StringToInt(c.Query("page"), 1),
		Size:      size,
		Sort:      c.Query("sort"),
		Direction: c.Query("dir"),
	}
}

func ok(c *gin.Context, v any) {
	c.JSON(http.StatusOK, v)
}
