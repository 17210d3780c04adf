package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plantelhq/plantel/pkg/db/pagination"
	"go.uber.org/zap"
)

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func respondList(c *gin.Context, data any, pageInfo *pagination.PageInfo) {
	if pageInfo == nil {
		c.JSON(http.StatusOK, gin.H{"data": data})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "page_info": pageInfo})
}

func zapError(err error) zap.Field { return zap.Error(err) }

func zapPath(c *gin.Context) zap.Field { return zap.String("path", c.FullPath()) }
