// api/router.go
package api

import (
	"github.com/gin-gonic/gin"
)

func NewRouter(storage *Storage, middleware ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware...)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/meta", MetaHandler(storage))
		apiGroup.GET("/packages", PackagesHandler(storage))
		apiGroup.GET("/classes", ClassListHandler(storage))
		apiGroup.GET("/classes/:name", ClassHandler(storage))
		apiGroup.GET("/codelists", CodeListsHandler(storage))
		apiGroup.GET("/codelists/:code", CodeListHandler(storage))
		apiGroup.GET("/issues", IssuesHandler(storage))

		apiGroup.POST("/admin/reload", AdminReloadHandler(storage))
	}
	return r
}

func RunServer(addr string, storage *Storage) error {
	return NewRouter(storage, gin.Logger()).Run(addr)
}
