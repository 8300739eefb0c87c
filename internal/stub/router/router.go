package router

import (
	"net/http"

	"github.com/cuongbtq/workspace-jobs/internal/stub/handler"
	"github.com/cuongbtq/workspace-jobs/shared/workspace"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "workspace-stub",
		})
	})

	h := handler.NewHandler(deps)
	auth := AuthMiddleware(deps.Token)

	v20 := r.Group("/api/"+workspace.APIVersion20, auth)
	{
		v20.POST("/"+workspace.PathWorkspaceMkdirs, h.Mkdirs)
		v20.POST("/"+workspace.PathWorkspaceImport, h.Import)
		v20.GET("/"+workspace.PathWorkspaceGetStatus, h.GetStatus)

		v20.GET("/"+workspace.PathClustersGet, h.GetCluster)
		v20.GET("/"+workspace.PathClustersList, h.ListClusters)
	}

	v21 := r.Group("/api/"+workspace.APIVersion21, auth)
	{
		v21.GET("/"+workspace.PathJobsList, h.ListJobs)
		v21.GET("/"+workspace.PathJobsGet, h.GetJob)
		v21.POST("/"+workspace.PathJobsCreate, h.CreateJob)
		v21.POST("/"+workspace.PathJobsReset, h.ResetJob)
		v21.POST("/"+workspace.PathJobsRunNow, h.RunNow)
		v21.GET("/"+workspace.PathJobsRunsGet, h.GetRun)
	}

	r.NoRoute(func(c *gin.Context) {
		handler.WriteError(c, http.StatusNotFound, "ENDPOINT_NOT_FOUND",
			"No API found for '"+c.Request.Method+" "+c.Request.URL.Path+"'")
	})

	return r
}
