package handler

import (
	"fmt"
	"net/http"

	"github.com/cuongbtq/workspace-jobs/shared/workspace"
	"github.com/gin-gonic/gin"
)

// GetCluster handles GET /api/2.0/clusters/get
func (h *Handler) GetCluster(c *gin.Context) {
	clusterID := c.Query("cluster_id")
	if clusterID == "" {
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, "cluster_id is required")
		return
	}

	cluster, err := h.storage.GetCluster(clusterID)
	if err != nil {
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter,
			fmt.Sprintf("Cluster %s does not exist", clusterID))
		return
	}

	c.JSON(http.StatusOK, cluster)
}

// ListClusters handles GET /api/2.0/clusters/list
func (h *Handler) ListClusters(c *gin.Context) {
	c.JSON(http.StatusOK, workspace.ListClustersResponse{Clusters: h.storage.ListClusters()})
}
