package remote

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
	"github.com/cuongbtq/workspace-jobs/shared/workspace"
)

// Clusters reads compute resources from the clusters API
type Clusters struct {
	client *workspace.Client
}

// NewClusters creates a new cluster lister
func NewClusters(client *workspace.Client) *Clusters {
	return &Clusters{client: client}
}

// GetCluster probes a single cluster by ID
func (c *Clusters) GetCluster(ctx context.Context, clusterID string) (*domain.Cluster, error) {
	var resp workspace.ClusterInfo
	query := url.Values{"cluster_id": {clusterID}}
	if err := c.client.Get(ctx, workspace.APIVersion20, workspace.PathClustersGet, query, &resp); err != nil {
		return nil, err
	}
	if resp.ClusterID == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrClusterNotFound, clusterID)
	}

	cluster := fromCluster(resp)
	return &cluster, nil
}

// ListClusters returns every cluster visible to the caller
func (c *Clusters) ListClusters(ctx context.Context) ([]domain.Cluster, error) {
	var resp workspace.ListClustersResponse
	if err := c.client.Get(ctx, workspace.APIVersion20, workspace.PathClustersList, nil, &resp); err != nil {
		return nil, err
	}

	clusters := make([]domain.Cluster, len(resp.Clusters))
	for i, info := range resp.Clusters {
		clusters[i] = fromCluster(info)
	}
	return clusters, nil
}
