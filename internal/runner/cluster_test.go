package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCluster(t *testing.T) {
	clusters := []domain.Cluster{
		{ClusterID: "0101-aaa", ClusterName: "shared-autoscaling", State: "RUNNING"},
		{ClusterID: "0101-bbb", ClusterName: "jobs-small", State: "TERMINATED"},
	}

	tests := []struct {
		name         string
		id           string
		clusterName  string
		byID         map[string]domain.Cluster
		wantID       string
		wantConfig   bool
		wantListings int
	}{
		{
			name:         "id exists",
			id:           "0101-bbb",
			clusterName:  "shared-autoscaling",
			byID:         map[string]domain.Cluster{"0101-bbb": clusters[1]},
			wantID:       "0101-bbb",
			wantListings: 0,
		},
		{
			name:         "probe fails, name matches",
			id:           "stale-id",
			clusterName:  "jobs-small",
			wantID:       "0101-bbb",
			wantListings: 1,
		},
		{
			name:         "no id, name matches",
			clusterName:  "shared-autoscaling",
			wantID:       "0101-aaa",
			wantListings: 1,
		},
		{
			name:         "probe fails, no matching name",
			id:           "stale-id",
			clusterName:  "missing",
			wantConfig:   true,
			wantListings: 1,
		},
		{
			name:         "name match is case-sensitive",
			clusterName:  "Jobs-Small",
			wantConfig:   true,
			wantListings: 1,
		},
		{
			name:         "probe fails, no name",
			id:           "stale-id",
			wantConfig:   true,
			wantListings: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.clusters.list = clusters
			if tt.byID != nil {
				h.clusters.byID = tt.byID
			}

			got, err := h.runner.ResolveCluster(context.Background(), tt.id, tt.clusterName)
			if tt.wantConfig {
				var cfgErr *domain.ConfigurationError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, "cluster", cfgErr.Field)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, got)
			}
			assert.Equal(t, tt.wantListings, h.clusters.listings)
		})
	}
}

func TestResolveCluster_ListError(t *testing.T) {
	h := newHarness()
	h.clusters.listErr = errors.New("HTTP 403")

	_, err := h.runner.ResolveCluster(context.Background(), "", "jobs-small")
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	assert.False(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "failed to list clusters")
}
