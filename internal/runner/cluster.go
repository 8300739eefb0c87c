package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
)

// ResolveCluster turns a cluster ID or name into a cluster ID. An ID is
// probed first; any probe error counts as "does not exist" and falls back to
// an exact, case-sensitive name match over all clusters.
func (r *Runner) ResolveCluster(ctx context.Context, clusterID, clusterName string) (string, error) {
	if clusterID != "" {
		cluster, err := r.clusters.GetCluster(ctx, clusterID)
		if err == nil && cluster != nil {
			r.logger.Info("Cluster resolved by id",
				slog.String("cluster_id", cluster.ClusterID),
				slog.String("cluster_name", cluster.ClusterName),
				slog.String("state", cluster.State),
			)
			return cluster.ClusterID, nil
		}

		attrs := []any{slog.String("cluster_id", clusterID)}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		r.logger.Warn("Cluster id not found, falling back to name", attrs...)
	}

	if clusterName != "" {
		clusters, err := r.clusters.ListClusters(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list clusters: %w", err)
		}

		for _, c := range clusters {
			if c.ClusterName == clusterName {
				r.logger.Info("Cluster resolved by name",
					slog.String("cluster_id", c.ClusterID),
					slog.String("cluster_name", c.ClusterName),
					slog.String("state", c.State),
				)
				return c.ClusterID, nil
			}
		}
	}

	return "", domain.NewConfigurationError("cluster",
		fmt.Sprintf("no cluster matches id %q or name %q", clusterID, clusterName))
}
