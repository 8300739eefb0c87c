package remote

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/cuongbtq/workspace-jobs/shared/workspace"
)

const importFormatAuto = "AUTO"

// Artifacts uploads payload files into the workspace file tree
type Artifacts struct {
	client *workspace.Client
	logger *slog.Logger
}

// NewArtifacts creates a new artifact store
func NewArtifacts(client *workspace.Client, logger *slog.Logger) *Artifacts {
	return &Artifacts{client: client, logger: logger}
}

// Put reads localPath fully and imports it at remotePath, overwriting any
// existing object. The returned URI is remotePath.
func (a *Artifacts) Put(ctx context.Context, localPath, remotePath string) (string, error) {
	if !path.IsAbs(remotePath) {
		return "", fmt.Errorf("workspace path %q must be absolute", remotePath)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read payload: %w", err)
	}

	if dir := path.Dir(remotePath); dir != "/" {
		if err := a.client.Post(ctx, workspace.APIVersion20, workspace.PathWorkspaceMkdirs,
			workspace.MkdirsRequest{Path: dir}, nil); err != nil {
			return "", fmt.Errorf("failed to create workspace directory %s: %w", dir, err)
		}
	}

	req := workspace.ImportRequest{
		Path:      remotePath,
		Format:    importFormatAuto,
		Content:   base64.StdEncoding.EncodeToString(data),
		Overwrite: true,
	}
	if err := a.client.Post(ctx, workspace.APIVersion20, workspace.PathWorkspaceImport, req, nil); err != nil {
		return "", fmt.Errorf("failed to import %s: %w", remotePath, err)
	}

	a.logger.Info("Payload uploaded",
		slog.String("workspace_path", remotePath),
		slog.Int("bytes", len(data)),
	)

	return remotePath, nil
}
