// Package file provides blob storage backends for audio artifacts.
package file

import (
	"fmt"

	"github.com/agentmemz/agentmemz/internal/config"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

// NewBlobStore selects a blob store backend from configuration.
func NewBlobStore(cfg config.BlobConfig) (interfaces.BlobStore, error) {
	switch cfg.Driver {
	case "minio":
		return NewMinioBlobStore(cfg)
	case "tos":
		return NewTOSBlobStore(cfg)
	default:
		return nil, fmt.Errorf("unknown blob storage driver: %s", cfg.Driver)
	}
}
