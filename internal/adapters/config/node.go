package config

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/voo/internal/core/domain"
)

// NodeID is the unique identifier for the options Graft node.
const NodeID graft.ID = "adapter.config"

func init() {
	graft.Register(graft.Node[domain.Options]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (domain.Options, error) {
			cwd, err := os.Getwd()
			if err != nil {
				cwd = "."
			}
			return NewLoader().Load(cwd)
		},
	})
}
