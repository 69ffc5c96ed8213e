package store

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/voo/internal/adapters/config" //nolint:depguard // Wired in adapter node
	"go.trai.ch/voo/internal/adapters/fs"     //nolint:depguard // Wired in adapter node
	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/voo/internal/core/ports"
)

// NodeID is the unique identifier for the record store Graft node.
const NodeID graft.ID = "adapter.store"

func init() {
	graft.Register(graft.Node[ports.RecordStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, fs.HasherNodeID},
		Run: func(ctx context.Context) (ports.RecordStore, error) {
			opts, err := graft.Dep[domain.Options](ctx)
			if err != nil {
				return nil, err
			}
			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			return New(opts.CacheDir, hasher), nil
		},
	})
}
