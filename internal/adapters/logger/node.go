package logger

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/voo/internal/adapters/config" //nolint:depguard // Wired in adapter node
	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/voo/internal/core/ports"
)

// NodeID is the unique identifier for the logger Graft node.
const NodeID graft.ID = "adapter.logger"

func init() {
	graft.Register(graft.Node[ports.Logger]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (ports.Logger, error) {
			opts, err := graft.Dep[domain.Options](ctx)
			if err != nil {
				return nil, err
			}
			l := New()
			l.SetVerbosity(opts.Verbosity)
			return l, nil
		},
	})
}
