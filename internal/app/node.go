package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/voo/internal/adapters/config" //nolint:depguard // Wired in app layer
	"go.trai.ch/voo/internal/adapters/logger" //nolint:depguard // Wired in app layer
	"go.trai.ch/voo/internal/adapters/store"  //nolint:depguard // Wired in app layer
	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/voo/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components bundles everything the CLI needs after initialization.
type Components struct {
	App    *App
	Logger ports.Logger
	Store  ports.RecordStore
}

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			logger.NodeID,
			store.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			opts, err := graft.Dep[domain.Options](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			recordStore, err := graft.Dep[ports.RecordStore](ctx)
			if err != nil {
				return nil, err
			}

			return New(recordStore, log, opts), nil
		},
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			store.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	application, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	recordStore, err := graft.Dep[ports.RecordStore](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:    application,
		Logger: log,
		Store:  recordStore,
	}, nil
}
