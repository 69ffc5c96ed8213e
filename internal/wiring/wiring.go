// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/voo/internal/adapters/config"
	_ "go.trai.ch/voo/internal/adapters/fs"
	_ "go.trai.ch/voo/internal/adapters/logger"
	_ "go.trai.ch/voo/internal/adapters/store"
	// Register app nodes.
	_ "go.trai.ch/voo/internal/app"
)
