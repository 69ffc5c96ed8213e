package wiring_test

import (
	"context"
	"testing"

	"github.com/grindlemire/graft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/voo/internal/app"
	_ "go.trai.ch/voo/internal/wiring"
)

// TestComponentsGraph executes the full dependency graph and checks the CLI
// components come out wired.
func TestComponentsGraph(t *testing.T) {
	t.Setenv("VOO_CACHE_DIR", t.TempDir())

	components, _, err := graft.ExecuteFor[*app.Components](context.Background())
	require.NoError(t, err)

	assert.NotNil(t, components.App)
	assert.NotNil(t, components.Logger)
	assert.NotNil(t, components.Store)
}
