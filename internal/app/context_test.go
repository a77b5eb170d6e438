package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobline/internal/engine"
	"jobline/internal/engine/auth"
	"jobline/internal/materials"
)

func TestInitThenOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := Init(ctx, dir, "homes.example.com", false)
	require.NoError(t, err)
	_, err = Init(ctx, dir, "homes.example.com", false)
	assert.Error(t, err, "second init without force must not overwrite")

	rt, err := Open(ctx, Options{Workspace: dir, LinkSecret: "s3cret", Logger: zap.NewNop()})
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, "homes.example.com", rt.Config.Service.LinkHost)
	require.NotNil(t, rt.Engine.Links)
	assert.Nil(t, rt.Engine.Sink)
	assert.IsType(t, materials.Disabled{}, rt.Engine.Materials)

	owner := auth.Actor{ID: "u1", Role: auth.RoleOwner}
	p, err := rt.Engine.CreateProperty(ctx, owner, engine.PropertyOptions{Address: "Kirkeveien 2"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
}

func TestOpenWithoutConfig(t *testing.T) {
	_, err := Open(context.Background(), Options{Workspace: t.TempDir()})
	assert.ErrorContains(t, err, "jl init")
}

func TestOpenWithoutLinkSecretDisablesLinks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	_, err := Init(ctx, dir, "", false)
	require.NoError(t, err)
	rt, err := Open(ctx, Options{Workspace: dir, Logger: zap.NewNop()})
	require.NoError(t, err)
	defer rt.Close()
	assert.Nil(t, rt.Engine.Links)
}
