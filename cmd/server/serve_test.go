package main

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marina/internal/entity"
	"marina/internal/platform/config"
	"marina/internal/platform/metrics"
)

func TestLocalIdentityStackRoundTrips(t *testing.T) {
	cfg := config.Default()
	verifier, exchanger, loginVerifier := identityStack(cfg)

	profile, err := exchanger.Exchange(context.Background(), "dev-user")
	require.NoError(t, err)

	subject, err := verifier.Verify(context.Background(), profile.IDToken)
	require.NoError(t, err)
	assert.Equal(t, "dev-user", subject)

	subject, err = loginVerifier.Verify(context.Background(), profile.IDToken)
	require.NoError(t, err)
	assert.Equal(t, "dev-user", subject)

	assert.Contains(t, exchanger.AuthCodeURL("s1"), "http://localhost:8080/oauth?")
}

func TestOpenMemoryStore(t *testing.T) {
	cfg := config.Default()
	backend, err := openStore(context.Background(), cfg, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)
	defer backend.close()
	assert.Nil(t, backend.ready)
	store := backend.store

	id, err := store.Create(context.Background(), entity.KindLoad, entity.Props{"item": "rope"})
	require.NoError(t, err)
	got, err := store.Get(context.Background(), entity.KindLoad, id)
	require.NoError(t, err)
	assert.Equal(t, "rope", got.Props.Text("item"))
}

func TestOpenStoreRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "leveldb"
	backend, err := openStore(context.Background(), cfg, nil)
	require.Error(t, err)
	backend.close()
}
