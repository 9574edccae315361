package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIHandler(t *testing.T) {
	testEnv(t)

	handler, err := newAPIHandler()
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("GET", "/api/categories", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewAPIHandler_BadDriver(t *testing.T) {
	testEnv(t)
	viper.Set("db.driver", "oracle")

	_, err := newAPIHandler()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestServeRun_StopsOnCancel(t *testing.T) {
	testEnv(t)
	captureUI(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Port 0 picks a free port.
	err := serveRun(ctx, 0)
	assert.NoError(t, err)
	assert.Nil(t, dataStore, "store is closed after shutdown")
}

func TestCloseStore(t *testing.T) {
	testEnv(t)

	_, err := getStore()
	require.NoError(t, err)
	require.NoError(t, closeStore())
	assert.Nil(t, dataStore)
	assert.NoError(t, closeStore())

	// Reopens on demand.
	s, err := getStore()
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestGetStore_CreatesDatabase(t *testing.T) {
	dir := testEnv(t)

	s, err := getStore()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.FileExists(t, filepath.Join(dir, "urbaneyes.db"))

	again, err := getStore()
	require.NoError(t, err)
	assert.Same(t, s, again)
}
