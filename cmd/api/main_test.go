package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appconfig "github.com/wolfman30/ghl-booking-gateway/internal/config"
)

func TestNewServerUsesPortAndTimeouts(t *testing.T) {
	cfg := &appconfig.Config{Port: "9090", GHLTimeout: 5 * time.Second}

	srv := newServer(cfg, nil)

	assert.Equal(t, ":9090", srv.Addr)
	assert.Equal(t, 15*time.Second, srv.ReadTimeout)
	assert.Equal(t, 20*time.Second, srv.WriteTimeout)
	assert.Greater(t, srv.WriteTimeout, cfg.GHLTimeout)
}
