package browser

import (
	"context"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/stretchr/testify/assert"
)

func TestConfigDurations(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Headless)
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout())
	assert.Equal(t, 3*time.Second, cfg.CaptureTimeout())
	assert.Equal(t, 100*time.Millisecond, cfg.CapturePollInterval())
	assert.Equal(t, 250*time.Millisecond, cfg.CaptureSettle())

	var zero Config
	assert.Equal(t, 30*time.Second, zero.NavigationTimeout())
	assert.Equal(t, 3*time.Second, zero.CaptureTimeout())
	assert.Equal(t, 100*time.Millisecond, zero.CapturePollInterval())
	assert.Equal(t, time.Duration(0), zero.CaptureSettle())

	custom := Config{CaptureTimeoutMs: 1500, CapturePollMs: 20}
	assert.Equal(t, 1500*time.Millisecond, custom.CaptureTimeout())
	assert.Equal(t, 20*time.Millisecond, custom.CapturePollInterval())
}

func TestConfigTarget(t *testing.T) {
	assert.Equal(t, "https://open.spotify.com", DefaultConfig().Target())
	assert.Equal(t, "http://localhost:9999", Config{TargetURL: "http://localhost:9999"}.Target())
}

func TestLauncherFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Flags = []string{"--lang=en-US", "mute-audio", "--", ""}
	m := NewSessionManager(cfg, nil)

	l := m.newLauncher(context.Background())
	assert.Equal(t, "AutomationControlled", l.Get(flags.Flag("disable-blink-features")))
	assert.True(t, l.Has(flags.NoSandbox))
	assert.True(t, l.Has(flags.Headless))
	assert.Equal(t, "en-US", l.Get(flags.Flag("lang")))
	assert.True(t, l.Has(flags.Flag("mute-audio")))

	cfg.Headless = false
	l = NewSessionManager(cfg, nil).newLauncher(context.Background())
	assert.False(t, l.Has(flags.Headless))
}

func TestShutdownWithoutStart(t *testing.T) {
	m := NewSessionManager(DefaultConfig(), nil)
	assert.NoError(t, m.Shutdown(context.Background()))
	assert.False(t, m.IsConnected())
	_, ok := m.LastSession()
	assert.False(t, ok)
}
