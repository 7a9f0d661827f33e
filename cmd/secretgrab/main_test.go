package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"secretgrab/internal/browser"
	"secretgrab/internal/capture"
	"secretgrab/internal/config"
	"secretgrab/internal/secrets"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGrabber struct {
	records  []capture.Record
	err      error
	cfg      browser.Config
	grabbed  bool
	shutdown bool
}

func (f *fakeGrabber) Grab(ctx context.Context) ([]capture.Record, error) {
	f.grabbed = true
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("grab context has no deadline")
	}
	return f.records, f.err
}

func (f *fakeGrabber) Shutdown(context.Context) error {
	f.shutdown = true
	return nil
}

// setupTest swaps every global the commands touch and restores them afterwards.
func setupTest(t *testing.T, g *fakeGrabber) afero.Fs {
	t.Helper()
	origFs, origCfg, origLogger, origGrabber, origTimeout := fsys, cfg, logger, newGrabber, timeout
	t.Cleanup(func() {
		fsys, cfg, logger, newGrabber, timeout = origFs, origCfg, origLogger, origGrabber, origTimeout
	})

	fsys = afero.NewMemMapFs()
	cfg = config.DefaultConfig()
	logger = zap.NewNop()
	timeout = 10 * time.Second
	newGrabber = func(bc browser.Config, _ *zap.Logger) grabber {
		if g == nil {
			t.Fatal("grabber should not be created")
		}
		g.cfg = bc
		return g
	}
	return fsys
}

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	return cmd, &out
}

func workedExample() []capture.Record {
	records, _ := capture.Decode(`[
		{"secret":"s1","version":1},
		{"secret":"s1-b","version":1},
		{"secret":"s2","version":"2"}
	]`)
	return records
}

func TestRunGrabWritesOutputs(t *testing.T) {
	g := &fakeGrabber{records: workedExample()}
	fs := setupTest(t, g)

	cmd, out := newTestCmd()
	require.NoError(t, runGrab(cmd, nil))

	assert.True(t, g.grabbed)
	assert.True(t, g.shutdown)
	assert.True(t, g.cfg.Headless)
	assert.Equal(t, 3000, g.cfg.CaptureTimeoutMs)

	for _, name := range []string{secrets.SecretsFile, secrets.BytesFile, secrets.DictFile} {
		ok, err := afero.Exists(fs, filepath.Join("secrets", name))
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
	ok, _ := afero.Exists(fs, filepath.Join("secrets", secrets.RawFile))
	assert.False(t, ok, "raw dump is opt-in")

	dict, err := afero.ReadFile(fs, filepath.Join("secrets", secrets.DictFile))
	require.NoError(t, err)
	assert.Equal(t, `{"1":[115,49,45,98],"2":[115,50]}`, string(dict))

	assert.Contains(t, out.String(), "2 secret(s) captured")
	assert.Contains(t, out.String(), "s1-b")
}

func TestRunGrabSaveRaw(t *testing.T) {
	g := &fakeGrabber{records: workedExample()}
	fs := setupTest(t, g)
	cfg.Output.SaveRaw = true
	cfg.Output.Dir = "out"

	cmd, _ := newTestCmd()
	require.NoError(t, runGrab(cmd, nil))

	raw, err := afero.ReadFile(fs, filepath.Join("out", secrets.RawFile))
	require.NoError(t, err)
	assert.Equal(t, string(capture.Encode(g.records)), string(raw))
}

func TestRunGrabNothingCaptured(t *testing.T) {
	g := &fakeGrabber{}
	fs := setupTest(t, g)
	cfg.Output.SaveRaw = true

	cmd, out := newTestCmd()
	require.NoError(t, runGrab(cmd, nil))

	exists, err := afero.DirExists(fs, "secrets")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Contains(t, out.String(), "No real secrets with valid version found")
}

func TestRunGrabFailure(t *testing.T) {
	g := &fakeGrabber{err: errors.New("navigation failed")}
	setupTest(t, g)

	cmd, _ := newTestCmd()
	err := runGrab(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to grab secrets")
	assert.True(t, g.shutdown, "browser is released on failure")
}

func TestRunGrabInvalidConfig(t *testing.T) {
	setupTest(t, nil)
	cfg.Output.Dir = ""

	cmd, _ := newTestCmd()
	err := runGrab(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRunGrabReadOnlyOutput(t *testing.T) {
	g := &fakeGrabber{records: workedExample()}
	setupTest(t, g)
	fsys = afero.NewReadOnlyFs(afero.NewMemMapFs())

	cmd, _ := newTestCmd()
	err := runGrab(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write secrets")
}

func TestRunSummarize(t *testing.T) {
	fs := setupTest(t, nil)
	require.NoError(t, afero.WriteFile(fs, "captures.json",
		[]byte(`[{"secret":"late","obj":{"version":"4"}},{"secret":"x","version":0}]`), 0644))

	cmd, out := newTestCmd()
	require.NoError(t, runSummarize(cmd, []string{"captures.json"}))

	data, err := afero.ReadFile(fs, filepath.Join("secrets", secrets.SecretsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": 4`)
	assert.Contains(t, out.String(), "late")
}

func TestRunSummarizeErrors(t *testing.T) {
	fs := setupTest(t, nil)
	require.NoError(t, afero.WriteFile(fs, "bad.json", []byte(`{"secret":"s"}`), 0644))

	cmd, _ := newTestCmd()
	err := runSummarize(cmd, []string{"missing.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read captures")

	err = runSummarize(cmd, []string{"bad.json"})
	require.Error(t, err)
	assert.ErrorIs(t, err, capture.ErrNotArray)
}

func TestRunConfigInit(t *testing.T) {
	fs := setupTest(t, nil)

	cmd, out := newTestCmd()
	cmd.Flags().Bool("force", false, "")

	require.NoError(t, runConfigInit(cmd, []string{"conf/secretgrab.yaml"}))
	assert.Contains(t, out.String(), "conf/secretgrab.yaml")

	loaded, err := config.LoadFs(fs, "conf/secretgrab.yaml")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Browser, loaded.Browser)

	err = runConfigInit(cmd, []string{"conf/secretgrab.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, cmd.Flags().Set("force", "true"))
	require.NoError(t, runConfigInit(cmd, []string{"conf/secretgrab.yaml"}))
}

func TestSetupAppliesFlagOverrides(t *testing.T) {
	for _, k := range []string{"SECRETGRAB_OUTPUT_DIR", "SECRETGRAB_HEADLESS", "SECRETGRAB_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	fs := setupTest(t, nil)
	origPath, origOut, origHeadless, origVerbose := configPath, outDir, headless, verbose
	t.Cleanup(func() { configPath, outDir, headless, verbose = origPath, origOut, origHeadless, origVerbose })

	require.NoError(t, afero.WriteFile(fs, "sg.yaml", []byte("output:\n  dir: from-file\n"), 0644))
	configPath = "sg.yaml"
	verbose = true

	cmd, _ := newTestCmd()
	cmd.Flags().StringVar(&outDir, "out", "", "")
	cmd.Flags().BoolVar(&headless, "headless", true, "")
	cmd.Flags().BoolVar(&saveRaw, "save-raw", false, "")
	require.NoError(t, cmd.Flags().Set("headless", "false"))

	require.NoError(t, setup(cmd, nil))
	assert.Equal(t, "from-file", cfg.Output.Dir, "unset flags keep file values")
	assert.False(t, cfg.Browser.Headless)
	assert.False(t, cfg.Output.SaveRaw)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NotNil(t, logger)

	require.NoError(t, cmd.Flags().Set("out", "from-flag"))
	require.NoError(t, setup(cmd, nil))
	assert.Equal(t, "from-flag", cfg.Output.Dir)
}

func TestRenderSummary(t *testing.T) {
	out := renderSummary(secrets.BuildViews(secrets.Mapping{12: "abc", 3: "xy"}), "secrets")
	assert.Contains(t, out, "2 secret(s) captured")
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "abc")
	assert.Contains(t, out, filepath.Join("secrets", secrets.DictFile))
	assert.Less(t, bytes.Index([]byte(out), []byte("xy")), bytes.Index([]byte(out), []byte("abc")),
		"rows are in ascending version order")

	assert.Contains(t, renderSummary(secrets.Views{}, "secrets"), "No real secrets")
}
