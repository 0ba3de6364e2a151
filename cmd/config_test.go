package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/swipe/internal/output"
)

// testEnv sets up isolated config dir, viper, and output for testing.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	// Override configDirFunc for tests
	origFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origFunc })

	// Reset viper and the lazily opened store
	viper.Reset()
	setDefaults(dir)
	t.Cleanup(closeStore)

	// Initialize output
	ui = output.New()

	return dir
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir := testEnv(t)

	err := configInitRun()
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "config.yaml")
	_, err = os.Stat(cfgPath)
	assert.NoError(t, err, "config file should exist")

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "swipe configuration")
	assert.Contains(t, string(data), "commit_threshold: 120")
}

func TestConfigInit_TemplateIsValidYAML(t *testing.T) {
	dir := testEnv(t)
	require.NoError(t, configInitRun())

	fileValues := readConfigFileValues(filepath.Join(dir, "config.yaml"))
	assert.True(t, fileValues["gesture.direction_epsilon"])
	assert.True(t, fileValues["motion.damping_ratio"])
	assert.True(t, fileValues["review.notice_limit"])
	assert.True(t, fileValues["port"])
	assert.False(t, fileValues["state_dir"], "commented keys are not set")

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	var parsed struct {
		Gesture struct {
			CommitThreshold float64 `yaml:"commit_threshold"`
		} `yaml:"gesture"`
		Review struct {
			Haptics bool `yaml:"haptics"`
		} `yaml:"review"`
	}
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Equal(t, 120.0, parsed.Gesture.CommitThreshold)
	assert.True(t, parsed.Review.Haptics)
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	dir := testEnv(t)

	// Create existing file
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = false
	err := configInitRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigInit_ForceOverwrite(t *testing.T) {
	dir := testEnv(t)

	// Create existing file
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = true
	defer func() { configForce = false }()
	err := configInitRun()
	require.NoError(t, err)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "swipe configuration")
}

func TestConfigShow_NoFile(t *testing.T) {
	testEnv(t)

	err := configShowRun()
	assert.NoError(t, err)
}

func TestConfigShow_WithFile(t *testing.T) {
	testEnv(t)

	// Create config first
	require.NoError(t, configInitRun())

	err := configShowRun()
	assert.NoError(t, err)
}

func TestConfigEdit_NoEditor(t *testing.T) {
	testEnv(t)

	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "")

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "$EDITOR is not set")
}

func TestConfigEdit_NoConfigFile(t *testing.T) {
	testEnv(t)

	t.Setenv("EDITOR", "echo") // harmless command

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDetectSource(t *testing.T) {
	fileValues := map[string]bool{"key_a": true}

	// From env
	t.Setenv("SWIPE_TEST_KEY", "val")
	assert.Contains(t, detectSource("test_key", "SWIPE_TEST_KEY", fileValues), "env")

	// From file
	assert.Contains(t, detectSource("key_a", "SWIPE_KEY_A_NONEXISTENT", fileValues), "file")

	// Default
	assert.Contains(t, detectSource("key_b", "SWIPE_KEY_B_NONEXISTENT", fileValues), "default")
}

func TestConfigKeys_HaveDefaults(t *testing.T) {
	testEnv(t)

	for _, k := range configKeys {
		if k.Key == "store.postgres_url" || k.Key == "nats.url" || k.Key == "tracing.output" {
			continue
		}
		assert.True(t, viper.IsSet(k.Key), "missing default for %s", k.Key)
	}
}

func TestFlattenKeys(t *testing.T) {
	input := map[string]any{
		"top": "val",
		"nested": map[string]any{
			"a": "1",
			"b": "2",
		},
	}

	result := make(map[string]bool)
	flattenKeys("", input, result)

	assert.True(t, result["top"])
	assert.True(t, result["nested.a"])
	assert.True(t, result["nested.b"])
	assert.False(t, result["nested"])
}

func TestConfigInit_DryRun(t *testing.T) {
	dir := testEnv(t)
	dryRun = true
	ui.DryRun = true
	defer func() { dryRun = false }()

	err := configInitRun()
	require.NoError(t, err)

	// File should NOT have been created
	cfgPath := filepath.Join(dir, "config.yaml")
	_, err = os.Stat(cfgPath)
	assert.True(t, os.IsNotExist(err), "config file should not exist in dry-run mode")
}
