package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/quorum/internal/orchestrator"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["ask"], "ask subcommand should be registered")
	assert.True(t, names["models"], "models subcommand should be registered")
}

func TestInitWritesLoadableConfig(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, runInit(initCmd, nil))

	cfg, err := loadConfig("quorum.yml")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Models)

	// Second run without --force must refuse to overwrite.
	forceInit = false
	require.Error(t, runInit(initCmd, nil))
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestBuildEngineFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quorum.yml")
	content := `
version: "1.0"
models:
  - id: alpha
    expertise:
      general: 0.9
  - id: beta
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	reg, closer, err := buildRegistry(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, closer, "no redis section means no store to close")

	engine := buildEngine(cfg, reg)
	require.NotNil(t, engine)

	// The wired pipeline answers end to end.
	answer := engine.Orchestrate(context.Background(), orchestrator.Request{Query: "What is 2+2?"})
	require.NotNil(t, answer)
	assert.NotEmpty(t, answer.FinalText)
}
