package reporter

import (
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-reporter/backend"
)

func TestInstance_FirstOptionsWin(t *testing.T) {
	resetInstance()
	t.Cleanup(resetInstance)

	first := Instance(Options{
		Mode:    "local",
		RootDir: t.TempDir(),
		Log:     log.Root(),
	})
	require.NotNil(t, first)
	assert.Equal(t, backend.ModeLocal, first.cfg.Mode)

	second := Instance(Options{
		Mode:    "off",
		RootDir: t.TempDir(),
		Log:     log.Root(),
	})
	assert.Same(t, first, second)
	assert.Equal(t, backend.ModeLocal, second.cfg.Mode)
}
