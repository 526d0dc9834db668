package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solcron/solcron-go/pkg/types"
)

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPlan(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		path := writePlan(t, `{
			"keepers": [{"stake": 2000000000}],
			"jobs": [{
				"instruction": "harvest",
				"trigger": {"type": 0, "time": {"interval": 5}},
				"gasLimit": 200000,
				"funding": 500000000
			}]
		}`)

		plan, err := LoadPlan(path)
		require.NoError(t, err)
		assert.Equal(t, uint64(5_000), plan.BaseFee)
		assert.Equal(t, types.LamportsPerSOL, plan.MinStake)
		assert.Equal(t, 10, plan.DurationSeconds)
		assert.Equal(t, 250, plan.PollMillis)
	})

	t.Run("rejects plans without keepers or jobs", func(t *testing.T) {
		_, err := LoadPlan(writePlan(t, `{"jobs": [{"instruction": "x", "trigger": {"type": 0, "time": {"interval": 5}}, "gasLimit": 1, "funding": 1}]}`))
		assert.Error(t, err)

		_, err = LoadPlan(writePlan(t, `{"keepers": [{"stake": 1}]}`))
		assert.Error(t, err)
	})

	t.Run("rejects invalid triggers", func(t *testing.T) {
		path := writePlan(t, `{
			"keepers": [{"stake": 1}],
			"jobs": [{
				"instruction": "harvest",
				"trigger": {"type": 0, "time": {"interval": 0}},
				"gasLimit": 200000,
				"funding": 1
			}]
		}`)
		_, err := LoadPlan(path)
		assert.Error(t, err)
	})

	t.Run("rejects malformed target programs", func(t *testing.T) {
		path := writePlan(t, `{
			"keepers": [{"stake": 1}],
			"jobs": [{
				"instruction": "harvest",
				"trigger": {"type": 0, "time": {"interval": 5}},
				"gasLimit": 200000,
				"funding": 1,
				"targetProgram": "not base58 at all!"
			}]
		}`)
		_, err := LoadPlan(path)
		assert.Error(t, err)
	})

	t.Run("accepts a pinned target program", func(t *testing.T) {
		target := solana.NewWallet().PublicKey()
		path := writePlan(t, `{
			"keepers": [{"stake": 1}],
			"jobs": [{
				"instruction": "harvest",
				"trigger": {"type": 0, "time": {"interval": 5}},
				"gasLimit": 200000,
				"funding": 1,
				"targetProgram": "`+target.String()+`"
			}]
		}`)

		plan, err := LoadPlan(path)
		require.NoError(t, err)

		resolved, err := plan.Jobs[0].targetProgram()
		require.NoError(t, err)
		assert.Equal(t, target, resolved)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPlan(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("shipped sample plan is valid", func(t *testing.T) {
		plan, err := LoadPlan("plan.json")
		require.NoError(t, err)
		assert.NotEmpty(t, plan.Keepers)
		assert.NotEmpty(t, plan.Jobs)
	})
}
