package config

import (
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfValid(t *testing.T) {
	conf := DefaultConf
	require.NoError(t, conf.Validate())
	assert.Equal(t, 3*time.Second, ParseDuration(conf.TxnTimeout))
}

func TestValidateRejectsBadValues(t *testing.T) {
	conf := DefaultConf
	conf.Mode = "serial"
	assert.Error(t, conf.Validate())

	conf = DefaultConf
	conf.EntryCount = 1
	assert.Error(t, conf.Validate())

	conf = DefaultConf
	conf.Deposits = nil
	assert.Error(t, conf.Validate())

	conf = DefaultConf
	conf.CommitPause = "2 seconds"
	assert.Error(t, conf.Validate())
}

func TestDecodeTOML(t *testing.T) {
	conf := DefaultConf
	_, err := toml.Decode(`
mode = "optimistic"
entry-count = 4
txn-timeout = "500ms"
deposits = [50.0, 75.0, 25.0]
`, &conf)
	require.NoError(t, err)
	require.NoError(t, conf.Validate())
	assert.Equal(t, "optimistic", conf.Mode)
	assert.Equal(t, 4, conf.EntryCount)
	assert.Equal(t, []float64{50, 75, 25}, conf.Deposits)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, "2s", conf.CommitPause)
}
