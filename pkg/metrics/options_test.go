/*
Copyright 2025 The Dapr Authors
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
    http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	t.Run("default options", func(t *testing.T) {
		o := DefaultOptions()
		assert.Equal(t, defaultMetricsPort, o.Port)
		assert.Equal(t, defaultMetricsEnabled, o.Enabled)
		assert.Equal(t, defaultListenAddress, o.ListenAddress)
	})

	t.Run("attaching metrics related cmd flags", func(t *testing.T) {
		o := DefaultOptions()
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		o.AttachCmdFlags(fs.StringVar, fs.BoolVar)

		require.NoError(t, fs.Parse([]string{"--metrics-port", "9999", "--enable-metrics=false"}))
		assert.Equal(t, "9999", o.Port)
		assert.False(t, o.Enabled)
		assert.Equal(t, defaultListenAddress, o.ListenAddress)
	})

	t.Run("metrics port", func(t *testing.T) {
		o := DefaultOptions()
		o.Port = "5050"
		assert.Equal(t, uint64(5050), o.MetricsPort())
		o.Port = "invalid"
		assert.Equal(t, uint64(9090), o.MetricsPort())
	})
}
