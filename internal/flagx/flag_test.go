package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{},
		},
		{
			name:         "flag followed by another flag keeps no value",
			args:         []string{"-c", "-notvalue"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "several allowed flags keep order",
			args:         []string{"-a", ":8080", "-z", "1", "-d", "dsn"},
			allowedFlags: []string{"-a", "-d"},
			want:         []string{"-a", ":8080", "-d", "dsn"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	assert.Equal(t, "a.json", configFileFlag([]string{"-a", ":1", "-c", "a.json"}))
	assert.Equal(t, "b.json", configFileFlag([]string{"-config", "b.json"}))
	assert.Equal(t, "c.json", configFileFlag([]string{"--config=c.json"}))
	assert.Equal(t, "", configFileFlag([]string{"-a", ":1"}))

	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = []string{"bin", "-c", "d.json"}
	assert.Equal(t, "d.json", ConfigFileFlag())
}
