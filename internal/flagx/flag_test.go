package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "short flag with separate value",
			args:    []string{"-c", "conf.json", "-a", "http://localhost"},
			allowed: []string{"-c", "--config"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "long flag with equals",
			args:    []string{"--config=alt.json", "-a", "http://localhost"},
			allowed: []string{"-c", "--config"},
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "unknown flags ignored",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "flag without value at end",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "next dash token is not a value",
			args:    []string{"-c", "--config=alt.json"},
			allowed: []string{"-c", "--config"},
			want:    []string{"-c", "--config=alt.json"},
		},
		{
			name:    "several allowed flags keep order",
			args:    []string{"-a", "http://pos.local", "--timeout", "5s", "-l", "debug"},
			allowed: []string{"-a", "--timeout"},
			want:    []string{"-a", "http://pos.local", "--timeout", "5s"},
		},
		{
			name:    "empty args",
			args:    []string{},
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	assert.Equal(t, "/etc/short.json", ConfigFileFlag([]string{"-c", "/etc/short.json"}))
	assert.Equal(t, "/etc/long.json", ConfigFileFlag([]string{"--config", "/etc/long.json"}))
	assert.Equal(t, "/etc/eq.json", ConfigFileFlag([]string{"--config=/etc/eq.json", "-a", "x"}))
	assert.Empty(t, ConfigFileFlag([]string{"-a", "http://localhost"}))
	assert.Equal(t, "/2.json", ConfigFileFlag([]string{"-c", "/1.json", "--config", "/2.json"}))
}
