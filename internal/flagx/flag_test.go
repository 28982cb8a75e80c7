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
			args:    []string{"-c", "conf.json", "-a", ":8000"},
			allowed: []string{"-c"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "equals form",
			args:    []string{"-config=alt.json", "-a", ":8000"},
			allowed: []string{"-config"},
			want:    []string{"-config=alt.json"},
		},
		{
			name:    "unknown flags ignored",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "flag at the end without value",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "next argument is another flag",
			args:    []string{"-c", "-notvalue"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "several allowed flags keep order",
			args:    []string{"-a", ":9000", "-x", "-l", "debug"},
			allowed: []string{"-a", "-l"},
			want:    []string{"-a", ":9000", "-l", "debug"},
		},
		{
			name:    "nil args",
			args:    nil,
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowed)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short", []string{"-a", ":1", "-c", "cfg.json"}, "cfg.json"},
		{"long", []string{"-config", "other.json"}, "other.json"},
		{"equals", []string{"-config=eq.json", "-s", "secret"}, "eq.json"},
		{"absent", []string{"-a", ":1"}, ""},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigFileFlag(tt.args))
		})
	}
}
