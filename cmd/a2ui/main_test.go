package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/a2ui/pkg/config"
)

func TestResolveLogSettings(t *testing.T) {
	tests := []struct {
		name        string
		cli         CLI
		env         map[string]string
		cfg         *config.LoggerConfig
		interactive bool
		want        logSettings
	}{
		{
			name: "defaults",
			want: logSettings{Level: "info", Format: "simple"},
		},
		{
			name:        "interactive logs to file",
			interactive: true,
			want:        logSettings{Level: "info", File: DefaultLogFile, Format: "simple"},
		},
		{
			name: "config below env",
			env:  map[string]string{LogLevelEnvVar: "warn"},
			cfg:  &config.LoggerConfig{Level: "debug", Format: "json", File: "cfg.log"},
			want: logSettings{Level: "warn", File: "cfg.log", Format: "json"},
		},
		{
			name: "flags win",
			cli:  CLI{LogLevel: "error", LogFile: "flag.log", LogFormat: "verbose"},
			env:  map[string]string{LogLevelEnvVar: "warn", LogFileEnvVar: "env.log", LogFormatEnvVar: "json"},
			cfg:  &config.LoggerConfig{Level: "debug"},
			want: logSettings{Level: "error", File: "flag.log", Format: "verbose"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(LogLevelEnvVar, "")
			t.Setenv(LogFileEnvVar, "")
			t.Setenv(LogFormatEnvVar, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, resolveLogSettings(&tt.cli, tt.cfg, tt.interactive))
		})
	}
}

func TestInitLogger_RejectsBadFormat(t *testing.T) {
	_, _, err := initLogger(logSettings{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestInitLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a2ui.log")
	out, cleanup, err := initLogger(logSettings{Level: "debug", File: path, Format: "simple"})
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, out)
	assert.FileExists(t, path)
}

func TestValidateEnvelopes(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, validateEnvelopes(&out,
		[]byte(`{"surfaceUpdate":{"components":[{"id":"t1","component":"Text","text":"hi"}]}}`)))
	assert.Contains(t, out.String(), "1 components")

	capture := "data: {\"surfaceUpdate\":{\"components\":[{\"id\":\"t1\",\"component\":\"Text\"}]}}\n\n" +
		": keepalive\n\n" +
		"data: {\"type\":\"complete\"}\n\n"
	out.Reset()
	require.NoError(t, validateEnvelopes(&out, []byte(capture)))
	assert.Contains(t, out.String(), "2 frames")

	bad := "data: {\"surfaceUpdate\":{\"components\":[{\"id\":\"t1\"}]}}\n\n"
	out.Reset()
	err := validateEnvelopes(&out, []byte(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 frames invalid")
	assert.Contains(t, out.String(), "frame 1")
}

func TestValidateConfig(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, validateConfig(&out, []byte("backend:\n  base_url: http://relay:8000\n  timeout: 45s\npreview:\n  port: 9000\n")))
	assert.Contains(t, out.String(), "valid configuration")

	assert.Error(t, validateConfig(&out, []byte("preview:\n  port: nope\n")))
	assert.Error(t, validateConfig(&out, []byte("history:\n  driver: oracle\n  dsn: x\n")))
	assert.NoError(t, validateConfig(&out, []byte("")))
}

func TestCLIParses(t *testing.T) {
	tests := [][]string{
		{"chat", "--session", "s1"},
		{"send", "hello", "-s", "s1", "--json"},
		{"replay", "s1", "--db", "relay.db", "--driver", "sqlite"},
		{"serve", "--port", "9000"},
		{"agent", "http://localhost:8001"},
		{"settings", "set", "agent_url", "http://localhost:9000"},
		{"settings"},
		{"schema", "config"},
		{"validate", "frames.txt", "--target", "envelope"},
		{"version"},
	}
	for _, args := range tests {
		var cli CLI
		parser, err := kong.New(&cli, kong.Name("a2ui"), kong.Exit(func(int) { t.Fatalf("exit on %v", args) }))
		require.NoError(t, err)
		_, err = parser.Parse(args)
		assert.NoError(t, err, "%v", args)
	}
}
