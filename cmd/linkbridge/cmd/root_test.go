package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandStructure(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "linkbridge", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestGetConfigFileDefault(t *testing.T) {
	cfgFile = "linkbridge.yaml"
	assert.Equal(t, "linkbridge.yaml", GetConfigFile())
}

func TestGetCLIOverrides(t *testing.T) {
	logLevel = "debug"
	logFormat = "text"
	defer func() { logLevel, logFormat = "", "" }()

	overrides := GetCLIOverrides()
	assert.Equal(t, "debug", overrides.LogLevel)
	assert.Equal(t, "text", overrides.LogFormat)
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "version", "validate", "plan", "report"} {
		assert.True(t, names[want], "expected %q to be registered under root", want)
	}
}
