package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeCommandStructure(t *testing.T) {
	assert.NotNil(t, serveCmd)
	assert.Equal(t, "serve", serveCmd.Use)
	assert.NotNil(t, serveCmd.RunE)

	addrFlag := serveCmd.Flags().Lookup("addr")
	assert.NotNil(t, addrFlag)
}

func TestRunServeFailsOnMissingConfig(t *testing.T) {
	cfgFile = "/nonexistent/linkbridge.yaml"
	err := runServe(serveCmd, nil)
	assert.Error(t, err)
}
