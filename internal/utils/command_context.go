package utils

import (
	"context"
	"strings"
)

type configurationFilePathContextKey struct{}

// CommandContextAccessor reads and writes the request-scoped values migration
// commands share through their execution context.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath stores the loaded configuration file path. A blank
// path marks a run served purely by embedded defaults and is not stored.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}

	trimmedPath := strings.TrimSpace(configurationFilePath)
	if len(trimmedPath) == 0 {
		return parentContext
	}
	return context.WithValue(parentContext, configurationFilePathContextKey{}, trimmedPath)
}

// ConfigurationFilePath reports the configuration file path recorded in the
// context, when one was stored.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}

	storedPath, pathAvailable := executionContext.Value(configurationFilePathContextKey{}).(string)
	if !pathAvailable || len(storedPath) == 0 {
		return "", false
	}
	return storedPath, true
}
