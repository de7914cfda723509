package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestBindRootFlagsParsesRepeatedRoots(t *testing.T) {
	command := &cobra.Command{}

	rootValues := BindRootFlags(command, RootFlagValues{Roots: []string{"."}})
	require.Equal(t, []string{"."}, rootValues.Roots)

	parseError := command.ParseFlags([]string{"--root", "/workspace", "--root", "/projects"})
	require.NoError(t, parseError)
	require.Equal(t, []string{"/workspace", "/projects"}, rootValues.Roots)
}

func TestBindRootFlagsKeepsDefaultsWithoutArguments(t *testing.T) {
	command := &cobra.Command{}

	rootValues := BindRootFlags(command, RootFlagValues{Roots: []string{"/srv/projects"}})

	parseError := command.ParseFlags([]string{})
	require.NoError(t, parseError)
	require.Equal(t, []string{"/srv/projects"}, rootValues.Roots)
}

func TestBindRootFlagsToleratesNilCommand(t *testing.T) {
	rootValues := BindRootFlags(nil, RootFlagValues{Roots: []string{"."}})

	require.NotNil(t, rootValues)
	require.Equal(t, []string{"."}, rootValues.Roots)
}

func TestBindRootFlagsPreservesExistingRegistration(t *testing.T) {
	command := &cobra.Command{}

	firstValues := BindRootFlags(command, RootFlagValues{Roots: []string{"."}})
	secondValues := BindRootFlags(command, RootFlagValues{Roots: []string{"/elsewhere"}})

	parseError := command.ParseFlags([]string{"--root", "/workspace"})
	require.NoError(t, parseError)

	require.Equal(t, []string{"/workspace"}, firstValues.Roots)
	require.Equal(t, []string{"/elsewhere"}, secondValues.Roots)
}
