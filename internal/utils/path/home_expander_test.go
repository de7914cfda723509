package pathutils_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/uvmigrate/uvmigrate/internal/utils/path"
)

const (
	testHomeDirectoryConstant        = "/home/migrator"
	testOtherUserPathConstant        = "~alice/projects"
	testRelativeSegmentConstant      = ".uvmigrate"
	testUnprefixedPathConstant       = "projects/service"
	testLookupFailureMessageConstant = "home directory unavailable"
)

func fixedHomeProvider(homeDirectory string) pathutils.HomeDirectoryProvider {
	return func() (string, error) {
		return homeDirectory, nil
	}
}

func TestHomeExpanderExpand(testInstance *testing.T) {
	testInstance.Parallel()

	testCases := []struct {
		name          string
		provider      pathutils.HomeDirectoryProvider
		candidatePath string
		expectedPath  string
	}{
		{
			name:          "bare_tilde_resolves_to_home",
			provider:      fixedHomeProvider(testHomeDirectoryConstant),
			candidatePath: "~",
			expectedPath:  testHomeDirectoryConstant,
		},
		{
			name:          "tilde_slash_joins_remainder",
			provider:      fixedHomeProvider(testHomeDirectoryConstant),
			candidatePath: "~/" + testRelativeSegmentConstant,
			expectedPath:  filepath.Join(testHomeDirectoryConstant, testRelativeSegmentConstant),
		},
		{
			name:          "other_user_prefix_left_alone",
			provider:      fixedHomeProvider(testHomeDirectoryConstant),
			candidatePath: testOtherUserPathConstant,
			expectedPath:  testOtherUserPathConstant,
		},
		{
			name:          "unprefixed_path_left_alone",
			provider:      fixedHomeProvider(testHomeDirectoryConstant),
			candidatePath: testUnprefixedPathConstant,
			expectedPath:  testUnprefixedPathConstant,
		},
		{
			name:          "blank_path_left_alone",
			provider:      fixedHomeProvider(testHomeDirectoryConstant),
			candidatePath: "",
			expectedPath:  "",
		},
		{
			name: "lookup_failure_returns_input",
			provider: func() (string, error) {
				return "", errors.New(testLookupFailureMessageConstant)
			},
			candidatePath: "~/" + testRelativeSegmentConstant,
			expectedPath:  "~/" + testRelativeSegmentConstant,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			subTest.Parallel()

			expander := pathutils.NewHomeExpanderWithProvider(testCase.provider)
			require.Equal(subTest, testCase.expectedPath, expander.Expand(testCase.candidatePath))
		})
	}
}

func TestHomeExpanderCachesLookup(testInstance *testing.T) {
	testInstance.Parallel()

	lookupCount := 0
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		lookupCount++
		return testHomeDirectoryConstant, nil
	})

	require.Equal(testInstance, testHomeDirectoryConstant, expander.Expand("~"))
	require.Equal(testInstance, filepath.Join(testHomeDirectoryConstant, testRelativeSegmentConstant), expander.Expand("~/"+testRelativeSegmentConstant))
	require.Equal(testInstance, 1, lookupCount)
}
