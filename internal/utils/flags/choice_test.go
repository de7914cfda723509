package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatChoiceUsage(t *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{
			name:           "DefaultFirstChoice",
			defaultChoice:  "info",
			choices:        []string{"info", "debug", "warn", "error"},
			description:    "Log verbosity.",
			expectedOutput: "`<INFO|debug|warn|error>` Log verbosity.",
		},
		{
			name:           "DefaultLaterChoice",
			defaultChoice:  "json",
			choices:        []string{"console", "json"},
			description:    "Log output encoding.",
			expectedOutput: "`<console|JSON>` Log output encoding.",
		},
		{
			name:           "EmptyDescription",
			defaultChoice:  "console",
			choices:        []string{"console", "json"},
			description:    "",
			expectedOutput: "`<CONSOLE|json>`",
		},
		{
			name:           "DuplicateChoicesIgnored",
			defaultChoice:  "debug",
			choices:        []string{"debug", "debug", "info", "info"},
			description:    "Select a level.",
			expectedOutput: "`<DEBUG|info>` Select a level.",
		},
		{
			name:           "WhitespaceTrimmed",
			defaultChoice:  "warn",
			choices:        []string{" warn ", " error "},
			description:    " Pick a level. ",
			expectedOutput: "`<WARN|error>` Pick a level.",
		},
		{
			name:           "UnlistedDefaultLeftUnhighlighted",
			defaultChoice:  "verbose",
			choices:        []string{"info", "debug"},
			description:    "Log verbosity.",
			expectedOutput: "`<info|debug>` Log verbosity.",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			actual := FormatChoiceUsage(testCase.defaultChoice, testCase.choices, testCase.description)
			require.Equal(t, testCase.expectedOutput, actual)
		})
	}
}
