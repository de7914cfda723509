package flags

import (
	"fmt"
	"strings"
)

const (
	choicePlaceholderOpenConstant   = "<"
	choicePlaceholderCloseConstant  = ">"
	choiceSeparatorConstant         = "|"
	choiceUsageBareTemplateConstant = "`%s`"
	choiceUsageFullTemplateConstant = "`%s` %s"
)

// FormatChoiceUsage builds a flag usage string listing the accepted choices
// with the default choice capitalized inside a placeholder.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))

	displayChoices := make([]string, 0, len(choices))
	seenChoices := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		trimmedChoice := strings.TrimSpace(choice)
		if len(trimmedChoice) == 0 {
			continue
		}

		normalizedChoice := strings.ToLower(trimmedChoice)
		if _, alreadySeen := seenChoices[normalizedChoice]; alreadySeen {
			continue
		}
		seenChoices[normalizedChoice] = struct{}{}

		if normalizedChoice == normalizedDefault {
			trimmedChoice = strings.ToUpper(trimmedChoice)
		}
		displayChoices = append(displayChoices, trimmedChoice)
	}

	placeholder := choicePlaceholderOpenConstant + strings.Join(displayChoices, choiceSeparatorConstant) + choicePlaceholderCloseConstant
	trimmedDescription := strings.TrimSpace(description)
	if len(trimmedDescription) == 0 {
		return fmt.Sprintf(choiceUsageBareTemplateConstant, placeholder)
	}
	return fmt.Sprintf(choiceUsageFullTemplateConstant, placeholder, trimmedDescription)
}
