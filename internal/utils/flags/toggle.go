package flags

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

const (
	toggleTrueCanonicalValueConstant      = "true"
	toggleFalseCanonicalValueConstant     = "false"
	toggleBoolTypeNameConstant            = "bool"
	toggleParseErrorTemplateConstant      = "invalid toggle value %q"
	toggleDefaultTruePlaceholderConstant  = "<YES|no>"
	toggleDefaultFalsePlaceholderConstant = "<yes|NO>"
	argumentTerminatorConstant            = "--"
)

var (
	toggleTrueLiterals  = literalSet(toggleTrueCanonicalValueConstant, "yes", "on", "1", "t", "y")
	toggleFalseLiterals = literalSet(toggleFalseCanonicalValueConstant, "no", "off", "0", "f", "n")

	toggleFlagRegistryMutex sync.RWMutex
	toggleFlagNames         = map[string]struct{}{}
	toggleFlagShorthands    = map[string]struct{}{}
)

func literalSet(literals ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(literals))
	for _, literal := range literals {
		set[literal] = struct{}{}
	}
	return set
}

// AddToggleFlag registers a boolean toggle flag that accepts yes/no style values.
// The flag reports a bool type so configuration lookups keep working.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil || len(name) == 0 {
		return
	}

	toggleValue := newToggleFlagValue(defaultValue, target)
	if len(shorthand) > 0 {
		flagSet.VarP(toggleValue, name, shorthand, usage)
	} else {
		flagSet.Var(toggleValue, name, usage)
	}

	registeredFlag := flagSet.Lookup(name)
	if registeredFlag == nil {
		return
	}
	registeredFlag.NoOptDefVal = toggleTrueCanonicalValueConstant
	registeredFlag.Usage = formatToggleUsage(usage, defaultValue)

	toggleFlagRegistryMutex.Lock()
	defer toggleFlagRegistryMutex.Unlock()
	toggleFlagNames[name] = struct{}{}
	if len(shorthand) > 0 {
		toggleFlagShorthands[shorthand] = struct{}{}
	}
}

func formatToggleUsage(description string, defaultValue bool) string {
	placeholder := toggleDefaultFalsePlaceholderConstant
	if defaultValue {
		placeholder = toggleDefaultTruePlaceholderConstant
	}
	trimmedDescription := strings.TrimSpace(description)
	if len(trimmedDescription) == 0 {
		return fmt.Sprintf(choiceUsageBareTemplateConstant, placeholder)
	}
	return fmt.Sprintf(choiceUsageFullTemplateConstant, placeholder, trimmedDescription)
}

// NormalizeToggleArguments rewrites toggle flag arguments so "--flag value"
// becomes "--flag=value" before Cobra parses them.
func NormalizeToggleArguments(arguments []string) []string {
	if len(arguments) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(arguments))
	index := 0
	for index < len(arguments) {
		currentArgument := arguments[index]
		if currentArgument == argumentTerminatorConstant {
			normalized = append(normalized, arguments[index:]...)
			break
		}

		if !referencesToggleFlag(currentArgument) || strings.Contains(currentArgument, "=") {
			normalized = append(normalized, currentArgument)
			index++
			continue
		}

		if index+1 < len(arguments) && !strings.HasPrefix(arguments[index+1], "-") {
			normalized = append(normalized, currentArgument+"="+arguments[index+1])
			index += 2
			continue
		}

		normalized = append(normalized, currentArgument)
		index++
	}

	return normalized
}

func referencesToggleFlag(argument string) bool {
	toggleFlagRegistryMutex.RLock()
	defer toggleFlagRegistryMutex.RUnlock()

	if strings.HasPrefix(argument, "--") {
		flagName := strings.TrimPrefix(argument, "--")
		if equalsIndex := strings.Index(flagName, "="); equalsIndex >= 0 {
			flagName = flagName[:equalsIndex]
		}
		if len(flagName) == 0 {
			return false
		}
		_, registered := toggleFlagNames[flagName]
		return registered
	}

	if strings.HasPrefix(argument, "-") {
		shorthand := strings.TrimPrefix(argument, "-")
		if equalsIndex := strings.Index(shorthand, "="); equalsIndex >= 0 {
			shorthand = shorthand[:equalsIndex]
		}
		if len(shorthand) != 1 {
			return false
		}
		_, registered := toggleFlagShorthands[shorthand]
		return registered
	}

	return false
}

type toggleFlagValue struct {
	currentValue bool
	target       *bool
}

func newToggleFlagValue(defaultValue bool, target *bool) *toggleFlagValue {
	if target != nil {
		*target = defaultValue
	}
	return &toggleFlagValue{currentValue: defaultValue, target: target}
}

func (value *toggleFlagValue) Set(rawValue string) error {
	trimmedValue := strings.TrimSpace(rawValue)
	if len(trimmedValue) == 0 {
		trimmedValue = toggleTrueCanonicalValueConstant
	}

	normalizedValue := strings.ToLower(trimmedValue)
	if _, isTrue := toggleTrueLiterals[normalizedValue]; isTrue {
		value.apply(true)
		return nil
	}
	if _, isFalse := toggleFalseLiterals[normalizedValue]; isFalse {
		value.apply(false)
		return nil
	}

	return fmt.Errorf(toggleParseErrorTemplateConstant, rawValue)
}

func (value *toggleFlagValue) apply(parsedValue bool) {
	value.currentValue = parsedValue
	if value.target != nil {
		*value.target = parsedValue
	}
}

func (value *toggleFlagValue) String() string {
	if value == nil || !value.currentValue {
		return toggleFalseCanonicalValueConstant
	}
	return toggleTrueCanonicalValueConstant
}

func (value *toggleFlagValue) Type() string {
	return toggleBoolTypeNameConstant
}
