package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const homePrefixConstant = "~"

// HomeDirectoryProvider resolves the current user's home directory.
type HomeDirectoryProvider func() (string, error)

// HomeExpander rewrites tilde-prefixed paths against the user's home
// directory. The directory lookup happens once and is shared across calls.
type HomeExpander struct {
	provider        HomeDirectoryProvider
	lookupOnce      sync.Once
	homeDirectory   string
	homeLookupError error
}

// NewHomeExpander constructs an expander backed by os.UserHomeDir.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider constructs an expander with a custom home
// directory lookup. A nil provider falls back to os.UserHomeDir.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{provider: provider}
}

// Expand resolves a leading "~" or "~/" against the home directory. Paths
// naming other users ("~alice") and paths without the prefix return
// unchanged, as does every path when the home lookup fails.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil || !strings.HasPrefix(candidatePath, homePrefixConstant) {
		return candidatePath
	}

	remainderPath := candidatePath[len(homePrefixConstant):]
	if len(remainderPath) > 0 && remainderPath[0] != '/' && remainderPath[0] != os.PathSeparator {
		return candidatePath
	}

	resolvedHomeDirectory := expander.resolveHomeDirectory()
	if len(resolvedHomeDirectory) == 0 {
		return candidatePath
	}
	if len(remainderPath) == 0 {
		return resolvedHomeDirectory
	}
	return filepath.Join(resolvedHomeDirectory, remainderPath[1:])
}

func (expander *HomeExpander) resolveHomeDirectory() string {
	expander.lookupOnce.Do(func() {
		expander.homeDirectory, expander.homeLookupError = expander.provider()
	})
	if expander.homeLookupError != nil {
		return ""
	}
	return expander.homeDirectory
}
