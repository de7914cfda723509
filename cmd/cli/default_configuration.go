package cli

import _ "embed"

//go:embed default_config.yaml
var embeddedDefaultConfigurationDocument []byte

// EmbeddedDefaultConfiguration returns a copy of the embedded default
// configuration document together with its type identifier.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	documentCopy := make([]byte, len(embeddedDefaultConfigurationDocument))
	copy(documentCopy, embeddedDefaultConfigurationDocument)
	return documentCopy, configurationTypeConstant
}
