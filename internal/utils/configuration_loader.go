package utils

import (
	"bytes"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	environmentKeyDotConstant                  = "."
	environmentKeyUnderscoreConstant           = "_"
	environmentListSeparatorConstant           = ","
	configurationReadErrorTemplateConstant     = "reading configuration: %w"
	configurationDecodeErrorTemplateConstant   = "decoding configuration: %w"
	embeddedConfigurationErrorTemplateConstant = "merging embedded configuration: %w"
)

// ConfigurationLoader layers the configuration sources of a command run:
// an embedded default document, programmatic defaults, an optional
// configuration file, and prefixed environment variables, weakest first.
type ConfigurationLoader struct {
	configurationBaseName  string
	configurationFormat    string
	environmentPrefix      string
	searchPaths            []string
	environmentReplacer    *strings.Replacer
	embeddedDocument       []byte
	embeddedDocumentFormat string
}

// LoadedConfiguration reports where the resolved configuration came from.
// ConfigFileUsed is empty when no configuration file participated.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader constructs a loader that looks for
// <baseName>.<format> in the given search paths and binds environment
// variables beneath the prefix, with dots mapped to underscores. Blank search
// path entries are dropped.
func NewConfigurationLoader(configurationBaseName string, configurationFormat string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	retainedSearchPaths := make([]string, 0, len(searchPaths))
	for _, searchPath := range searchPaths {
		if len(strings.TrimSpace(searchPath)) > 0 {
			retainedSearchPaths = append(retainedSearchPaths, searchPath)
		}
	}

	return &ConfigurationLoader{
		configurationBaseName: configurationBaseName,
		configurationFormat:   configurationFormat,
		environmentPrefix:     environmentPrefix,
		searchPaths:           retainedSearchPaths,
		environmentReplacer:   strings.NewReplacer(environmentKeyDotConstant, environmentKeyUnderscoreConstant),
	}
}

// SetEmbeddedConfiguration installs the built-in configuration document that
// every other source layers over. The document bytes are copied.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(documentContent []byte, documentFormat string) {
	if loader == nil {
		return
	}

	loader.embeddedDocument = nil
	loader.embeddedDocumentFormat = strings.TrimSpace(documentFormat)

	if len(documentContent) == 0 {
		return
	}

	retainedDocument := make([]byte, len(documentContent))
	copy(retainedDocument, documentContent)
	loader.embeddedDocument = retainedDocument
}

// LoadConfiguration resolves the layered configuration into
// targetConfiguration. An explicit configurationFilePath replaces the search
// paths; a missing searched file is not an error, a missing explicit file is.
// Environment values holding comma separated lists decode into slice fields.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.configurationBaseName)
	viperInstance.SetConfigType(loader.configurationFormat)

	if embeddedError := loader.mergeEmbeddedConfiguration(viperInstance); embeddedError != nil {
		return LoadedConfiguration{}, embeddedError
	}

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	loader.bindEnvironment(viperInstance)

	if fileError := loader.mergeConfigurationFile(viperInstance, configurationFilePath); fileError != nil {
		return LoadedConfiguration{}, fileError
	}

	decodeHook := viper.DecodeHook(mapstructure.StringToSliceHookFunc(environmentListSeparatorConstant))
	if decodeError := viperInstance.Unmarshal(targetConfiguration, decodeHook); decodeError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationDecodeErrorTemplateConstant, decodeError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}

func (loader *ConfigurationLoader) mergeEmbeddedConfiguration(viperInstance *viper.Viper) error {
	if len(loader.embeddedDocument) == 0 {
		return nil
	}

	documentFormat := loader.configurationFormat
	if len(loader.embeddedDocumentFormat) > 0 {
		documentFormat = loader.embeddedDocumentFormat
	}

	viperInstance.SetConfigType(documentFormat)
	mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedDocument))
	viperInstance.SetConfigType(loader.configurationFormat)

	if mergeError != nil {
		return fmt.Errorf(embeddedConfigurationErrorTemplateConstant, mergeError)
	}
	return nil
}

func (loader *ConfigurationLoader) mergeConfigurationFile(viperInstance *viper.Viper, configurationFilePath string) error {
	if len(configurationFilePath) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
	} else {
		for _, searchPath := range loader.searchPaths {
			viperInstance.AddConfigPath(searchPath)
		}
	}

	mergeError := viperInstance.MergeInConfig()
	if mergeError == nil {
		return nil
	}
	if _, fileNotFound := mergeError.(viper.ConfigFileNotFoundError); fileNotFound && len(configurationFilePath) == 0 {
		return nil
	}
	return fmt.Errorf(configurationReadErrorTemplateConstant, mergeError)
}

func (loader *ConfigurationLoader) bindEnvironment(viperInstance *viper.Viper) {
	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	if loader.environmentReplacer != nil {
		viperInstance.SetEnvKeyReplacer(loader.environmentReplacer)
	}
	viperInstance.AutomaticEnv()
}
