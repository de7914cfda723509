package emit_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uvmigrate/uvmigrate/internal/emit"
)

func TestPublishWritesOutputAndBackup(testInstance *testing.T) {
	testInstance.Parallel()

	outputDirectory := testInstance.TempDir()
	outputPath := filepath.Join(outputDirectory, "pyproject.toml")
	require.NoError(testInstance, os.WriteFile(outputPath, []byte("previous content\n"), 0o644))

	writtenFiles, publishError := emit.Publish([]byte("new content\n"), emit.PublishOptions{OutputPath: outputPath, Backup: true})
	require.NoError(testInstance, publishError)

	backupPath := emit.BackupPath(outputPath)
	require.Equal(testInstance, []string{backupPath, outputPath}, writtenFiles)

	publishedContent, readError := os.ReadFile(outputPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "new content\n", string(publishedContent))

	backupContent, backupReadError := os.ReadFile(backupPath)
	require.NoError(testInstance, backupReadError)
	require.Equal(testInstance, "previous content\n", string(backupContent))

	directoryEntries, listError := os.ReadDir(outputDirectory)
	require.NoError(testInstance, listError)
	entryNames := make([]string, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		entryNames = append(entryNames, directoryEntry.Name())
	}
	require.ElementsMatch(testInstance, []string{"pyproject.toml", "old.pyproject.toml"}, entryNames)
}

func TestPublishWithoutExistingDestinationSkipsBackup(testInstance *testing.T) {
	testInstance.Parallel()

	outputPath := filepath.Join(testInstance.TempDir(), "pyproject.toml")
	writtenFiles, publishError := emit.Publish([]byte("content\n"), emit.PublishOptions{OutputPath: outputPath, Backup: true})
	require.NoError(testInstance, publishError)
	require.Equal(testInstance, []string{outputPath}, writtenFiles)

	_, backupStatError := os.Stat(emit.BackupPath(outputPath))
	require.True(testInstance, os.IsNotExist(backupStatError))
}

func TestPublishWithBackupDisabledOverwritesInPlace(testInstance *testing.T) {
	testInstance.Parallel()

	outputDirectory := testInstance.TempDir()
	outputPath := filepath.Join(outputDirectory, "pyproject.toml")
	require.NoError(testInstance, os.WriteFile(outputPath, []byte("previous content\n"), 0o644))

	writtenFiles, publishError := emit.Publish([]byte("new content\n"), emit.PublishOptions{OutputPath: outputPath, Backup: false})
	require.NoError(testInstance, publishError)
	require.Equal(testInstance, []string{outputPath}, writtenFiles)

	_, backupStatError := os.Stat(emit.BackupPath(outputPath))
	require.True(testInstance, os.IsNotExist(backupStatError))
}

func TestPublishFailsWhenLockIsHeld(testInstance *testing.T) {
	testInstance.Parallel()

	outputDirectory := testInstance.TempDir()
	outputPath := filepath.Join(outputDirectory, "pyproject.toml")
	require.NoError(testInstance, os.WriteFile(outputPath, []byte("previous content\n"), 0o644))
	require.NoError(testInstance, os.WriteFile(outputPath+".lock", []byte(""), 0o644))

	_, publishError := emit.Publish([]byte("new content\n"), emit.PublishOptions{OutputPath: outputPath, Backup: true})
	require.Error(testInstance, publishError)

	var ioError emit.IOError
	require.ErrorAs(testInstance, publishError, &ioError)

	untouchedContent, readError := os.ReadFile(outputPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "previous content\n", string(untouchedContent))
}

func TestPublishReleasesLockAfterRun(testInstance *testing.T) {
	testInstance.Parallel()

	outputPath := filepath.Join(testInstance.TempDir(), "pyproject.toml")

	_, firstError := emit.Publish([]byte("first\n"), emit.PublishOptions{OutputPath: outputPath})
	require.NoError(testInstance, firstError)
	_, secondError := emit.Publish([]byte("second\n"), emit.PublishOptions{OutputPath: outputPath})
	require.NoError(testInstance, secondError)

	finalContent, readError := os.ReadFile(outputPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "second\n", string(finalContent))

	_, lockStatError := os.Stat(outputPath + ".lock")
	require.True(testInstance, os.IsNotExist(lockStatError))
}
