package emit

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	lockFileSuffixConstant             = ".lock"
	backupFileNamePrefixConstant       = "old."
	temporaryFilePatternSuffixConstant = ".tmp.*"
	publishedFileModeConstant          = 0o644
	lockHeldReasonConstant             = "another run holds the output lock"
	lockOperationNameConstant          = "lock"
	backupOperationNameConstant        = "backup"
	writeOperationNameConstant         = "write"
	publishOperationNameConstant       = "publish"
	syncOperationNameConstant          = "sync"
)

// PublishOptions name the output destination and backup behavior.
type PublishOptions struct {
	OutputPath string
	Backup     bool
}

// Publish writes rendered content to the output path and returns the files it
// created. The content lands in a temporary file first and is renamed over
// the destination, so an interrupted run leaves the previous manifest
// untouched. A lock file next to the output serializes concurrent runs
// against the same target.
func Publish(renderedContent []byte, options PublishOptions) ([]string, error) {
	lockPath := options.OutputPath + lockFileSuffixConstant
	lockFile, lockError := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, publishedFileModeConstant)
	if lockError != nil {
		if errors.Is(lockError, fs.ErrExist) {
			return nil, IOError{Operation: lockOperationNameConstant, Path: lockPath, Err: errors.New(lockHeldReasonConstant)}
		}
		return nil, IOError{Operation: lockOperationNameConstant, Path: lockPath, Err: lockError}
	}
	defer func() {
		_ = lockFile.Close()
		_ = os.Remove(lockPath)
	}()

	writtenFiles := make([]string, 0, 2)
	if options.Backup {
		backupWritten, backupError := backupExistingOutput(options.OutputPath)
		if backupError != nil {
			return nil, backupError
		}
		if backupWritten {
			writtenFiles = append(writtenFiles, BackupPath(options.OutputPath))
		}
	}

	if writeError := writeFileAtomic(options.OutputPath, renderedContent); writeError != nil {
		return nil, writeError
	}
	writtenFiles = append(writtenFiles, options.OutputPath)
	return writtenFiles, nil
}

// BackupPath names the backup file a publish with backups enabled writes.
func BackupPath(outputPath string) string {
	return filepath.Join(filepath.Dir(outputPath), backupFileNamePrefixConstant+filepath.Base(outputPath))
}

// backupExistingOutput copies a pre-existing destination aside and reports
// whether a backup was written.
func backupExistingOutput(outputPath string) (bool, error) {
	existingContent, readError := os.ReadFile(outputPath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return false, nil
		}
		return false, IOError{Operation: backupOperationNameConstant, Path: outputPath, Err: readError}
	}
	if writeError := writeFileAtomic(BackupPath(outputPath), existingContent); writeError != nil {
		return false, writeError
	}
	return true, nil
}

func writeFileAtomic(destinationPath string, content []byte) error {
	destinationDirectory := filepath.Dir(destinationPath)
	temporaryFile, createError := os.CreateTemp(destinationDirectory, filepath.Base(destinationPath)+temporaryFilePatternSuffixConstant)
	if createError != nil {
		return IOError{Operation: writeOperationNameConstant, Path: destinationPath, Err: createError}
	}
	temporaryPath := temporaryFile.Name()
	committed := false
	defer func() {
		_ = temporaryFile.Close()
		if !committed {
			_ = os.Remove(temporaryPath)
		}
	}()

	if _, writeError := temporaryFile.Write(content); writeError != nil {
		return IOError{Operation: writeOperationNameConstant, Path: destinationPath, Err: writeError}
	}
	if chmodError := temporaryFile.Chmod(publishedFileModeConstant); chmodError != nil {
		return IOError{Operation: writeOperationNameConstant, Path: destinationPath, Err: chmodError}
	}
	if syncError := temporaryFile.Sync(); syncError != nil {
		return IOError{Operation: syncOperationNameConstant, Path: destinationPath, Err: syncError}
	}
	if closeError := temporaryFile.Close(); closeError != nil {
		return IOError{Operation: writeOperationNameConstant, Path: destinationPath, Err: closeError}
	}
	if renameError := os.Rename(temporaryPath, destinationPath); renameError != nil {
		return IOError{Operation: publishOperationNameConstant, Path: destinationPath, Err: renameError}
	}
	committed = true
	return syncParentDirectory(destinationDirectory)
}

func syncParentDirectory(directoryPath string) error {
	directoryHandle, openError := os.Open(directoryPath)
	if openError != nil {
		return IOError{Operation: syncOperationNameConstant, Path: directoryPath, Err: openError}
	}
	defer func() {
		_ = directoryHandle.Close()
	}()
	if syncError := directoryHandle.Sync(); syncError != nil {
		return IOError{Operation: syncOperationNameConstant, Path: directoryPath, Err: syncError}
	}
	return nil
}
