// Package validation holds the pure constraint checks shared by the
// versioning engine and the import pipeline. Every check returns a validity
// flag plus human-readable problem strings and never returns an error, so
// callers can accumulate all violations before failing a request.
package validation

import "fmt"

const (
	// MaxNameLength is the maximum length of a skill name.
	MaxNameLength = 100
	// MaxDescriptionLength is the maximum length of a skill description.
	MaxDescriptionLength = 1024
	// MaxChangelogLength is the maximum length of a version changelog.
	MaxChangelogLength = 2000
	// MaxPathLength is the maximum length of a file path within a version.
	MaxPathLength = 255
	// MaxFileSize is the maximum byte length of a single file's content.
	MaxFileSize = 200 * 1024
	// MaxFilesPerVersion is the maximum number of files in one version.
	MaxFilesPerVersion = 50
	// MaxArchiveSize is the maximum accepted upload size for bulk import.
	MaxArchiveSize = 10 * 1024 * 1024
	// MaxListLimit caps list page sizes regardless of what the caller asks for.
	MaxListLimit = 100
)

func CheckName(name string) (bool, []string) {
	var problems []string
	if name == "" {
		problems = append(problems, "name must not be empty")
	}
	if len(name) > MaxNameLength {
		problems = append(problems, fmt.Sprintf("name exceeds %d characters", MaxNameLength))
	}
	return len(problems) == 0, problems
}

func CheckDescription(description string) (bool, []string) {
	if len(description) > MaxDescriptionLength {
		return false, []string{fmt.Sprintf("description exceeds %d characters", MaxDescriptionLength)}
	}
	return true, nil
}

func CheckChangelog(changelog string) (bool, []string) {
	if len(changelog) > MaxChangelogLength {
		return false, []string{fmt.Sprintf("changelog exceeds %d characters", MaxChangelogLength)}
	}
	return true, nil
}

func CheckPath(path string) (bool, []string) {
	var problems []string
	if path == "" {
		problems = append(problems, "file path must not be empty")
	}
	if len(path) > MaxPathLength {
		problems = append(problems, fmt.Sprintf("file path %q exceeds %d characters", path, MaxPathLength))
	}
	return len(problems) == 0, problems
}

func CheckContent(path string, content string) (bool, []string) {
	if len(content) > MaxFileSize {
		return false, []string{fmt.Sprintf("file %q exceeds %d bytes", path, MaxFileSize)}
	}
	return true, nil
}

// CheckFileCount validates an absolute file count for one version.
func CheckFileCount(count int) (bool, []string) {
	if count == 0 {
		return false, []string{"at least one file is required"}
	}
	if count > MaxFilesPerVersion {
		return false, []string{fmt.Sprintf("file count %d exceeds the limit of %d", count, MaxFilesPerVersion)}
	}
	return true, nil
}

// CheckResultingFileCount validates the count an update would produce:
// current + adds - deletes. Used before any row is written.
func CheckResultingFileCount(current, adds, deletes int) (bool, []string) {
	resulting := current + adds - deletes
	if resulting <= 0 {
		return false, []string{"at least one file is required"}
	}
	if resulting > MaxFilesPerVersion {
		return false, []string{fmt.Sprintf("resulting file count %d exceeds the limit of %d", resulting, MaxFilesPerVersion)}
	}
	return true, nil
}

// CheckDuplicatePaths reports any path appearing more than once in a batch.
func CheckDuplicatePaths(paths []string) (bool, []string) {
	seen := make(map[string]struct{}, len(paths))
	var problems []string
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			problems = append(problems, fmt.Sprintf("duplicate file path %q in the same batch", p))
			continue
		}
		seen[p] = struct{}{}
	}
	return len(problems) == 0, problems
}
