package importer

import (
	"fmt"

	"github.com/skilldepot/skilldepot/internal/session"
	"github.com/skilldepot/skilldepot/internal/skill"
	"github.com/skilldepot/skilldepot/internal/validation"
)

// validateFolder applies the structural rules to one candidate: the marker
// file must sit at the candidate's own root, the text file count must not
// exceed the per-version limit, and no text file may exceed the content
// limit. All problems are collected so a caller sees everything at once.
func validateFolder(f session.Folder) (bool, []string) {
	var problems []string

	hasMarker := false
	for _, file := range f.Files {
		if file.Path == skill.MarkerFile {
			hasMarker = true
			break
		}
	}
	if !hasMarker {
		problems = append(problems, fmt.Sprintf("missing required %s file at the folder root", skill.MarkerFile))
	}

	if len(f.Files) > validation.MaxFilesPerVersion {
		problems = append(problems, fmt.Sprintf("folder has %d files, the limit is %d", len(f.Files), validation.MaxFilesPerVersion))
	}

	for _, file := range f.Files {
		if ok, ps := validation.CheckPath(file.Path); !ok {
			problems = append(problems, ps...)
		}
		if ok, ps := validation.CheckContent(file.Path, file.Content); !ok {
			problems = append(problems, ps...)
		}
	}

	return len(problems) == 0, problems
}

// folderDescription returns the preview excerpt for a candidate, taken from
// its marker file.
func folderDescription(f session.Folder) string {
	for _, file := range f.Files {
		if file.Path == skill.MarkerFile {
			return skill.Excerpt(file.Content)
		}
	}
	return ""
}

// folderInputs converts a candidate's text files to engine file inputs,
// deriving the script language from the extension and the executable flag
// from the archive mode bits or the language.
func folderInputs(f session.Folder) []skill.FileInput {
	inputs := make([]skill.FileInput, len(f.Files))
	for i, file := range f.Files {
		lang := languageForPath(file.Path)
		inputs[i] = skill.FileInput{
			Path:           file.Path,
			Content:        file.Content,
			IsExecutable:   file.IsExecutable || shellLanguages[lang],
			ScriptLanguage: lang,
		}
	}
	return inputs
}
