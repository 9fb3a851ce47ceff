package importer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skilldepot/skilldepot/internal/session"
	"github.com/skilldepot/skilldepot/internal/validation"
)

func TestValidateFolder(t *testing.T) {
	manyFiles := []session.FolderFile{{Path: "SKILL.md", Content: "doc"}}
	for i := 0; i < validation.MaxFilesPerVersion; i++ {
		manyFiles = append(manyFiles, session.FolderFile{Path: fmt.Sprintf("f%02d.md", i), Content: "x"})
	}

	tests := []struct {
		name     string
		folder   session.Folder
		want     bool
		problems int
	}{
		{
			name: "valid",
			folder: session.Folder{Name: "ok", Files: []session.FolderFile{
				{Path: "SKILL.md", Content: "doc"},
				{Path: "scripts/run.sh", Content: "echo"},
			}},
			want: true,
		},
		{
			name:     "missing marker",
			folder:   session.Folder{Name: "bad", Files: []session.FolderFile{{Path: "notes.md", Content: "x"}}},
			want:     false,
			problems: 1,
		},
		{
			name: "marker not at root",
			folder: session.Folder{Name: "nested", Files: []session.FolderFile{
				{Path: "docs/SKILL.md", Content: "x"},
			}},
			want:     false,
			problems: 1,
		},
		{
			name:     "too many files",
			folder:   session.Folder{Name: "big", Files: manyFiles},
			want:     false,
			problems: 1,
		},
		{
			name: "oversized file",
			folder: session.Folder{Name: "huge", Files: []session.FolderFile{
				{Path: "SKILL.md", Content: "doc"},
				{Path: "blob.txt", Content: strings.Repeat("x", validation.MaxFileSize+1)},
			}},
			want:     false,
			problems: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, problems := validateFolder(tt.folder)
			assert.Equal(t, tt.want, ok)
			if !tt.want {
				assert.Len(t, problems, tt.problems, "problems: %v", problems)
			}
		})
	}
}

func TestFolderInputs(t *testing.T) {
	folder := session.Folder{
		Name: "toolkit",
		Files: []session.FolderFile{
			{Path: "SKILL.md", Content: "doc"},
			{Path: "scripts/run.sh", Content: "echo"},
			{Path: "helper.py", Content: "pass", IsExecutable: true},
		},
	}
	inputs := folderInputs(folder)

	assert.Equal(t, "", inputs[0].ScriptLanguage)
	assert.False(t, inputs[0].IsExecutable)

	// Shell scripts are executable even without the archive mode bit.
	assert.Equal(t, "bash", inputs[1].ScriptLanguage)
	assert.True(t, inputs[1].IsExecutable)

	// Non-shell scripts keep the mode bit they came with.
	assert.Equal(t, "python", inputs[2].ScriptLanguage)
	assert.True(t, inputs[2].IsExecutable)
}
