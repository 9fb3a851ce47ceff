package session

import "time"

// FolderFile is one text file of a staged candidate folder. Paths are
// relative to the folder root.
type FolderFile struct {
	Path         string `yaml:"path"`
	Content      string `yaml:"content"`
	IsExecutable bool   `yaml:"is_executable"`
}

// Folder is one candidate skill parsed out of an uploaded archive: the
// top-level directory name plus its text files. Binary entries are recorded
// by path only; their content never enters the session.
type Folder struct {
	Name    string       `yaml:"name"`
	Files   []FolderFile `yaml:"files"`
	Skipped []string     `yaml:"skipped_binaries,omitempty"`
}

// Session bridges the preview and commit phases of a bulk import. It is
// single-use: commit deletes it, and past ExpiresAt it behaves exactly like
// a session that was never created.
type Session struct {
	ID        string    `yaml:"id"`
	Folders   []Folder  `yaml:"folders"`
	CreatedAt time.Time `yaml:"created_at"`
	ExpiresAt time.Time `yaml:"expires_at"`
}

// Expired reports whether the session is past its TTL at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
