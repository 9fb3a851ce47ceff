package importer

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/skilldepot/skilldepot/internal/session"
	"github.com/skilldepot/skilldepot/pkg/cerr"
)

// binarySampleSize is how much of a file the binary heuristic inspects.
const binarySampleSize = 8 * 1024

// IsBinary classifies content with a heuristic, not a guarantee: a null
// byte anywhere in the sampled prefix, or more than 10% non-printable bytes
// over that prefix, marks the file binary. Empty files are text.
func IsBinary(data []byte) bool {
	sample := data
	if len(sample) > binarySampleSize {
		sample = sample[:binarySampleSize]
	}
	if len(sample) == 0 {
		return false
	}
	nonPrintable := 0
	for _, b := range sample {
		if b == 0 {
			return true
		}
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			nonPrintable++
		}
	}
	return nonPrintable*10 > len(sample)
}

// extractFolders unpacks a zip archive into candidate folders, one per
// top-level directory. Files directly at the archive root belong to no
// candidate and are dropped. Binary files are recorded as skipped by path;
// their bytes never leave this function.
func extractFolders(archive []byte) ([]session.Folder, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "archive is not a valid zip file", err)
	}

	byName := map[string]*session.Folder{}
	var order []string
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		name := path.Clean(zf.Name)
		if name == "." || strings.HasPrefix(name, "..") || path.IsAbs(name) {
			continue
		}
		folderName, rel, ok := strings.Cut(name, "/")
		if !ok {
			// Root-level file, not attached to any candidate.
			continue
		}

		folder, exists := byName[folderName]
		if !exists {
			folder = &session.Folder{Name: folderName}
			byName[folderName] = folder
			order = append(order, folderName)
		}

		data, err := readZipFile(zf)
		if err != nil {
			return nil, cerr.NewError(cerr.InvalidArgument,
				fmt.Sprintf("failed to read %q from archive", zf.Name), err)
		}
		if IsBinary(data) {
			folder.Skipped = append(folder.Skipped, rel)
			continue
		}
		folder.Files = append(folder.Files, session.FolderFile{
			Path:         rel,
			Content:      string(data),
			IsExecutable: zf.Mode()&0o100 != 0,
		})
	}

	sort.Strings(order)
	folders := make([]session.Folder, 0, len(order))
	for _, name := range order {
		folders = append(folders, *byName[name])
	}
	return folders, nil
}

func readZipFile(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
