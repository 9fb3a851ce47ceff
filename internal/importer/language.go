package importer

import (
	"path"
	"strings"
)

// extensionLanguages maps file extensions to the script-language tag stored
// on imported files. Unknown extensions get no tag.
var extensionLanguages = map[string]string{
	".py":   "python",
	".sh":   "bash",
	".bash": "bash",
	".js":   "javascript",
	".mjs":  "javascript",
	".ts":   "typescript",
	".rb":   "ruby",
	".pl":   "perl",
	".ps1":  "powershell",
	".lua":  "lua",
	".r":    "r",
}

// shellLanguages are treated as executable even when the archive carried no
// execute bit for the file.
var shellLanguages = map[string]bool{
	"bash":       true,
	"powershell": true,
}

func languageForPath(p string) string {
	return extensionLanguages[strings.ToLower(path.Ext(p))]
}
