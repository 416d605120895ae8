package zipsum

import (
	"path"
	"strings"
)

// textExtensions lists extensions whose content is worth showing to the model.
var textExtensions = map[string]bool{
	// docs
	".txt": true, ".md": true, ".markdown": true, ".rst": true, ".adoc": true, ".csv": true, ".tsv": true, ".log": true,
	// config
	".json": true, ".jsonc": true, ".yaml": true, ".yml": true, ".toml": true, ".ini": true, ".cfg": true, ".conf": true,
	".env": true, ".properties": true, ".xml": true, ".plist": true, ".lock": true, ".mod": true, ".sum": true,
	// web
	".html": true, ".htm": true, ".css": true, ".scss": true, ".sass": true, ".less": true, ".svg": true, ".vue": true, ".svelte": true,
	// source
	".go": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true, ".ts": true, ".tsx": true, ".py": true, ".rb": true,
	".php": true, ".java": true, ".kt": true, ".kts": true, ".scala": true, ".swift": true, ".c": true, ".h": true, ".cc": true,
	".cpp": true, ".hpp": true, ".cs": true, ".rs": true, ".lua": true, ".pl": true, ".r": true, ".dart": true, ".ex": true,
	".exs": true, ".erl": true, ".hs": true, ".clj": true, ".elm": true, ".zig": true, ".sql": true, ".graphql": true, ".proto": true,
	// scripts
	".sh": true, ".bash": true, ".zsh": true, ".fish": true, ".ps1": true, ".bat": true, ".cmd": true, ".mk": true, ".gradle": true,
	".tf": true, ".hcl": true,
}

// textBasenames lists extension-less or dotfile names treated as text.
var textBasenames = map[string]bool{
	"dockerfile":     true,
	"makefile":       true,
	"license":        true,
	"readme":         true,
	"procfile":       true,
	"gemfile":        true,
	".gitignore":     true,
	".gitattributes": true,
	".dockerignore":  true,
	".editorconfig":  true,
	".npmrc":         true,
	".env.example":   true,
}

// isTextLike reports whether the entry name suggests readable text.
func isTextLike(name string) bool {
	base := strings.ToLower(path.Base(name))
	if textBasenames[base] {
		return true
	}
	return textExtensions[path.Ext(base)]
}

// fenceLanguage returns a code-fence info string for name, or empty.
func fenceLanguage(name string) string {
	ext := strings.TrimPrefix(path.Ext(strings.ToLower(name)), ".")
	switch ext {
	case "yml":
		return "yaml"
	case "md", "markdown":
		return "markdown"
	case "txt", "log", "lock", "sum", "mod", "":
		if strings.EqualFold(path.Base(name), "dockerfile") {
			return "dockerfile"
		}
		return ""
	default:
		return ext
	}
}
