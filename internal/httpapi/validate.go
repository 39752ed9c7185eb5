package httpapi

import (
	"regexp"
	"sort"

	"judgecore/internal/config"
	"judgecore/internal/engine"
	"judgecore/internal/language"
	"judgecore/pkg/apperr"
)

const maxFileCount = 10

// validFilenamePattern is the positive charset allowlist: letters, digits,
// underscore, dot, hyphen, nothing else.
var validFilenamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// forbiddenNamePatterns blocks path-traversal/absolute/home-relative
// filenames and executable/compiled-artifact suffixes that have no
// business being a submitted source file.
var forbiddenNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.\.`),
	regexp.MustCompile(`^/`),
	regexp.MustCompile(`^~`),
	regexp.MustCompile(`\.pyc$`),
	regexp.MustCompile(`\.class$`),
	regexp.MustCompile(`\.exe$`),
	regexp.MustCompile(`\.dll$`),
	regexp.MustCompile(`\.so$`),
	regexp.MustCompile(`\.sh$`),
}

func validLanguage(lang string) bool {
	for _, id := range language.Supported() {
		if id == lang {
			return true
		}
	}
	return false
}

func validFilename(name string) bool {
	if name == "" || !validFilenamePattern.MatchString(name) {
		return false
	}
	for _, bad := range forbiddenNamePatterns {
		if bad.MatchString(name) {
			return false
		}
	}
	return true
}

// buildSourceFiles validates a run/submit request's file map and converts it
// to the engine's ordered SourceFile slice. Map iteration is non-deterministic,
// so the result is sorted by name to keep "first file" selection stable
// across requests with the same payload.
func buildSourceFiles(files map[string]string, cfg config.GradingConfig) ([]engine.SourceFile, error) {
	if len(files) == 0 {
		return nil, apperr.ValidationError("files", "at least one file is required")
	}
	if len(files) > maxFileCount {
		return nil, apperr.ValidationError("files", "at most 10 files are allowed")
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var total int
	out := make([]engine.SourceFile, 0, len(files))
	for _, name := range names {
		if !validFilename(name) {
			return nil, apperr.ValidationError("files", "filename \""+name+"\" is not allowed")
		}
		body := files[name]
		if len(body) > cfg.MaxFileBytes {
			return nil, apperr.ValidationError("files", "file \""+name+"\" exceeds the maximum file size")
		}
		total += len(body)
		out = append(out, engine.SourceFile{Name: name, Content: []byte(body)})
	}
	if total > cfg.MaxTotalFileBytes {
		return nil, apperr.ValidationError("files", "combined file size exceeds the maximum")
	}
	return out, nil
}

// truncateStdin bounds stdin to the same per-file size limit, truncating
// rather than rejecting since stdin is caller-supplied scratch input, not
// submitted source.
func truncateStdin(stdin string, cfg config.GradingConfig) string {
	if len(stdin) <= cfg.MaxFileBytes {
		return stdin
	}
	return stdin[:cfg.MaxFileBytes]
}
