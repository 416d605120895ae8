// Package zipsum summarizes ZIP archives for inclusion in an LLM prompt.
//
// The archive is parsed directly from its central directory without an
// archive library, so every read can be bounded. Work is capped by Options
// independent of input size: the number of directory records walked, the
// declared uncompressed total, the number of files extracted, the bytes
// inflated per file and the characters of snippet text overall.
//
// Only a missing end-of-central-directory record fails the whole summary,
// and even then a Result is returned. Every other anomaly becomes a warning
// and processing continues with the next entry.
package zipsum

import (
	"fmt"
	"strings"
)

// Warning codes. A warning string is the code, optionally followed by
// ": " and a detail.
const (
	WarnParseFailed            = "zip_parse_failed"
	WarnTooManyEntries         = "zip_too_many_entries"
	WarnUncompressedLimit      = "uncompressed_limit"
	WarnDirectoryCorrupt       = "zip_directory_corrupt"
	WarnBadLocalHeader         = "zip_bad_local_header"
	WarnDataOutOfRange         = "zip_data_out_of_range"
	WarnUnsupportedCompression = "zip_unsupported_compression"
	WarnExtractError           = "zip_extract_error"
)

// Default limits.
const (
	DefaultMaxEntries           = 2000
	DefaultMaxFilesToExtract    = 30
	DefaultMaxChars             = 120000
	DefaultMaxPerFileBytes      = 40000
	DefaultMaxTotalUncompressed = 200 * 1024 * 1024

	// maxListing bounds the file-listing section of the rendered text.
	maxListing = 500
)

// Options bounds the work done by Summarize. Zero fields take defaults.
type Options struct {
	MaxEntries           int   `yaml:"max_entries" json:"max_entries"`
	MaxFilesToExtract    int   `yaml:"max_files_to_extract" json:"max_files_to_extract"`
	MaxChars             int   `yaml:"max_chars" json:"max_chars"`
	MaxPerFileBytes      int   `yaml:"max_per_file_bytes" json:"max_per_file_bytes"`
	MaxTotalUncompressed int64 `yaml:"max_total_uncompressed" json:"max_total_uncompressed"`
}

// WithDefaults returns o with zero or negative fields replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	if o.MaxFilesToExtract <= 0 {
		o.MaxFilesToExtract = DefaultMaxFilesToExtract
	}
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	if o.MaxPerFileBytes <= 0 {
		o.MaxPerFileBytes = DefaultMaxPerFileBytes
	}
	if o.MaxTotalUncompressed <= 0 {
		o.MaxTotalUncompressed = DefaultMaxTotalUncompressed
	}
	return o
}

// Result is the outcome of Summarize.
type Result struct {
	// Text is the rendered summary, or a short failure notice.
	Text     string   `json:"text"`
	Warnings []string `json:"warnings,omitempty"`

	// ParseFailed is set when no end-of-central-directory record was found.
	ParseFailed bool `json:"parse_failed,omitempty"`
	// DeclaredEntries is the entry count the archive claims.
	DeclaredEntries int       `json:"declared_entries"`
	Entries         []Entry   `json:"entries,omitempty"`
	Snippets        []Snippet `json:"snippets,omitempty"`
	// Truncated is set when the directory walk stopped before the last entry.
	Truncated bool `json:"truncated,omitempty"`
}

// parseFailedText is the Text of a Result with ParseFailed set.
const parseFailedText = "ZIP summary unavailable: could not locate the end of central directory record (the file may be corrupt or not a ZIP archive)."

// Summarize parses data as a ZIP archive and renders a bounded summary.
// It never panics and never returns an error.
func Summarize(data []byte, opts Options) Result {
	opts = opts.WithDefaults()
	v := view(data)

	end, ok := locateEOCD(v)
	if !ok {
		return Result{
			Text:        parseFailedText,
			Warnings:    []string{WarnParseFailed},
			ParseFailed: true,
		}
	}

	walk := walkDirectory(v, end, opts.MaxEntries, opts.MaxTotalUncompressed)
	res := Result{
		DeclaredEntries: end.entries,
		Entries:         walk.entries,
		Warnings:        walk.warnings,
		Truncated:       walk.truncated,
	}

	b := &budget{remainingChars: opts.MaxChars}
	for _, e := range walk.entries {
		if b.files >= opts.MaxFilesToExtract || b.remainingChars <= 0 {
			break
		}
		if e.IsDir() || e.Warning != "" || !isTextLike(e.Name) {
			continue
		}
		if int64(e.UncompSize) > 4*int64(opts.MaxPerFileBytes) {
			continue
		}

		s, err := extractSnippet(v, e, opts.MaxPerFileBytes, b)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}
		res.Snippets = append(res.Snippets, s)
	}

	res.Text = render(res)
	return res
}

// warn formats a warning string.
func warn(code, detail string) string {
	if detail == "" {
		return code
	}
	return code + ": " + detail
}

// WarningCode returns the code part of a warning string.
func WarningCode(w string) string {
	code, _, _ := strings.Cut(w, ":")
	return strings.TrimSpace(code)
}

// HasWarning reports whether any warning of res carries code.
func (r Result) HasWarning(code string) bool {
	for _, w := range r.Warnings {
		if WarningCode(w) == code {
			return true
		}
	}
	return false
}

func render(res Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "ZIP archive: %d entries declared, %d processed", res.DeclaredEntries, len(res.Entries))
	if res.Truncated {
		b.WriteString(" (directory truncated)")
	}
	b.WriteString("\n")

	if len(res.Warnings) > 0 {
		b.WriteString("Warnings:\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	b.WriteString("\nFiles:\n")
	for i, e := range res.Entries {
		if i == maxListing {
			fmt.Fprintf(&b, "+%d more\n", len(res.Entries)-maxListing)
			break
		}
		if e.IsDir() {
			fmt.Fprintf(&b, "- %s\n", e.Name)
			continue
		}
		fmt.Fprintf(&b, "- %s (%d bytes)\n", e.Name, e.UncompSize)
	}

	if len(res.Snippets) > 0 {
		b.WriteString("\nExtracted text:\n")
		for _, s := range res.Snippets {
			label := s.Name
			if s.Truncated {
				label += " (truncated)"
			}
			fence := fenceFor(s.Text)
			fmt.Fprintf(&b, "\n### %s\n%s%s\n%s", label, fence, fenceLanguage(s.Name), s.Text)
			if !strings.HasSuffix(s.Text, "\n") {
				b.WriteString("\n")
			}
			b.WriteString(fence + "\n")
		}
	}

	return b.String()
}

// fenceFor returns a backtick fence longer than any backtick run in text.
func fenceFor(text string) string {
	longest, run := 0, 0
	for i := 0; i < len(text); i++ {
		if text[i] == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}
