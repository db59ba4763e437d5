// Package diff parses unified diff text into structured per-file hunks
// and reconciles the result with separately reported per-file statistics.
package diff

import (
	"strconv"
	"strings"
)

// FileStatus is the single-letter git status of a changed file.
type FileStatus string

const (
	StatusAdded    FileStatus = "A"
	StatusModified FileStatus = "M"
	StatusDeleted  FileStatus = "D"
	StatusRenamed  FileStatus = "R"
	StatusCopied   FileStatus = "C"
	StatusUnmerged FileStatus = "U"
	StatusBroken   FileStatus = "B"
)

// LineType classifies a single line within a hunk.
type LineType string

const (
	LineContext LineType = "context"
	LineAdd     LineType = "add"
	LineRemove  LineType = "remove"
)

// HunkLine is one line of a hunk with its +/-/context prefix stripped.
type HunkLine struct {
	Type    LineType `json:"type"`
	Content string   `json:"content"`
}

// Hunk is a contiguous block of changed lines from a unified diff.
type Hunk struct {
	OldStart int        `json:"oldStart"`
	OldLines int        `json:"oldLines"`
	NewStart int        `json:"newStart"`
	NewLines int        `json:"newLines"`
	Lines    []HunkLine `json:"lines"`
}

// File is one changed file with its hunks and line counts.
//
// Additions and Deletions are always derived from the hunk lines when the
// file comes out of ParseDiffContent, so they can never disagree with the
// hunk content. MergeDetailedWithParsed replaces them with authoritative
// counts from a stat source.
type File struct {
	Path      string     `json:"path"`
	Status    FileStatus `json:"status"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
	IsBinary  bool       `json:"isBinary,omitempty"`
	Hunks     []Hunk     `json:"hunks"`
}

// ParseDiffContent parses git-style unified diff text into per-file hunks.
// Empty or whitespace-only input yields an empty slice.
func ParseDiffContent(text string) []File {
	files := []File{}
	if strings.TrimSpace(text) == "" {
		return files
	}

	for _, section := range strings.Split(text, "diff --git ") {
		if strings.TrimSpace(section) == "" {
			continue
		}
		files = append(files, parseFileSection(section))
	}

	return files
}

// parseFileSection parses one file's portion of the diff. The section
// starts with the "a/<old> b/<new>" remainder of the diff --git line.
func parseFileSection(section string) File {
	lines := strings.Split(section, "\n")

	file := File{
		Path:   headerPath(lines[0]),
		Status: StatusModified,
		Hunks:  []Hunk{},
	}

	// Metadata lines sit between the header and the first "--- " or
	// "@@" line and determine the file status.
	i := 1
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "@@") {
			break
		}
		switch {
		case strings.HasPrefix(line, "new file mode"):
			file.Status = StatusAdded
		case strings.HasPrefix(line, "deleted file mode"):
			file.Status = StatusDeleted
		case strings.HasPrefix(line, "rename from"), strings.HasPrefix(line, "similarity index"):
			file.Status = StatusRenamed
		case strings.HasPrefix(line, "Binary files"):
			file.IsBinary = true
		}
	}

	var hunk *Hunk
	for ; i < len(lines); i++ {
		line := lines[i]

		if strings.HasPrefix(line, "@@") {
			header, ok := parseHunkHeader(line)
			if !ok {
				continue
			}
			file.Hunks = append(file.Hunks, Hunk{
				OldStart: header.oldStart,
				OldLines: header.oldLines,
				NewStart: header.newStart,
				NewLines: header.newLines,
				Lines:    []HunkLine{},
			})
			hunk = &file.Hunks[len(file.Hunks)-1]
			continue
		}

		if hunk == nil || line == "" {
			continue
		}

		switch line[0] {
		case '+':
			hunk.Lines = append(hunk.Lines, HunkLine{Type: LineAdd, Content: line[1:]})
			file.Additions++
		case '-':
			hunk.Lines = append(hunk.Lines, HunkLine{Type: LineRemove, Content: line[1:]})
			file.Deletions++
		case ' ':
			hunk.Lines = append(hunk.Lines, HunkLine{Type: LineContext, Content: line[1:]})
		case '\\':
			// "\ No newline at end of file" markers carry no content.
		}
	}

	return file
}

// headerPath extracts the new-side path from an "a/<old> b/<new>" header.
func headerPath(header string) string {
	header = strings.TrimSpace(header)
	if idx := strings.LastIndex(header, " b/"); idx != -1 {
		return header[idx+3:]
	}

	fields := strings.Fields(header)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimPrefix(fields[len(fields)-1], "b/")
}

type hunkHeader struct {
	oldStart int
	oldLines int
	newStart int
	newLines int
}

// parseHunkHeader parses a hunk header like "@@ -1,7 +1,8 @@ func name".
func parseHunkHeader(line string) (hunkHeader, bool) {
	closeIdx := strings.Index(line[2:], "@@")
	if closeIdx == -1 {
		return hunkHeader{}, false
	}

	parts := strings.Fields(strings.TrimSpace(line[2 : closeIdx+2]))
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "-") || !strings.HasPrefix(parts[1], "+") {
		return hunkHeader{}, false
	}

	oldStart, oldLines, ok := parseHunkRange(parts[0][1:])
	if !ok {
		return hunkHeader{}, false
	}
	newStart, newLines, ok := parseHunkRange(parts[1][1:])
	if !ok {
		return hunkHeader{}, false
	}

	return hunkHeader{
		oldStart: oldStart,
		oldLines: oldLines,
		newStart: newStart,
		newLines: newLines,
	}, true
}

// parseHunkRange parses "start,count" where a bare "start" means a count of 1.
func parseHunkRange(s string) (start, count int, ok bool) {
	startStr, countStr, hasCount := strings.Cut(s, ",")

	start, err := strconv.Atoi(startStr)
	if err != nil {
		return 0, 0, false
	}

	count = 1
	if hasCount {
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return 0, 0, false
		}
	}

	return start, count, true
}
