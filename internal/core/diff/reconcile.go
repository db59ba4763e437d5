package diff

// DetailedFile is one per-file change record from an authoritative stat
// source such as git numstat plus name-status output.
type DetailedFile struct {
	Path       string `json:"path"`
	Status     string `json:"status"` // added, modified, deleted, renamed
	Insertions int    `json:"insertions"`
	Deletions  int    `json:"deletions"`
	OldPath    string `json:"oldPath,omitempty"`
}

// MergeDetailedWithParsed combines authoritative per-file counts and status
// with structurally parsed hunks, matched by path. The detailed source wins
// on status and counts; a detailed file with no parsed counterpart keeps an
// empty hunk list since its hunk content is unavailable.
func MergeDetailedWithParsed(detailed []DetailedFile, parsed []File) []File {
	byPath := make(map[string]File, len(parsed))
	for _, f := range parsed {
		byPath[f.Path] = f
	}

	merged := make([]File, 0, len(detailed))
	for _, d := range detailed {
		file := File{
			Path:      d.Path,
			Status:    statusFromWord(d.Status),
			Additions: d.Insertions,
			Deletions: d.Deletions,
			Hunks:     []Hunk{},
		}

		if p, ok := byPath[d.Path]; ok {
			file.Hunks = p.Hunks
			file.IsBinary = p.IsBinary
		}

		merged = append(merged, file)
	}

	return merged
}

// statusFromWord maps a detailed-source status word to its letter form.
func statusFromWord(word string) FileStatus {
	switch word {
	case "added":
		return StatusAdded
	case "deleted":
		return StatusDeleted
	case "renamed":
		return StatusRenamed
	default:
		return StatusModified
	}
}
