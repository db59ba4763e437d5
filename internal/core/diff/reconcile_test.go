package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeDetailedWithParsed(t *testing.T) {
	t.Run("detailed status and counts win", func(t *testing.T) {
		parsed := []File{
			{
				Path:      "a.ts",
				Status:    StatusModified,
				Additions: 3,
				Deletions: 1,
				Hunks:     []Hunk{{OldStart: 1, OldLines: 2, NewStart: 1, NewLines: 4, Lines: []HunkLine{}}},
			},
		}
		detailed := []DetailedFile{
			{Path: "a.ts", Status: "modified", Insertions: 10, Deletions: 5},
		}

		merged := MergeDetailedWithParsed(detailed, parsed)
		require.Len(t, merged, 1)
		assert.Equal(t, "a.ts", merged[0].Path)
		assert.Equal(t, StatusModified, merged[0].Status)
		assert.Equal(t, 10, merged[0].Additions)
		assert.Equal(t, 5, merged[0].Deletions)
		// Hunk structure still comes from the parsed side.
		require.Len(t, merged[0].Hunks, 1)
		assert.Equal(t, 4, merged[0].Hunks[0].NewLines)
	})

	t.Run("detailed file missing from parsed keeps empty hunks", func(t *testing.T) {
		detailed := []DetailedFile{
			{Path: "assets/logo.png", Status: "added", Insertions: 0, Deletions: 0},
		}

		merged := MergeDetailedWithParsed(detailed, nil)
		require.Len(t, merged, 1)
		assert.Equal(t, StatusAdded, merged[0].Status)
		require.NotNil(t, merged[0].Hunks)
		assert.Empty(t, merged[0].Hunks)
	})

	t.Run("parsed file missing from detailed is dropped", func(t *testing.T) {
		parsed := []File{
			{Path: "kept.go", Status: StatusModified, Hunks: []Hunk{}},
			{Path: "dropped.go", Status: StatusModified, Hunks: []Hunk{}},
		}
		detailed := []DetailedFile{
			{Path: "kept.go", Status: "modified", Insertions: 1},
		}

		merged := MergeDetailedWithParsed(detailed, parsed)
		require.Len(t, merged, 1)
		assert.Equal(t, "kept.go", merged[0].Path)
	})

	t.Run("binary flag carries over from parsed", func(t *testing.T) {
		parsed := []File{{Path: "logo.png", Status: StatusModified, IsBinary: true, Hunks: []Hunk{}}}
		detailed := []DetailedFile{{Path: "logo.png", Status: "modified"}}

		merged := MergeDetailedWithParsed(detailed, parsed)
		require.Len(t, merged, 1)
		assert.True(t, merged[0].IsBinary)
	})
}

func TestStatusFromWord(t *testing.T) {
	assert.Equal(t, StatusAdded, statusFromWord("added"))
	assert.Equal(t, StatusDeleted, statusFromWord("deleted"))
	assert.Equal(t, StatusRenamed, statusFromWord("renamed"))
	assert.Equal(t, StatusModified, statusFromWord("modified"))
	assert.Equal(t, StatusModified, statusFromWord("anything else"))
}
