package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ignatzorin/username-extractor/internal/media"
	"github.com/ignatzorin/username-extractor/internal/models"
)

func TestWorkspaceXLSX(t *testing.T) {
	ai := "@alice"
	entries := []models.Entry{
		{
			ID:          uuid.New(),
			FileName:    "alice.png",
			DisplayName: "alice",
			MIMEType:    "image/png",
			Kind:        media.KindImage,
			FileSize:    2048,
			AIName:      &ai,
			AddedAt:     time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			ID:          uuid.New(),
			FileName:    "notes.txt",
			DisplayName: "notes",
			MIMEType:    "text/plain",
			Kind:        media.KindUnknown,
			FileSize:    5,
			AddedAt:     time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		},
	}

	data, err := WorkspaceXLSX(entries)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, headers, rows[0])
	assert.Equal(t, []string{"alice.png", "alice", "@alice", "image", "image/png", "2048", "2026-05-01T09:30:00Z"}, rows[1])
	assert.Equal(t, "notes", rows[2][1])
	assert.Equal(t, "", rows[2][2])
}

func TestWorkspaceXLSX_Empty(t *testing.T) {
	data, err := WorkspaceXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
