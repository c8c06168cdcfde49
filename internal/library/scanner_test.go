package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/audiosync/internal/avsync"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestListVideos_FiltersAndOrders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Show.S01E10.mkv")
	writeFile(t, dir, "Show.S01E2.mkv")
	writeFile(t, dir, "Show.S01E1.MP4")
	writeFile(t, dir, "notes.txt")
	writeFile(t, dir, "cover.jpg")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Season 2"), 0o755))

	videos, err := ListVideos(dir)
	require.NoError(t, err)

	require.Len(t, videos, 3)
	assert.Equal(t, "Show.S01E1.MP4", videos[0].Name)
	assert.Equal(t, "Show.S01E2.mkv", videos[1].Name)
	assert.Equal(t, "Show.S01E10.mkv", videos[2].Name)
	for i, video := range videos {
		assert.Equal(t, avsync.KindVideo, video.Kind)
		assert.NotEmpty(t, video.ID)
		require.NotNil(t, video.SizeBytes)
		assert.Equal(t, int64(1), *video.SizeBytes)
		assert.Equal(t, filepath.Join(dir, video.Name), videos[i].Path)
	}
}

func TestListAudios_TakesEveryFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Show.S01E01.flac")
	writeFile(t, dir, "Show.S01E02.eac3")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	audios, err := ListAudios(dir)
	require.NoError(t, err)

	require.Len(t, audios, 2)
	for _, item := range audios {
		assert.Equal(t, avsync.KindAudio, item.Kind)
	}
}

func TestListVideos_MissingFolder(t *testing.T) {
	_, err := ListVideos(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestFromPaths(t *testing.T) {
	dir := t.TempDir()
	existing := writeFile(t, dir, "a.mkv")

	files := FromPaths([]string{existing, filepath.Join(dir, "missing.mkv")}, avsync.KindVideo)

	require.Len(t, files, 2)
	assert.Equal(t, "a.mkv", files[0].Name)
	require.NotNil(t, files[0].SizeBytes)
	assert.Nil(t, files[1].SizeBytes)
	assert.Equal(t, avsync.KindVideo, files[1].Kind)
}
