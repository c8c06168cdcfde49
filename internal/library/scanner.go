// Package library builds working sets of media files from folders.
// Listings are non-recursive: the tool operates on flat release folders,
// one file per movie or episode.
package library

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/driftwatch/audiosync/internal/avsync"
	"github.com/driftwatch/audiosync/pkg/file"
)

// Video containers the analyzer accepts.
var videoExts = []string{".mp4", ".mkv", ".webm", ".avi", ".mov"}

// ListVideos returns the video files directly inside folder, filtered by
// extension, in stable numeric-collated name order.
func ListVideos(folder string) ([]avsync.MediaFile, error) {
	return listFolder(folder, avsync.KindVideo, true)
}

// ListAudios returns every regular file directly inside folder as an
// audio entry. Reference audio comes in too many container formats to
// filter by extension; unreadable files surface later as per-item
// analyzer errors.
func ListAudios(folder string) ([]avsync.MediaFile, error) {
	return listFolder(folder, avsync.KindAudio, false)
}

// FromPaths converts explicit file paths into a working set, keeping the
// caller's order out of the stat results but normalizing names and IDs
// the same way folder listings do.
func FromPaths(paths []string, kind avsync.Kind) []avsync.MediaFile {
	ret := make([]avsync.MediaFile, 0, len(paths))
	for i, path := range paths {
		item := avsync.MediaFile{
			ID:   fmt.Sprintf("%s-%d", kind, i+1),
			Name: filepath.Base(path),
			Path: filepath.Clean(path),
			Kind: kind,
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			size := info.Size()
			item.SizeBytes = &size
		}
		ret = append(ret, item)
	}
	return ret
}

func listFolder(folder string, kind avsync.Kind, filterVideoExts bool) ([]avsync.MediaFile, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", folder, err)
	}

	ret := make([]avsync.MediaFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filterVideoExts && !file.HasExt(name, videoExts) {
			continue
		}
		item := avsync.MediaFile{
			Name: name,
			Path: filepath.Join(folder, name),
			Kind: kind,
		}
		if info, err := entry.Info(); err == nil {
			size := info.Size()
			item.SizeBytes = &size
		}
		ret = append(ret, item)
	}

	avsync.SortMediaFiles(ret)
	for i := range ret {
		ret[i].ID = fmt.Sprintf("%s-%d", kind, i+1)
	}
	return ret, nil
}
