package avsync

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// PatternProbe is the literal filename fragment a match pattern must parse
// for it to be considered usable: applying the pattern to it has to yield
// at least two capture groups.
const PatternProbe = "S01E02"

// Pair is one work item of a run. Audio is nil when no reference audio
// matched; such pairs still enter the work list so the output set always
// has one entry per input video.
type Pair struct {
	Video   MediaFile
	Audio   *MediaFile
	Matched bool
}

// CheckPattern is the pre-flight validity check for user-supplied match
// patterns. Resolve itself never fails on a bad pattern; it degrades to
// zero matches. This check lets the host warn proactively.
func CheckPattern(pattern string) error {
	re, err := compilePattern(pattern)
	if err != nil {
		return NewErrorWithCause(ErrValidation, "invalid match pattern", err)
	}
	m := re.FindStringSubmatch(PatternProbe)
	if len(m) < 3 {
		return NewError(ErrValidation, fmt.Sprintf("pattern %q must capture two groups from %q", pattern, PatternProbe))
	}
	return nil
}

// compilePattern compiles the user pattern case-insensitively without
// shifting its capture group indices.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i:" + pattern + ")")
}

// pairingKey derives the normalized "SS-EE" key from a filename. The
// second return is false when the name does not match or the pattern
// yields fewer than two groups.
func pairingKey(name string, re *regexp.Regexp) (string, bool) {
	m := re.FindStringSubmatch(name)
	if len(m) < 3 {
		return "", false
	}
	return normalizeKeyToken(m[1]) + "-" + normalizeKeyToken(m[2]), true
}

// normalizeKeyToken zero-pads numeric tokens to two digits so "1" and
// "01" produce the same key. Non-numeric tokens are lowercased as-is.
func normalizeKeyToken(token string) string {
	if n, err := strconv.Atoi(token); err == nil {
		return fmt.Sprintf("%02d", n)
	}
	return strings.ToLower(token)
}

// Resolve builds the ordered work list for a run. It is pure and total:
// it never fails, it does not mutate its inputs, and unmatched videos
// surface as Matched=false rather than errors.
//
// Movie mode pairs every video with the first audio file; any further
// audio files are returned as ignored. Series mode maps pairing keys to
// the first audio file seen with that key (later duplicates are silently
// shadowed) and pairs each video through its own key.
func Resolve(videos, audios []MediaFile, mode Mode, matchPattern string) (pairs []Pair, ignored []MediaFile) {
	ordered := make([]MediaFile, len(videos))
	copy(ordered, videos)
	SortMediaFiles(ordered)

	pairs = make([]Pair, 0, len(ordered))

	switch mode {
	case ModeMovie:
		var audio *MediaFile
		if len(audios) > 0 {
			first := audios[0]
			audio = &first
			ignored = append(ignored, audios[1:]...)
		}
		for _, video := range ordered {
			pairs = append(pairs, Pair{
				Video:   video,
				Audio:   cloneMediaFile(audio),
				Matched: audio != nil,
			})
		}
	case ModeSeries:
		re, err := compilePattern(matchPattern)
		if err != nil {
			// Unusable pattern: every video degrades to no match.
			for _, video := range ordered {
				pairs = append(pairs, Pair{Video: video})
			}
			return pairs, ignored
		}

		byKey := make(map[string]MediaFile)
		for _, audio := range audios {
			key, ok := pairingKey(audio.Name, re)
			if !ok {
				continue
			}
			if _, exists := byKey[key]; !exists {
				byKey[key] = audio
			}
		}

		for _, video := range ordered {
			pair := Pair{Video: video}
			if key, ok := pairingKey(video.Name, re); ok {
				if audio, exists := byKey[key]; exists {
					pair.Audio = &audio
					pair.Matched = true
				}
			}
			pairs = append(pairs, pair)
		}
	}

	return pairs, ignored
}

// SortMediaFiles orders files by name with numeric collation, so
// "ep2" sorts before "ep10" and run order matches what users expect
// from their file manager.
func SortMediaFiles(files []MediaFile) {
	c := collate.New(language.Und, collate.Numeric, collate.IgnoreCase)
	c.Sort(mediaFilesByName(files))
}

type mediaFilesByName []MediaFile

func (s mediaFilesByName) Len() int           { return len(s) }
func (s mediaFilesByName) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s mediaFilesByName) Bytes(i int) []byte { return []byte(s[i].Name) }

func cloneMediaFile(f *MediaFile) *MediaFile {
	if f == nil {
		return nil
	}
	tmp := *f
	return &tmp
}
