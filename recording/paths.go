package recording

import (
	"fmt"
	"mime"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

var extensions = map[string]string{
	"audio/webm":   "webm",
	"audio/wav":    "wav",
	"audio/x-wav":  "wav",
	"audio/wave":   "wav",
	"audio/ogg":    "ogg",
	"audio/mpeg":   "mp3",
	"audio/mp4":    "m4a",
	"audio/flac":   "flac",
	"audio/l16":    "raw",
	"audio/pcm":    "raw",
	"video/webm":   "webm",
	"audio/x-flac": "flac",
}

// Extension maps a mime type to an object file extension. Parameters such as
// "codecs=opus" are ignored; unknown types fall back to their subtype, then "bin".
func Extension(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}
	if ext, ok := extensions[mt]; ok {
		return ext
	}
	if _, sub, ok := strings.Cut(mt, "/"); ok && sub != "" && isToken(sub) {
		return sub
	}
	return "bin"
}

func isToken(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '.' || r == '+') {
			return false
		}
	}
	return true
}

// ChunkPath is the object path of one chunk: {sessionId}/{chunkNumber}.{ext}.
func ChunkPath(sessionID string, chunkNumber int, mimeType string) string {
	return fmt.Sprintf("%s/%d.%s", sessionID, chunkNumber, Extension(mimeType))
}

// WholeFilePath is the object path of a whole-file upload:
// {ownerId}/sessions/{unixMillis}-full-session.{ext}.
func WholeFilePath(ownerID string, at time.Time, mimeType string) string {
	return fmt.Sprintf("%s/sessions/%d-full-session.%s", ownerID, at.UnixMilli(), Extension(mimeType))
}

// TranscriptPath is the object path of a session transcript.
func TranscriptPath(sessionID string) string {
	return sessionID + "/transcript.txt"
}

// BelongsTo reports whether locator names an object directly under the session.
func BelongsTo(locator, sessionID string) bool {
	rest, ok := strings.CutPrefix(locator, sessionID+"/")
	return ok && rest != "" && !strings.Contains(rest, "/") && path.Clean(locator) == locator
}

// ChunkNumber parses the chunk number from a locator built by ChunkPath.
func ChunkNumber(locator string) (int, bool) {
	base := path.Base(locator)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	n, err := strconv.Atoi(base)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Order returns locators in transcription order. The input is never modified.
// Under OrderChunkNumber locators without a parsable number keep their
// relative arrival order after the numbered ones.
func Order(locators []string, order ChunkOrder) []string {
	out := append([]string(nil), locators...)
	if order != OrderChunkNumber {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		ni, oki := ChunkNumber(out[i])
		nj, okj := ChunkNumber(out[j])
		switch {
		case oki && okj:
			return ni < nj
		case oki != okj:
			return oki
		default:
			return false
		}
	})
	return out
}
