package pets

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

const (
	contentPrefix = "content/"
	// RegistryKey and SuppressionKey are the state documents in the bucket.
	RegistryKey    = "pets.json"
	SuppressionKey = "blacklist.json"
)

// probeExtensions is the ordered lookup list; uppercase variants follow.
var probeExtensions = []string{"jpg", "png", "jpeg", "gif", "mp4", "mov"}

var allowedUploadExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".mp4":  {},
	".mov":  {},
}

var allowedVideoTypes = map[string]struct{}{
	"video/mp4":       {},
	"video/quicktime": {},
}

// Normalize lowercases and trims a keyword or suppressed term.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// KeyPrefix is the listing prefix for every object of a keyword.
func KeyPrefix(keyword string) string {
	return contentPrefix + keyword + "-"
}

// ObjectKey builds content/{keyword}-{index:04d}{ext}. ext includes the dot.
func ObjectKey(keyword string, index int, ext string) string {
	return fmt.Sprintf("%s%s-%04d%s", contentPrefix, keyword, index, ext)
}

// ParseIndex extracts the number between the last "-" and the extension.
func ParseIndex(key string) (int, bool) {
	dash := strings.LastIndex(key, "-")
	if dash < 0 {
		return 0, false
	}
	token := key[dash+1:]
	if dot := strings.Index(token, "."); dot >= 0 {
		token = token[:dot]
	}
	index, err := strconv.Atoi(token)
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// Candidates lists the URLs probed for one rotation index, in order.
func Candidates(endpoint, keyword string, index int) []string {
	exts := make([]string, 0, len(probeExtensions)*2)
	exts = append(exts, probeExtensions...)
	for _, ext := range probeExtensions {
		exts = append(exts, strings.ToUpper(ext))
	}

	urls := make([]string, 0, len(exts))
	for _, ext := range exts {
		urls = append(urls, fmt.Sprintf("%s/%s-%04d.%s", endpoint, keyword, index, ext))
	}
	return urls
}

// uploadExtension returns the lowercased extension of a filename, with dot.
func uploadExtension(filename string) string {
	return strings.ToLower(path.Ext(filename))
}

func acceptableMedia(contentType, ext string) bool {
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	if _, ok := allowedVideoTypes[contentType]; ok {
		return true
	}
	_, ok := allowedUploadExtensions[ext]
	return ok
}
