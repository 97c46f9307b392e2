package validation

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ayael01/tazrim/src/logger"
)

// allowedClientContentTypes is what clients may declare for a statement
// upload. Spreadsheet container formats are rejected outright; only the
// CSV export belongs on this endpoint.
var allowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true, // older Excel exports CSV under this type
	"text/plain":               true,
	"application/octet-stream": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": false,
}

// ValidateClientContentType checks the Content-Type the client declared for
// the uploaded statement file.
func ValidateClientContentType(contentType string) error {
	normalized := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if allowed, exists := allowedClientContentTypes[normalized]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type for statement upload", "contentType", contentType)
		return fmt.Errorf("file type %q is not allowed for a statement upload", contentType)
	}
	return nil
}

// ValidateFileContentByMagicBytes sniffs the first 512 bytes to confirm the
// upload is text-shaped rather than a binary smuggled under a CSV name. The
// read pointer is reset so the parser still sees the whole file.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", err)
	}

	detected := http.DetectContentType(buffer[:n])
	detected = strings.ToLower(strings.Split(detected, ";")[0])

	allowedDetectedTypes := map[string]bool{
		"text/plain":               true,
		"text/csv":                 true,
		"application/csv":          true,
		"application/octet-stream": true, // the CSV reader rejects non-CSV content anyway
	}
	if !allowedDetectedTypes[detected] {
		logger.L.Warn("Upload content does not look like a CSV", "detectedContentType", detected)
		return detected, fmt.Errorf("detected file content type %q is not consistent with a CSV statement", detected)
	}
	return detected, nil
}
