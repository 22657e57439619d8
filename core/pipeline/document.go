package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeText = "text/plain"
)

// DefaultMaxFileSize is the upload limit used when none is configured.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

var allowedExtensions = map[string]string{
	".pdf": ContentTypePDF,
	".txt": ContentTypeText,
}

// ContentTypeFor returns the content type accepted for filename's extension,
// or an empty string if the extension is not supported.
func ContentTypeFor(filename string) string {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// normalizeContentType strips parameters such as "; charset=utf-8".
func normalizeContentType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// ValidateFile checks an upload's name, declared content type and size.
// Failures wrap model.ErrValidation.
func ValidateFile(filename string, contentType string, size int64, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	if strings.TrimSpace(filename) == "" {
		return model.NewValidationError("filename is required")
	}

	expected := ContentTypeFor(filename)
	if expected == "" {
		return model.NewValidationError("file extension %q is not supported, use .pdf or .txt", filepath.Ext(filename))
	}

	if normalized := normalizeContentType(contentType); normalized != "" && normalized != ContentTypePDF && normalized != ContentTypeText {
		return model.NewValidationError("content type %q is not supported", contentType)
	}

	if size <= 0 {
		return model.NewValidationError("file is empty")
	}
	if size > maxSize {
		return model.NewValidationError("file is too large (%d bytes, limit %d bytes)", size, maxSize)
	}

	return nil
}

// ExtractText returns the text content of an uploaded file. PDF pages are
// joined with a newline. Any extraction failure yields an empty string.
func ExtractText(filename string, data []byte) string {
	if ContentTypeFor(filename) == ContentTypePDF {
		text, err := extractPDFText(data)
		if err != nil {
			return ""
		}
		return text
	}

	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), "")
	}
	return string(data)
}

func extractPDFText(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	if len(data) == 0 {
		return "", fmt.Errorf("empty pdf")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", helper.NewError("open pdf", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", helper.NewError(fmt.Sprintf("read pdf page %d", i), err)
		}
		pages = append(pages, content)
	}

	return strings.Join(pages, "\n"), nil
}

// ReadDocumentFile reads a local file for upload and returns its
// name, the content type derived from its extension and its content.
func ReadDocumentFile(path string) (string, string, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", nil, helper.NewError("read file", err)
	}
	filename := filepath.Base(path)
	return filename, ContentTypeFor(filename), data, nil
}
