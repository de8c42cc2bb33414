// Package files validates uploaded documents and packages them as
// webhook-ready attachments. Content is never parsed or transformed here;
// files travel to the automation flow as opaque base64.
package files

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/h2non/filetype"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/utils"
)

// DefaultMaxSize caps uploads when no limit is configured.
const DefaultMaxSize = 50 * 1024 * 1024

var (
	ErrNoFile          = errors.New("no file was sent")
	ErrUnsupportedType = errors.New("unsupported file type; send PDF, Word, Excel, PowerPoint, TXT, CSV, RTF or images")
	ErrTooLarge        = errors.New("file exceeds the maximum allowed size")
)

var allowedTypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"application/vnd.ms-excel": true,
	"text/plain":               true,
	"text/csv":                 true,
	"application/rtf":          true,
	"text/rtf":                 true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.ms-powerpoint": true,
	"image/jpeg":                    true,
	"image/png":                     true,
	"image/gif":                     true,
	"image/bmp":                     true,
	"image/tiff":                    true,
	"application/octet-stream":      true,
}

var allowedExtensions = []string{
	".pdf", ".docx", ".doc", ".xlsx", ".xls", ".txt", ".csv", ".rtf",
	".pptx", ".ppt", ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff",
}

// Validator checks and packages uploads. MaxSize of zero falls back to
// DefaultMaxSize.
type Validator struct {
	MaxSize int64
}

func (v Validator) maxSize() int64 {
	if v.MaxSize > 0 {
		return v.MaxSize
	}
	return DefaultMaxSize
}

// Process validates an upload and returns it packaged as an attachment with
// base64 content and a detected category. Validation is deliberately loose:
// either an allowed MIME type or an allowed extension admits the file.
func (v Validator) Process(name, declaredType string, data []byte) (models.Attachment, error) {
	if name == "" && len(data) == 0 {
		return models.Attachment{}, ErrNoFile
	}
	mimeType := resolveType(name, declaredType, data)
	if !allowedTypes[mimeType] && !hasAllowedExtension(name) {
		logger.Warn("upload_rejected_type", "name", name, "type", mimeType)
		return models.Attachment{}, ErrUnsupportedType
	}
	if int64(len(data)) > v.maxSize() {
		logger.Warn("upload_rejected_size", "name", name, "size", len(data), "max", v.maxSize())
		return models.Attachment{}, ErrTooLarge
	}
	att := models.Attachment{
		ID:        utils.GenID(),
		Name:      name,
		MimeType:  mimeType,
		SizeBytes: int64(len(data)),
		Content:   base64.StdEncoding.EncodeToString(data),
		Category:  DetectCategory(mimeType, name),
	}
	logger.Info("upload_accepted", "id", att.ID, "name", att.Name, "type", att.MimeType, "category", string(att.Category), "size", att.SizeBytes)
	return att, nil
}

// resolveType prefers the declared MIME type; when the client sent nothing
// useful it sniffs the leading bytes instead.
func resolveType(name, declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}

func hasAllowedExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// DetectCategory maps a MIME type and file name onto the processing
// category advertised to the automation flow.
func DetectCategory(mimeType, fileName string) models.Category {
	lower := strings.ToLower(fileName)
	ends := func(exts ...string) bool {
		for _, e := range exts {
			if strings.HasSuffix(lower, e) {
				return true
			}
		}
		return false
	}
	switch {
	case mimeType == "application/pdf" || ends(".pdf"):
		return models.CategoryPDF
	case mimeType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document" ||
		mimeType == "application/msword" || ends(".docx", ".doc"):
		return models.CategoryWord
	case mimeType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" ||
		mimeType == "application/vnd.ms-excel" || ends(".xlsx", ".xls"):
		return models.CategoryExcel
	case mimeType == "application/vnd.openxmlformats-officedocument.presentationml.presentation" ||
		mimeType == "application/vnd.ms-powerpoint" || ends(".pptx", ".ppt"):
		return models.CategoryPowerPoint
	case mimeType == "text/plain" || mimeType == "text/csv" || ends(".txt", ".csv"):
		return models.CategoryText
	case mimeType == "application/rtf" || mimeType == "text/rtf" || ends(".rtf"):
		return models.CategoryRTF
	case strings.HasPrefix(mimeType, "image/") ||
		ends(".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff"):
		return models.CategoryImage
	}
	return models.CategoryUnknown
}
