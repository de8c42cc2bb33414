package models

// Category classifies an uploaded file so the automation flow on the other
// side of the webhook knows how to process it.
type Category string

const (
	CategoryPDF        Category = "pdf"
	CategoryWord       Category = "word"
	CategoryExcel      Category = "excel"
	CategoryPowerPoint Category = "powerpoint"
	CategoryText       Category = "text"
	CategoryRTF        Category = "rtf"
	CategoryImage      Category = "image"
	CategoryUnknown    Category = "unknown"
)

// Attachment is a user-uploaded file carried alongside a message. Content
// holds the original bytes base64-encoded; the store and the relay treat it
// as opaque and pass it to the webhook unmodified.
type Attachment struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	MimeType  string   `json:"type"`
	SizeBytes int64    `json:"size"`
	Content   string   `json:"content,omitempty"`
	Category  Category `json:"category,omitempty"`
}
