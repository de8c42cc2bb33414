package webhook

import (
	"fmt"
	"strings"

	"chatrelay/pkg/models"
)

// BuildFullMessage renders the user's message plus a plain-text digest of
// the attached documents. Automation flows that only read one text field
// still learn what was attached and how to find the base64 content.
func BuildFullMessage(message string, atts []models.Attachment) string {
	if len(atts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\n\nATTACHED DOCUMENTS:\n")
	for i, att := range atts {
		fmt.Fprintf(&b, "\n%d. DOCUMENT: %q\n", i+1, att.Name)
		fmt.Fprintf(&b, "   Type: %s\n", att.MimeType)
		cat := att.Category
		if cat == "" {
			cat = models.CategoryUnknown
		}
		fmt.Fprintf(&b, "   Category: %s\n", cat)
		fmt.Fprintf(&b, "   Size: %.1f KB\n", float64(att.SizeBytes)/1024)
		b.WriteString("   Status: original file attached as base64\n")
		fmt.Fprintf(&b, "   ID: %s\n", att.ID)
	}
	b.WriteString("\nPROCESSING NOTES:\n")
	b.WriteString("- The files are available as base64 in the 'attachments' field\n")
	b.WriteString("- Use the 'category' field to pick the extraction strategy\n")
	b.WriteString("- Process each file according to the user's request\n")
	return b.String()
}
