package stages

import (
	"strings"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

// EnhancementOutput is the stage-0 checkpoint payload: the session carried
// forward untouched plus the run configuration it was seeded with, and any
// attachment-derived hints folded into free text for stage 1 to tag.
type EnhancementOutput struct {
	Session         domain.Session `json:"session"`
	AttachmentHints []string       `json:"attachmentHints"`
}

// Enhance is stage 0: it resolves attachments into plain-text hints
// (image/note/link attachments contribute their text or URL) but otherwise
// passes the Session through unchanged. It never mutates the input Session.
func Enhance(session domain.Session) EnhancementOutput {
	hints := make([]string, 0, len(session.Attachments))
	for _, a := range session.Attachments {
		switch a.Kind {
		case "note":
			if strings.TrimSpace(a.Text) != "" {
				hints = append(hints, a.Text)
			}
		case "link":
			if a.URL != "" {
				hints = append(hints, a.URL)
			}
		case "image":
			if strings.TrimSpace(a.Text) != "" {
				hints = append(hints, a.Text)
			}
		}
	}
	return EnhancementOutput{Session: session, AttachmentHints: hints}
}
