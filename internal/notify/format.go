package notify

import (
	"fmt"

	"github.com/dupeforge/dupeforge/models"
)

// title and body turn a bus event into the short strings every channel
// renders; channels differ in layout, not in what they say.
func title(evt models.Event) string {
	switch evt.Type {
	case models.EventScanCompleted:
		return "Scan completed"
	case models.EventScanFailed:
		return "Scan failed"
	case models.EventJobFailed:
		return "Job failed"
	case models.EventJobRetrying:
		return "Job retrying"
	default:
		return string(evt.Type)
	}
}

func body(evt models.Event) string {
	id := evt.ScanID
	if id == "" {
		id = evt.JobID
	}
	msg := fmt.Sprintf("%s (%s)", id, evt.Type)
	if jobErr, ok := evt.Payload["error"].(*models.JobError); ok && jobErr != nil {
		msg += ": " + jobErr.Message
	}
	if stage, ok := evt.Payload["stage"].(string); ok {
		msg += " [" + stage + "]"
	}
	return msg
}
