package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunCompletedMessage announces a finished pipeline run to downstream
// automation. It carries the counts a consumer needs without requiring
// database access.
type RunCompletedMessage struct {
	MessageID         string    `json:"message_id"`
	RunID             string    `json:"run_id"`
	LoadedAtUTC       string    `json:"loaded_at_utc"`
	CleanRows         int       `json:"clean_rows"`
	IssueRows         int       `json:"issue_rows"`
	DuplicatesRemoved int       `json:"duplicates_removed"`
	ReportPath        string    `json:"report_path,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewRunCompletedMessage builds a message with a fresh message id.
func NewRunCompletedMessage(runID, loadedAtUTC string, cleanRows, issueRows, duplicatesRemoved int, reportPath string) *RunCompletedMessage {
	return &RunCompletedMessage{
		MessageID:         uuid.New().String(),
		RunID:             runID,
		LoadedAtUTC:       loadedAtUTC,
		CleanRows:         cleanRows,
		IssueRows:         issueRows,
		DuplicatesRemoved: duplicatesRemoved,
		ReportPath:        reportPath,
		Timestamp:         time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *RunCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RunCompletedMessageFromJSON creates a message from JSON bytes.
func RunCompletedMessageFromJSON(data []byte) (*RunCompletedMessage, error) {
	var msg RunCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
