package amqp

import "testing"

func TestNewRunCompletedMessage(t *testing.T) {
	msg := NewRunCompletedMessage("20240104_120000", "2024-01-04T12:00:00Z", 2, 1, 1, "out/report.xlsx")

	if msg.MessageID == "" {
		t.Error("message id should be generated")
	}
	if msg.RunID != "20240104_120000" {
		t.Errorf("run id = %q", msg.RunID)
	}
	if msg.CleanRows != 2 || msg.IssueRows != 1 || msg.DuplicatesRemoved != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", msg.CleanRows, msg.IssueRows, msg.DuplicatesRemoved)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}

	other := NewRunCompletedMessage("20240104_120000", "2024-01-04T12:00:00Z", 2, 1, 1, "")
	if other.MessageID == msg.MessageID {
		t.Error("message ids should be unique per message")
	}
}

func TestRunCompletedMessageJSON(t *testing.T) {
	msg := NewRunCompletedMessage("r1", "2024-01-04T12:00:00Z", 5, 0, 2, "")

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := RunCompletedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.RunID != msg.RunID || got.CleanRows != msg.CleanRows || got.MessageID != msg.MessageID {
		t.Errorf("round trip mismatch: %+v vs %+v", got, msg)
	}
}

func TestRunCompletedMessageFromJSONInvalid(t *testing.T) {
	if _, err := RunCompletedMessageFromJSON([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
