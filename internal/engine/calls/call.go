package calls

// Status is the canonical disposition of a call, independent of how the
// originating platform spells it.
type Status string

const (
	StatusCompleted  Status = "Completed"
	StatusMissed     Status = "Missed"
	StatusVoicemail  Status = "Voicemail"
	StatusInProgress Status = "InProgress"
)

// Call is the canonical call record. One row per inbound webhook event;
// never mutated after insert.
type Call struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	CampaignID  string `json:"campaign_id"`
	// SourceCallID is the identifier the originating platform sent; the
	// row itself is keyed by the generated ID above.
	SourceCallID    string `json:"source_call_id"`
	Status          Status `json:"status"`
	DurationSeconds int    `json:"duration_seconds"`
	CallerNumber    string `json:"caller_number"`
	ReceiverNumber  string `json:"receiver_number"`
	Platform        string `json:"platform"`
	UTMSource       string `json:"utm_source"`
	UTMMedium       string `json:"utm_medium"`
	UTMCampaign     string `json:"utm_campaign"`
	RecordingURL    string `json:"recording_url,omitempty"`
	Transcript      string `json:"transcript,omitempty"`
	QAScore         int    `json:"qa_score"`
	// QAScored is false when the score was synthesized as a placeholder
	// rather than supplied by the platform or a scoring integration.
	QAScored  bool   `json:"qa_scored"`
	CreatedAt string `json:"created_at"` // RFC3339
}
