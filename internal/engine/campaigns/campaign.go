package campaigns

type Campaign struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	Status      string `json:"status"` // active, paused, completed, draft
	CreatedAt   int64  `json:"created_at"`
}

// DisplayName derives a human-readable campaign name from the attribution
// fields when a campaign is created lazily from an inbound call.
func DisplayName(utmSource, utmCampaign string) string {
	if utmCampaign != "" {
		return utmCampaign
	}
	if utmSource != "" {
		return "Campaign from " + utmSource
	}
	return "Untitled Campaign"
}
