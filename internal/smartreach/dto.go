package smartreach

import (
	"encoding/json"
	"errors"
	"strings"
)

// CampaignSummary is a campaign as the upstream platform reports it.
type CampaignSummary struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

// EmailAccount is a sending mailbox connected upstream.
type EmailAccount struct {
	ID             int64  `json:"id"`
	FromName       string `json:"from_name"`
	FromEmail      string `json:"from_email"`
	WarmupEnabled  bool   `json:"warmup_enabled"`
	MaxEmailPerDay int    `json:"max_email_per_day"`
}

// EmailAccountUpdate carries the mutable mailbox settings.
type EmailAccountUpdate struct {
	MaxEmailPerDay    int  `json:"max_email_per_day,omitempty"`
	WarmupEnabled     bool `json:"warmup_enabled"`
	TotalWarmupPerDay int  `json:"total_warmup_per_day,omitempty"`
	DailyRampup       int  `json:"daily_rampup,omitempty"`
}

// SequenceStepPayload is one drip step in the upstream campaign sequence.
type SequenceStepPayload struct {
	SeqNumber    int    `json:"seq_number"`
	SeqDelayDays int    `json:"seq_delay_details_delay_in_days"`
	Subject      string `json:"subject"`
	EmailBody    string `json:"email_body"`
}

// Schedule is the sending window for a campaign.
type Schedule struct {
	Timezone  string   `json:"timezone"`
	Days      []int    `json:"days_of_the_week"`
	StartHour string   `json:"start_hour"`
	EndHour   string   `json:"end_hour"`
	MinGap    int      `json:"min_time_btw_emails"`
	MaxLeads  int      `json:"max_new_leads_per_day"`
	Holidays  []string `json:"holidays,omitempty"`
}

// Validate checks the schedule has the required window fields.
func (s *Schedule) Validate() error {
	if strings.TrimSpace(s.Timezone) == "" {
		return errors.New("smartreach: schedule timezone required")
	}
	if s.StartHour == "" || s.EndHour == "" {
		return errors.New("smartreach: schedule start and end hours required")
	}
	if len(s.Days) == 0 {
		return errors.New("smartreach: schedule needs at least one sending day")
	}
	return nil
}

// UploadSettings controls dedupe behavior for lead uploads.
type UploadSettings struct {
	IgnoreGlobalBlockList       bool `json:"ignore_global_block_list"`
	IgnoreUnsubscribeList       bool `json:"ignore_unsubscribe_list"`
	IgnoreDuplicateLeads        bool `json:"ignore_duplicate_leads_in_other_campaign"`
	IgnoreCommunityBounceList   bool `json:"ignore_community_bounce_list"`
	IgnoreClientUnsubscribeList bool `json:"ignore_client_unsubscribe_list"`
}

// CampaignStats is the upstream delivery report for one campaign.
type CampaignStats struct {
	CampaignID  int64 `json:"campaign_id"`
	SentCount   int   `json:"sent_count"`
	OpenCount   int   `json:"open_count"`
	ClickCount  int   `json:"click_count"`
	ReplyCount  int   `json:"reply_count"`
	BounceCount int   `json:"bounce_count"`
	TotalLeads  int   `json:"total_count"`
}

// Message is one email in a lead's conversation thread.
type Message struct {
	StatsID   string `json:"stats_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Type      string `json:"type"` // SENT or REPLY
	Subject   string `json:"subject,omitempty"`
	EmailBody string `json:"email_body"`
	Time      string `json:"time,omitempty"`
}

// FromUs reports whether the message was sent by our side of the thread.
func (m *Message) FromUs() bool {
	return strings.EqualFold(m.Type, "SENT")
}

// ReplyRequest posts a reply into an existing lead thread.
type ReplyRequest struct {
	EmailStatsID   string `json:"email_stats_id"`
	EmailBody      string `json:"email_body"`
	ReplyMessageID string `json:"reply_message_id,omitempty"`
	ReplyEmailTime string `json:"reply_email_time,omitempty"`
	ReplyEmailBody string `json:"reply_email_body,omitempty"`
	AddSignature   bool   `json:"add_signature"`
	ToFirstName    string `json:"to_first_name,omitempty"`
	ToLastName     string `json:"to_last_name,omitempty"`
	ToEmail        string `json:"to_email,omitempty"`
}

type okResponse struct {
	OK      bool            `json:"ok"`
	Message json.RawMessage `json:"message,omitempty"`
}
