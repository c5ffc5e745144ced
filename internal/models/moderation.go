package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActionType string

const (
	ActionContentApproved    ActionType = "content_approved"
	ActionContentRemoved     ActionType = "content_removed"
	ActionUserWarned         ActionType = "user_warned"
	ActionRestrictionApplied ActionType = "restriction_applied"
	ActionUserSuspended      ActionType = "user_suspended"
	ActionUserBanned         ActionType = "user_banned"
)

var ActionTypes = []ActionType{
	ActionContentApproved,
	ActionContentRemoved,
	ActionUserWarned,
	ActionRestrictionApplied,
	ActionUserSuspended,
	ActionUserBanned,
}

func (t ActionType) Valid() bool {
	for _, v := range ActionTypes {
		if v == t {
			return true
		}
	}
	return false
}

type ReasonCode string

const (
	ReasonSpam                 ReasonCode = "spam"
	ReasonHarassment           ReasonCode = "harassment"
	ReasonHateSpeech           ReasonCode = "hate_speech"
	ReasonInappropriateContent ReasonCode = "inappropriate_content"
	ReasonCopyright            ReasonCode = "copyright"
	ReasonImpersonation        ReasonCode = "impersonation"
	ReasonSelfHarm             ReasonCode = "self_harm"
	ReasonMisinformation       ReasonCode = "misinformation"
	ReasonOther                ReasonCode = "other"
)

var ReasonCodes = []ReasonCode{
	ReasonSpam,
	ReasonHarassment,
	ReasonHateSpeech,
	ReasonInappropriateContent,
	ReasonCopyright,
	ReasonImpersonation,
	ReasonSelfHarm,
	ReasonMisinformation,
	ReasonOther,
}

func (r ReasonCode) Valid() bool {
	for _, v := range ReasonCodes {
		if v == r {
			return true
		}
	}
	return false
}

// Metadata keys
const (
	MetaReversalReason   = "reversal_reason"
	MetaReporterAccuracy = "reporter_accuracy"
)

// ModerationAction is an audit record of a moderator decision. Rows are
// never deleted; reversal only fills in the revoked_* fields.
type ModerationAction struct {
	ID           string     `gorm:"size:64;primaryKey" json:"id"`
	ModeratorID  string     `gorm:"size:64;not null;index" json:"moderator_id"`
	TargetUserID string     `gorm:"size:64;not null;index" json:"target_user_id"`
	ActionType   ActionType `gorm:"size:32;not null;index" json:"action_type"`
	Reason       ReasonCode `gorm:"size:32;not null" json:"reason"`
	TargetType   *string    `gorm:"size:16" json:"target_type"`
	TargetID     *string    `gorm:"size:64;index" json:"target_id"`
	Notes        string     `gorm:"type:text" json:"notes,omitempty"`

	RelatedReportID *string `gorm:"size:64;index" json:"related_report_id,omitempty"`

	CreatedAt    time.Time  `gorm:"type:timestamptz;not null;index" json:"created_at"`
	DurationDays *int       `json:"duration_days"`
	ExpiresAt    *time.Time `gorm:"type:timestamptz" json:"expires_at"`

	RevokedAt *time.Time `gorm:"type:timestamptz;index" json:"revoked_at"`
	RevokedBy *string    `gorm:"size:64" json:"revoked_by"`

	Metadata JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (a *ModerationAction) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return
}

type ReportType string

const (
	ReportTrack   ReportType = "track"
	ReportPost    ReportType = "post"
	ReportComment ReportType = "comment"
	ReportAlbum   ReportType = "album"
	ReportUser    ReportType = "user"
)

type ReportStatus string

const (
	ReportPending     ReportStatus = "pending"
	ReportUnderReview ReportStatus = "under_review"
	ReportResolved    ReportStatus = "resolved"
	ReportDismissed   ReportStatus = "dismissed"
)

func (s ReportStatus) Closed() bool {
	return s == ReportResolved || s == ReportDismissed
}

// Report is a flag raised by a user, or by a moderator when ModeratorFlagged
// is set.
type Report struct {
	ID             string       `gorm:"size:64;primaryKey" json:"id"`
	ReportType     ReportType   `gorm:"size:16;not null" json:"report_type"`
	TargetID       string       `gorm:"size:64;not null;index" json:"target_id"`
	ReportedUserID string       `gorm:"size:64;not null;index" json:"reported_user_id"`
	ReporterID     string       `gorm:"size:64;not null;index" json:"reporter_id"`
	Reason         ReasonCode   `gorm:"size:32;not null" json:"reason"`
	Description    string       `gorm:"type:text" json:"description"`
	Status         ReportStatus `gorm:"size:16;not null;default:'pending';index" json:"status"`
	// 1 (most urgent) through 5
	Priority         int         `gorm:"not null;default:3;check:priority >= 1 AND priority <= 5" json:"priority"`
	ActionTaken      *ActionType `gorm:"size:32" json:"action_taken"`
	ModeratorFlagged bool        `gorm:"default:false" json:"moderator_flagged"`
	Metadata         JSONMap     `gorm:"type:jsonb" json:"metadata,omitempty"`

	ReviewedBy      *string    `gorm:"size:64;index" json:"reviewed_by"`
	ReviewedAt      *time.Time `gorm:"type:timestamptz" json:"reviewed_at"`
	ResolutionNotes string     `gorm:"type:text" json:"resolution_notes,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;not null;index" json:"created_at"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return
}
