package model

import "time"

// ContentItem - content_calendar 테이블 구조
type ContentItem struct {
	ID               string  `json:"id"`
	UserID           string  `json:"user_id,omitempty"`
	Influencer       string  `json:"influencer"`
	Topic            string  `json:"topic"`
	ScheduledDate    string  `json:"scheduled_date"` // YYYY-MM-DD
	Category         string  `json:"category,omitempty"`
	ContentType      string  `json:"content_type"` // reel, story, carousel
	Priority         int     `json:"priority"`     // 1=high .. 3=low
	ScriptContent    *string `json:"script_content"`
	Notes            *string `json:"notes"`
	InspirationLinks *string `json:"inspiration_links"`

	// 승인 워크플로우
	Status                 string     `json:"status"`
	ApprovalStatus         string     `json:"approval_status"`
	AdminRemarks           *string    `json:"admin_remarks"`
	ApprovedBy             *string    `json:"approved_by"`
	ApprovedAt             *time.Time `json:"approved_at"`
	SubmittedForApprovalAt *time.Time `json:"submitted_for_approval_at"`
	ReminderCount          int        `json:"reminder_count"`
	LastReminderSentAt     *time.Time `json:"last_reminder_sent_at"`

	// 영상 생성
	VideoStatus       *string  `json:"video_status"`
	VideoJobID        *string  `json:"video_job_id"`
	VideoCostEstimate *float64 `json:"video_cost_estimate"`
	WordCount         *int     `json:"word_count"`
	VideoErrorMessage *string  `json:"video_error_message"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasScript - script_content가 비어있지 않은지 확인
func (c *ContentItem) HasScript() bool {
	return c.ScriptContent != nil && len(*c.ScriptContent) > 0
}

// VideoGeneration - video_generations 테이블 구조 (job_id unique)
type VideoGeneration struct {
	JobID         string    `json:"job_id"`
	ContentID     string    `json:"content_id"`
	Status        string    `json:"status"`
	BrollImages   []string  `json:"broll_images"`
	BrollVideos   []string  `json:"broll_videos"`
	LipsyncImages []string  `json:"lipsync_images"`
	LipsyncVideos []string  `json:"lipsync_videos"`
	FullAudio     *string   `json:"full_audio"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Profile - profiles 테이블 구조
type Profile struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// IsAdmin - 관리자 여부
func (p Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// DisplayName - 이름이 없으면 이메일 사용
func (p Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}

const RoleAdmin = "admin"

// ContentItem.status
const (
	StatusPlanned         = "planned"
	StatusPendingApproval = "pending_approval"
	StatusApproved        = "approved"
	StatusScriptReady     = "script_ready"
	StatusInProduction    = "in_production"
	StatusPublished       = "published"
	StatusCancelled       = "cancelled"
)

// ContentItem.approval_status
const (
	ApprovalNotRequired = "not_required"
	ApprovalPending     = "pending"
	ApprovalApproved    = "approved"
	ApprovalRejected    = "rejected"
)

// ContentItem.video_status / VideoGeneration.status
const (
	VideoPending    = "pending"
	VideoGenerating = "generating"
	VideoProcessing = "processing"
	VideoCompleted  = "completed"
	VideoFailed     = "failed"
)

// ContentItem.content_type
const (
	ContentTypeReel     = "reel"
	ContentTypeStory    = "story"
	ContentTypeCarousel = "carousel"
)

// DateLayout - scheduled_date 포맷
const DateLayout = "2006-01-02"

// ContentFilter - content_calendar 조회 조건
type ContentFilter struct {
	Influencer     string
	UserID         string
	ApprovalStatus string
	From           string // YYYY-MM-DD, 포함
	To             string // YYYY-MM-DD, 포함
}

// Fields - 부분 업데이트용 컬럼 맵
type Fields map[string]interface{}

// StrPtr - 문자열 포인터 헬퍼
func StrPtr(s string) *string {
	return &s
}
