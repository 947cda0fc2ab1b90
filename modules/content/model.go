package content

// CreateInput - 캘린더 항목 생성 (수동 추가 / AI 스크립트 채택)
type CreateInput struct {
	Influencer       string  `json:"influencer"`
	Topic            string  `json:"topic" validate:"required"`
	ScheduledDate    string  `json:"scheduledDate" validate:"required"`
	Category         string  `json:"category"`
	ContentType      string  `json:"contentType" validate:"omitempty,oneof=reel story carousel"`
	Priority         int     `json:"priority" validate:"omitempty,min=1,max=3"`
	ScriptContent    *string `json:"scriptContent"`
	Notes            *string `json:"notes"`
	InspirationLinks *string `json:"inspirationLinks"`
	NeedsApproval    bool    `json:"needsApproval"`
}

// UpdateInput - 편집 가능한 필드 (nil 은 변경 없음)
type UpdateInput struct {
	Topic            *string `json:"topic"`
	Category         *string `json:"category"`
	ContentType      *string `json:"contentType" validate:"omitempty,oneof=reel story carousel"`
	Priority         *int    `json:"priority" validate:"omitempty,min=1,max=3"`
	ScriptContent    *string `json:"scriptContent"`
	Notes            *string `json:"notes"`
	InspirationLinks *string `json:"inspirationLinks"`
}

// SubmitRequest - POST /api/content/{id}/submit
type SubmitRequest struct {
	Force bool `json:"force"`
}

// DecisionRequest - POST /api/content/{id}/approve|reject
type DecisionRequest struct {
	Remarks string `json:"remarks"`
}

// ScheduleRequest - POST /api/content/{id}/reschedule|move
type ScheduleRequest struct {
	ScheduledDate string `json:"scheduledDate" validate:"required"`
}

// StatusRequest - POST /api/content/{id}/status
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// MinRejectRemarks - 반려 사유 최소 글자 수
const MinRejectRemarks = 10
