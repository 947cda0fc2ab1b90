package video

import (
	"encoding/json"

	"persona-studio-server/modules/common/fallback"
)

// 말하기 속도 / 가격 기준
const (
	WordsPerSecond    = 2.5
	SecondsPerBlock   = 30.0
	CostPerBlockUSD   = 10.0
	maxVendorErrorLen = 500
)

// Estimate - 스크립트 기반 영상 비용 추정
type Estimate struct {
	WordCount int     `json:"wordCount"`
	Duration  int     `json:"duration"` // 초, 올림
	Cost      float64 `json:"cost"`     // USD, 소수점 2자리
}

// EstimateRequest - POST /api/video/estimate (script 또는 contentId)
type EstimateRequest struct {
	Script    string `json:"script"`
	ContentID string `json:"contentId"`
}

// GenerateRequest - POST /api/video/generate
type GenerateRequest struct {
	ContentID  string `json:"contentId" validate:"required"`
	Script     string `json:"script"`
	Influencer string `json:"influencer"`
}

// TriggerResult - 영상 생성 요청 결과
type TriggerResult struct {
	JobID       string   `json:"jobId"`
	ContentID   string   `json:"contentId"`
	VideoStatus string   `json:"videoStatus"`
	Estimate    Estimate `json:"estimate"`
	Message     string   `json:"message,omitempty"`
}

// VendorRequest - 영상 벤더 요청 body
type VendorRequest struct {
	Script      string `json:"script"`
	Character   string `json:"character"`
	ContentID   string `json:"content_id"`
	JobID       string `json:"job_id"`
	CallbackURL string `json:"callback_url"`
}

// VendorResponse - 영상 벤더 응답 body
type VendorResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// CallbackPayload - 벤더 → POST /api/video/callback?jobId=<id>
type CallbackPayload struct {
	BrollImages   AssetList `json:"broll_images"`
	BrollVideos   AssetList `json:"broll_videos"`
	LipsyncImages AssetList `json:"lipsync_images"`
	LipsyncVideos AssetList `json:"lipsync_videos"`
	FullAudio     *string   `json:"full_audio"`
	Error         string    `json:"error,omitempty"`
}

// AssetList - URL 배열. 벤더가 단일 문자열이나 null 을 보내도 받아들인다
type AssetList []string

func (a *AssetList) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = fallback.SafeStringList(raw)
	return nil
}
