package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"persona-studio-server/modules/common/access"
	"persona-studio-server/modules/common/apperr"
	"persona-studio-server/modules/common/auth"
	"persona-studio-server/modules/common/database"
	"persona-studio-server/modules/common/model"
	"persona-studio-server/modules/persona"
	"persona-studio-server/modules/realtime"
)

// Options - 영상 벤더 설정
type Options struct {
	VendorURL   string
	APIKey      string
	Timeout     time.Duration
	CallbackURL func(jobID string) string
}

// Service - 영상 생성 트리거 / 콜백 처리
type Service struct {
	store      database.Store
	personas   *persona.Registry
	publisher  realtime.Publisher
	opts       Options
	httpClient *http.Client
}

// NewService - Service 생성
func NewService(store database.Store, personas *persona.Registry, publisher realtime.Publisher, opts Options) *Service {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.CallbackURL == nil {
		opts.CallbackURL = func(jobID string) string { return "/api/video/callback?jobId=" + jobID }
	}
	return &Service{
		store:     store,
		personas:  personas,
		publisher: publisher,
		opts:      opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

// EstimateCost - 단어 수 / 2.5 = 초, 30초당 $10 (I/O 없음)
func EstimateCost(script string) Estimate {
	words := len(strings.Fields(script))
	seconds := float64(words) / WordsPerSecond
	cost := seconds / SecondsPerBlock * CostPerBlockUSD

	return Estimate{
		WordCount: words,
		Duration:  int(math.Ceil(seconds)),
		Cost:      math.Round(cost*100) / 100,
	}
}

// EstimateFor - script 가 없으면 contentId 의 script_content 로 추정
func (s *Service) EstimateFor(ctx context.Context, req EstimateRequest) (Estimate, error) {
	if req.Script != "" || req.ContentID == "" {
		return EstimateCost(req.Script), nil
	}
	item, err := s.store.GetContent(ctx, req.ContentID)
	if err != nil {
		return Estimate{}, err
	}
	if !item.HasScript() {
		return EstimateCost(""), nil
	}
	return EstimateCost(*item.ScriptContent), nil
}

// Trigger - 작업 ID 발급 → 항목에 pending 기록 → 벤더 요청
// 벤더가 거절하면 video_status 를 failed 로 되돌리고 VendorRejection 반환
func (s *Service) Trigger(ctx context.Context, sess auth.Session, contentID, script, influencer string) (*TriggerResult, error) {
	const op = "video.Trigger"

	if strings.TrimSpace(contentID) == "" {
		return nil, apperr.Validationf(op, "contentId is required")
	}

	item, err := s.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if err := access.CanModify(ctx, s.store, op, sess, item); err != nil {
		return nil, err
	}

	if strings.TrimSpace(script) == "" && item.HasScript() {
		script = *item.ScriptContent
	}
	if strings.TrimSpace(script) == "" {
		return nil, apperr.Validationf(op, "script is required")
	}

	if influencer == "" {
		influencer = item.Influencer
	}
	p, err := s.personas.Get(influencer)
	if err != nil {
		return nil, err
	}

	estimate := EstimateCost(script)
	jobID := uuid.New().String()

	n, err := s.store.UpdateContent(ctx, contentID, model.Fields{
		"video_status":        model.VideoPending,
		"video_job_id":        jobID,
		"word_count":          estimate.WordCount,
		"video_cost_estimate": estimate.Cost,
		"video_error_message": nil,
	})
	if err != nil {
		return nil, upstream(op, err)
	}
	if n == 0 {
		return nil, apperr.New(apperr.KindPermissionDenied, op, "not allowed to modify this content")
	}

	log.Printf("🎬 [Video] Job %s created for %s (%d words, $%.2f) by %s", jobID, contentID, estimate.WordCount, estimate.Cost, sess.UserID)

	resp, vendorErr := s.callVendor(ctx, VendorRequest{
		Script:      script,
		Character:   p.Character,
		ContentID:   contentID,
		JobID:       jobID,
		CallbackURL: s.opts.CallbackURL(jobID),
	})
	if vendorErr != nil {
		s.markFailed(context.WithoutCancel(ctx), item, jobID, vendorErr.Error())
		return nil, apperr.Wrap(apperr.KindVendorRejection, op, vendorErr)
	}

	status, err := s.recordAccepted(ctx, item, jobID)
	if err != nil {
		return nil, upstream(op, err)
	}

	log.Printf("✅ [Video] Vendor accepted job %s: %s", jobID, resp.Message)

	return &TriggerResult{
		JobID:       jobID,
		ContentID:   contentID,
		VideoStatus: status,
		Estimate:    estimate,
		Message:     resp.Message,
	}, nil
}

// recordAccepted - 벤더 수락 후 processing / generating 기록
// 콜백이 벤더 응답보다 먼저 도착했으면 콜백 결과(completed/failed)를 그대로 둔다
func (s *Service) recordAccepted(ctx context.Context, item *model.ContentItem, jobID string) (string, error) {
	created, err := s.store.InsertVideoGeneration(ctx, &model.VideoGeneration{
		JobID:     jobID,
		ContentID: item.ID,
		Status:    model.VideoProcessing,
	})
	if err != nil {
		log.Printf("⚠️ [Video] Failed to record job %s (callback will create it): %v", jobID, err)
	} else if !created {
		log.Printf("⚡ [Video] Callback for job %s arrived before the vendor response", jobID)
	}

	n, err := s.store.UpdateContentWhere(ctx, item.ID,
		model.Fields{"video_job_id": jobID, "video_status": model.VideoPending},
		model.Fields{"video_status": model.VideoGenerating},
	)
	if err != nil {
		return "", err
	}
	if n > 0 {
		s.publish(item, model.VideoGenerating)
		return model.VideoGenerating, nil
	}

	current, err := s.store.GetContent(ctx, item.ID)
	if err != nil {
		return "", err
	}
	if current.VideoStatus == nil {
		return model.VideoPending, nil
	}
	return *current.VideoStatus, nil
}

// callVendor - POST {script, character, content_id, job_id, callback_url}
func (s *Service) callVendor(ctx context.Context, reqData VendorRequest) (*VendorResponse, error) {
	if s.opts.VendorURL == "" {
		return nil, errors.New("video vendor URL is not configured")
	}

	reqBody, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.VendorURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
	}

	log.Printf("🚀 [Video] Sending job %s to vendor (character: %s)", reqData.JobID, reqData.Character)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("📥 [Video] Vendor response status: %d", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("vendor returned status %d: %s", resp.StatusCode, truncate(string(body), maxVendorErrorLen))
	}

	result := &VendorResponse{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			log.Printf("⚠️ [Video] Vendor response is not JSON, ignoring body: %v", err)
		}
	}
	return result, nil
}

// markFailed - 벤더 거절 시 generating 으로 남지 않도록 failed 기록
func (s *Service) markFailed(ctx context.Context, item *model.ContentItem, jobID, message string) {
	_, err := s.store.UpdateContent(ctx, item.ID, model.Fields{
		"video_status":        model.VideoFailed,
		"video_error_message": truncate(message, maxVendorErrorLen),
	})
	if err != nil {
		log.Printf("❌ [Video] Failed to mark job %s as failed: %v", jobID, err)
		return
	}
	log.Printf("❌ [Video] Vendor rejected job %s: %s", jobID, message)
	s.publish(item, model.VideoFailed)
}

// HandleCallback - 벤더 콜백. video_generations upsert → content video_status 갱신
// 같은 jobId 로 여러 번 호출되어도 결과는 같다 (마지막 콜백이 덮어씀)
func (s *Service) HandleCallback(ctx context.Context, jobID string, payload CallbackPayload) (*model.VideoGeneration, error) {
	const op = "video.HandleCallback"

	if strings.TrimSpace(jobID) == "" {
		return nil, apperr.Validationf(op, "jobId is required")
	}

	item, err := s.store.FindContentByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, apperr.NotFound) {
			log.Printf("⚠️ [Video] Callback for unknown job %s", jobID)
		}
		return nil, err
	}

	status := model.VideoCompleted
	if payload.Error != "" {
		status = model.VideoFailed
	}

	vg := &model.VideoGeneration{
		JobID:         jobID,
		ContentID:     item.ID,
		Status:        status,
		BrollImages:   orEmpty(payload.BrollImages),
		BrollVideos:   orEmpty(payload.BrollVideos),
		LipsyncImages: orEmpty(payload.LipsyncImages),
		LipsyncVideos: orEmpty(payload.LipsyncVideos),
		FullAudio:     payload.FullAudio,
	}
	if err := s.store.UpsertVideoGeneration(ctx, vg); err != nil {
		return nil, upstream(op, err)
	}

	fields := model.Fields{"video_status": status, "video_error_message": nil}
	if payload.Error != "" {
		fields["video_error_message"] = truncate(payload.Error, maxVendorErrorLen)
	}
	if _, err := s.store.UpdateContent(ctx, item.ID, fields); err != nil {
		// video_generations 는 이미 기록됨. 벤더 재전송 시 복구된다
		return nil, upstream(op, err)
	}

	log.Printf("✅ [Video] Callback for job %s → %s (lipsync videos: %d)", jobID, status, len(vg.LipsyncVideos))
	s.publish(item, status)

	stored, err := s.store.GetVideoGeneration(ctx, jobID)
	if err != nil {
		return vg, nil
	}
	return stored, nil
}

// Status - video_generations row 조회
func (s *Service) Status(ctx context.Context, jobID string) (*model.VideoGeneration, error) {
	return s.store.GetVideoGeneration(ctx, jobID)
}

func (s *Service) publish(item *model.ContentItem, status string) {
	s.publisher.Publish(realtime.Event{
		Type:        realtime.EventVideoUpdated,
		Influencer:  item.Influencer,
		ContentID:   item.ID,
		VideoStatus: status,
	})
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// truncate - max 바이트 이하로 자르되 UTF-8 문자 중간에서 끊지 않는다
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func upstream(op string, err error) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return apperr.Wrap(apperr.KindUpstream, op, err)
}
