package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/supabase-community/supabase-go"

	"persona-studio-server/modules/common/apperr"
	"persona-studio-server/modules/common/config"
	"persona-studio-server/modules/common/model"
)

// Client - Supabase 기반 Store 구현
type Client struct {
	supabase *supabase.Client
}

// NewClient - Database 클라이언트 생성
func NewClient(cfg *config.Config) (*Client, error) {
	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	log.Printf("✅ Supabase client created: %s", cfg.SupabaseURL)
	return &Client{
		supabase: supabaseClient,
	}, nil
}

// GetContent - content_calendar 단건 조회
func (c *Client) GetContent(ctx context.Context, id string) (*model.ContentItem, error) {
	var items []model.ContentItem

	data, _, err := c.supabase.From(TableContentCalendar).
		Select("*", "exact", false).
		Eq("id", id).
		Execute()

	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "database.GetContent", fmt.Errorf("failed to query Supabase: %w", err))
	}

	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "database.GetContent", fmt.Errorf("failed to parse response: %w", err))
	}

	if len(items) == 0 {
		return nil, apperr.NotFoundf("database.GetContent", "content not found: %s", id)
	}

	return &items[0], nil
}

// ListContent - 조건에 맞는 content_calendar 목록 (scheduled_date 오름차순)
func (c *Client) ListContent(ctx context.Context, filter model.ContentFilter) ([]model.ContentItem, error) {
	query := c.supabase.From(TableContentCalendar).Select("*", "", false)

	if filter.Influencer != "" {
		query = query.Eq("influencer", filter.Influencer)
	}
	if filter.UserID != "" {
		query = query.Eq("user_id", filter.UserID)
	}
	if filter.ApprovalStatus != "" {
		query = query.Eq("approval_status", filter.ApprovalStatus)
	}
	if filter.From != "" {
		query = query.Gte("scheduled_date", filter.From)
	}
	if filter.To != "" {
		query = query.Lte("scheduled_date", filter.To)
	}

	data, _, err := query.Execute()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "database.ListContent", fmt.Errorf("failed to query Supabase: %w", err))
	}

	var items []model.ContentItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "database.ListContent", fmt.Errorf("failed to parse response: %w", err))
	}

	sortByScheduledDate(items)
	return items, nil
}

// InsertContent - content_calendar 레코드 생성
func (c *Client) InsertContent(ctx context.Context, item *model.ContentItem) (*model.ContentItem, error) {
	log.Printf("💾 Creating content record: %s (%s)", item.Topic, item.ScheduledDate)

	data, _, err := c.supabase.From(TableContentCalendar).
		Insert(item, false, "", "representation", "").
		Execute()

	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "database.InsertContent", fmt.Errorf("failed to insert content: %w", err))
	}

	var items []model.ContentItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "database.InsertContent", fmt.Errorf("failed to parse insert response: %w", err))
	}

	if len(items) == 0 {
		return nil, apperr.New(apperr.KindUpstream, "database.InsertContent", "no content record returned")
	}

	log.Printf("✅ Content record created: ID=%s", items[0].ID)
	return &items[0], nil
}

// UpdateContent - content_calendar 부분 업데이트, 영향받은 row 수 반환
func (c *Client) UpdateContent(ctx context.Context, id string, fields model.Fields) (int, error) {
	updateData := map[string]interface{}{}
	for k, v := range fields {
		updateData[k] = v
	}
	updateData["updated_at"] = time.Now().UTC()

	data, _, err := c.supabase.From(TableContentCalendar).
		Update(updateData, "representation", "").
		Eq("id", id).
		Execute()

	if err != nil {
		return 0, apperr.Wrap(apperr.KindUpstream, "database.UpdateContent", fmt.Errorf("failed to update content: %w", err))
	}

	return countRows(data), nil
}

// UpdateContentWhere - match 컬럼이 모두 같은 row 만 업데이트
func (c *Client) UpdateContentWhere(ctx context.Context, id string, match, fields model.Fields) (int, error) {
	updateData := map[string]interface{}{}
	for k, v := range fields {
		updateData[k] = v
	}
	updateData["updated_at"] = time.Now().UTC()

	query := c.supabase.From(TableContentCalendar).
		Update(updateData, "representation", "").
		Eq("id", id)
	for col, v := range match {
		if v == nil {
			query = query.Is(col, "null")
			continue
		}
		query = query.Eq(col, fmt.Sprint(v))
	}

	data, _, err := query.Execute()
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUpstream, "database.UpdateContentWhere", fmt.Errorf("failed to update content: %w", err))
	}

	return countRows(data), nil
}

// DeleteContent - content_calendar 삭제, 영향받은 row 수 반환
func (c *Client) DeleteContent(ctx context.Context, id string) (int, error) {
	data, _, err := c.supabase.From(TableContentCalendar).
		Delete("representation", "").
		Eq("id", id).
		Execute()

	if err != nil {
		return 0, apperr.Wrap(apperr.KindUpstream, "database.DeleteContent", fmt.Errorf("failed to delete content: %w", err))
	}

	return countRows(data), nil
}

// FindContentByJobID - video_job_id 로 content 조회
func (c *Client) FindContentByJobID(ctx context.Context, jobID string) (*model.ContentItem, error) {
	var items []model.ContentItem

	data, _, err := c.supabase.From(TableContentCalendar).
		Select("*", "", false).
		Eq("video_job_id", jobID).
		Execute()

	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "database.FindContentByJobID", fmt.Errorf("failed to query Supabase: %w", err))
	}

	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "database.FindContentByJobID", fmt.Errorf("failed to parse response: %w", err))
	}

	if len(items) == 0 {
		return nil, apperr.NotFoundf("database.FindContentByJobID", "no content for job: %s", jobID)
	}

	return &items[0], nil
}

// UpsertVideoGeneration - job_id 충돌 시 덮어쓰기
func (c *Client) UpsertVideoGeneration(ctx context.Context, vg *model.VideoGeneration) error {
	// created_at 은 보내지 않음 (최초 insert 시 DB default, 이후 유지)
	upsertData := map[string]interface{}{
		"job_id":         vg.JobID,
		"content_id":     vg.ContentID,
		"status":         vg.Status,
		"broll_images":   nonNil(vg.BrollImages),
		"broll_videos":   nonNil(vg.BrollVideos),
		"lipsync_images": nonNil(vg.LipsyncImages),
		"lipsync_videos": nonNil(vg.LipsyncVideos),
		"full_audio":     vg.FullAudio,
		"updated_at":     time.Now().UTC(),
	}

	_, _, err := c.supabase.From(TableVideoGenerations).
		Insert(upsertData, true, "job_id", "minimal", "").
		Execute()

	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "database.UpsertVideoGeneration", fmt.Errorf("failed to upsert video generation: %w", err))
	}

	log.Printf("✅ Video generation %s upserted (status: %s)", vg.JobID, vg.Status)
	return nil
}

// InsertVideoGeneration - job_id 가 없을 때만 생성. 이미 있으면 (콜백이 먼저 도착) false
func (c *Client) InsertVideoGeneration(ctx context.Context, vg *model.VideoGeneration) (bool, error) {
	insertData := map[string]interface{}{
		"job_id":         vg.JobID,
		"content_id":     vg.ContentID,
		"status":         vg.Status,
		"broll_images":   nonNil(vg.BrollImages),
		"broll_videos":   nonNil(vg.BrollVideos),
		"lipsync_images": nonNil(vg.LipsyncImages),
		"lipsync_videos": nonNil(vg.LipsyncVideos),
		"full_audio":     vg.FullAudio,
	}

	_, _, err := c.supabase.From(TableVideoGenerations).
		Insert(insertData, false, "", "minimal", "").
		Execute()
	if err == nil {
		return true, nil
	}

	// unique(job_id) 충돌이면 이미 있는 row 를 그대로 둔다
	if _, getErr := c.GetVideoGeneration(ctx, vg.JobID); getErr == nil {
		return false, nil
	}
	return false, apperr.Wrap(apperr.KindUpstream, "database.InsertVideoGeneration", fmt.Errorf("failed to insert video generation: %w", err))
}

// GetVideoGeneration - job_id 로 video_generations 조회
func (c *Client) GetVideoGeneration(ctx context.Context, jobID string) (*model.VideoGeneration, error) {
	var rows []model.VideoGeneration

	data, _, err := c.supabase.From(TableVideoGenerations).
		Select("*", "", false).
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "database.GetVideoGeneration", fmt.Errorf("failed to query Supabase: %w", err))
	}

	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "database.GetVideoGeneration", fmt.Errorf("failed to parse response: %w", err))
	}

	if len(rows) == 0 {
		return nil, apperr.NotFoundf("database.GetVideoGeneration", "video generation not found: %s", jobID)
	}

	return &rows[0], nil
}

// ListProfiles - profiles 전체 조회 (알림 수신자 계산용)
func (c *Client) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	var profiles []model.Profile

	data, _, err := c.supabase.From(TableProfiles).
		Select("id,full_name,email,role", "", false).
		Execute()

	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "database.ListProfiles", fmt.Errorf("failed to query profiles: %w", err))
	}

	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "database.ListProfiles", fmt.Errorf("failed to parse profiles: %w", err))
	}

	return profiles, nil
}

// GetProfile - profiles 단건 조회
func (c *Client) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var profiles []model.Profile

	data, _, err := c.supabase.From(TableProfiles).
		Select("id,full_name,email,role", "", false).
		Eq("id", id).
		Execute()

	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "database.GetProfile", fmt.Errorf("failed to query profiles: %w", err))
	}

	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "database.GetProfile", fmt.Errorf("failed to parse profiles: %w", err))
	}

	if len(profiles) == 0 {
		return nil, apperr.NotFoundf("database.GetProfile", "profile not found: %s", id)
	}

	return &profiles[0], nil
}

// countRows - representation 응답의 row 수
func countRows(data []byte) int {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0
	}
	return len(rows)
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func sortByScheduledDate(items []model.ContentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ScheduledDate == items[j].ScheduledDate {
			return items[i].Priority < items[j].Priority
		}
		return items[i].ScheduledDate < items[j].ScheduledDate
	})
}
