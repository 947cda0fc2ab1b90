package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"persona-studio-server/modules/common/apperr"
	"persona-studio-server/modules/common/model"
)

// MemoryStore - 프로세스 내 Store 구현 (STORE_DRIVER=memory, 테스트)
type MemoryStore struct {
	mu       sync.RWMutex
	contents map[string]model.ContentItem
	videos   map[string]model.VideoGeneration
	profiles map[string]model.Profile
}

// NewMemoryStore - 빈 MemoryStore 생성
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contents: map[string]model.ContentItem{},
		videos:   map[string]model.VideoGeneration{},
		profiles: map[string]model.Profile{},
	}
}

// AddProfile - profiles 시드
func (m *MemoryStore) AddProfile(p model.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

// VideoGenerationCount - 저장된 video_generations row 수
func (m *MemoryStore) VideoGenerationCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.videos)
}

func (m *MemoryStore) GetContent(ctx context.Context, id string) (*model.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.contents[id]
	if !ok {
		return nil, apperr.NotFoundf("database.GetContent", "content not found: %s", id)
	}
	return &item, nil
}

func (m *MemoryStore) ListContent(ctx context.Context, filter model.ContentFilter) ([]model.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := []model.ContentItem{}
	for _, item := range m.contents {
		if filter.Influencer != "" && item.Influencer != filter.Influencer {
			continue
		}
		if filter.UserID != "" && item.UserID != filter.UserID {
			continue
		}
		if filter.ApprovalStatus != "" && item.ApprovalStatus != filter.ApprovalStatus {
			continue
		}
		if filter.From != "" && item.ScheduledDate < filter.From {
			continue
		}
		if filter.To != "" && item.ScheduledDate > filter.To {
			continue
		}
		items = append(items, item)
	}

	sortByScheduledDate(items)
	return items, nil
}

func (m *MemoryStore) InsertContent(ctx context.Context, item *model.ContentItem) (*model.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == "" {
		return nil, apperr.New(apperr.KindUpstream, "database.InsertContent", "id is required")
	}
	if _, exists := m.contents[item.ID]; exists {
		return nil, apperr.New(apperr.KindUpstream, "database.InsertContent", fmt.Sprintf("duplicate id: %s", item.ID))
	}

	stored := *item
	m.contents[item.ID] = stored
	return &stored, nil
}

func (m *MemoryStore) UpdateContent(ctx context.Context, id string, fields model.Fields) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.contents[id]
	if !ok {
		return 0, nil
	}

	merged := model.Fields{}
	for k, v := range fields {
		merged[k] = v
	}
	merged["updated_at"] = time.Now().UTC()

	updated, err := applyFields(item, merged)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUpstream, "database.UpdateContent", err)
	}
	m.contents[id] = updated
	return 1, nil
}

func (m *MemoryStore) UpdateContentWhere(ctx context.Context, id string, match, fields model.Fields) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.contents[id]
	if !ok {
		return 0, nil
	}

	matched, err := columnsEqual(item, match)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUpstream, "database.UpdateContentWhere", err)
	}
	if !matched {
		return 0, nil
	}

	merged := model.Fields{}
	for k, v := range fields {
		merged[k] = v
	}
	merged["updated_at"] = time.Now().UTC()

	updated, err := applyFields(item, merged)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUpstream, "database.UpdateContentWhere", err)
	}
	m.contents[id] = updated
	return 1, nil
}

func (m *MemoryStore) DeleteContent(ctx context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contents[id]; !ok {
		return 0, nil
	}
	delete(m.contents, id)
	return 1, nil
}

func (m *MemoryStore) FindContentByJobID(ctx context.Context, jobID string) (*model.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, item := range m.contents {
		if item.VideoJobID != nil && *item.VideoJobID == jobID {
			found := item
			return &found, nil
		}
	}
	return nil, apperr.NotFoundf("database.FindContentByJobID", "no content for job: %s", jobID)
}

func (m *MemoryStore) UpsertVideoGeneration(ctx context.Context, vg *model.VideoGeneration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	row := *vg
	row.BrollImages = nonNil(row.BrollImages)
	row.BrollVideos = nonNil(row.BrollVideos)
	row.LipsyncImages = nonNil(row.LipsyncImages)
	row.LipsyncVideos = nonNil(row.LipsyncVideos)
	row.UpdatedAt = now

	if existing, ok := m.videos[vg.JobID]; ok {
		row.CreatedAt = existing.CreatedAt
	} else {
		row.CreatedAt = now
	}

	m.videos[vg.JobID] = row
	return nil
}

func (m *MemoryStore) InsertVideoGeneration(ctx context.Context, vg *model.VideoGeneration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.videos[vg.JobID]; ok {
		return false, nil
	}

	now := time.Now().UTC()
	row := *vg
	row.BrollImages = nonNil(row.BrollImages)
	row.BrollVideos = nonNil(row.BrollVideos)
	row.LipsyncImages = nonNil(row.LipsyncImages)
	row.LipsyncVideos = nonNil(row.LipsyncVideos)
	row.CreatedAt = now
	row.UpdatedAt = now
	m.videos[vg.JobID] = row
	return true, nil
}

func (m *MemoryStore) GetVideoGeneration(ctx context.Context, jobID string) (*model.VideoGeneration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.videos[jobID]
	if !ok {
		return nil, apperr.NotFoundf("database.GetVideoGeneration", "video generation not found: %s", jobID)
	}
	return &row, nil
}

func (m *MemoryStore) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profiles := make([]model.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (m *MemoryStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, apperr.NotFoundf("database.GetProfile", "profile not found: %s", id)
	}
	return &p, nil
}

// columnsEqual - match 의 각 컬럼이 JSON 표현 기준으로 같은지
func columnsEqual(item model.ContentItem, match model.Fields) (bool, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return false, err
	}
	var columns map[string]json.RawMessage
	if err := json.Unmarshal(raw, &columns); err != nil {
		return false, err
	}

	for k, v := range match {
		want, err := json.Marshal(v)
		if err != nil {
			return false, fmt.Errorf("failed to encode column %s: %w", k, err)
		}
		got, ok := columns[k]
		if !ok {
			got = json.RawMessage("null")
		}
		if string(got) != string(want) {
			return false, nil
		}
	}
	return true, nil
}

// applyFields - 컬럼 맵을 JSON 을 거쳐 구조체에 반영 (Supabase update 와 같은 의미)
func applyFields(item model.ContentItem, fields model.Fields) (model.ContentItem, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return item, err
	}

	var columns map[string]json.RawMessage
	if err := json.Unmarshal(raw, &columns); err != nil {
		return item, err
	}

	for k, v := range fields {
		encoded, err := json.Marshal(v)
		if err != nil {
			return item, fmt.Errorf("failed to encode column %s: %w", k, err)
		}
		columns[k] = encoded
	}

	merged, err := json.Marshal(columns)
	if err != nil {
		return item, err
	}

	var out model.ContentItem
	if err := json.Unmarshal(merged, &out); err != nil {
		return item, err
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*Client)(nil)
