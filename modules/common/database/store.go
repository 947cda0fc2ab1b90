package database

import (
	"context"

	"persona-studio-server/modules/common/model"
)

// 테이블 이름
const (
	TableContentCalendar  = "content_calendar"
	TableVideoGenerations = "video_generations"
	TableProfiles         = "profiles"
)

// Store - content_calendar / video_generations / profiles 접근 인터페이스
//
// 조회 실패는 apperr.NotFound, 그 외 저장소 오류는 apperr.Upstream 으로 반환한다.
// Update/Delete 는 영향받은 row 수를 반환한다 (RLS 로 가려진 row 는 0).
// UpdateContentWhere 는 match 의 컬럼 값이 모두 같을 때만 갱신한다.
// InsertVideoGeneration 은 job_id 가 이미 있으면 아무것도 쓰지 않고 false 를 반환한다.
type Store interface {
	GetContent(ctx context.Context, id string) (*model.ContentItem, error)
	ListContent(ctx context.Context, filter model.ContentFilter) ([]model.ContentItem, error)
	InsertContent(ctx context.Context, item *model.ContentItem) (*model.ContentItem, error)
	UpdateContent(ctx context.Context, id string, fields model.Fields) (int, error)
	UpdateContentWhere(ctx context.Context, id string, match, fields model.Fields) (int, error)
	DeleteContent(ctx context.Context, id string) (int, error)
	FindContentByJobID(ctx context.Context, jobID string) (*model.ContentItem, error)

	UpsertVideoGeneration(ctx context.Context, vg *model.VideoGeneration) error
	InsertVideoGeneration(ctx context.Context, vg *model.VideoGeneration) (bool, error)
	GetVideoGeneration(ctx context.Context, jobID string) (*model.VideoGeneration, error)

	ListProfiles(ctx context.Context) ([]model.Profile, error)
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
}
