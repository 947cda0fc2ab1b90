package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"persona-studio-server/modules/common/apperr"
	"persona-studio-server/modules/common/database"
	"persona-studio-server/modules/common/model"
)

// Store - Supabase Postgres 에 직접 붙는 Store 구현 (STORE_DRIVER=postgres)
type Store struct {
	db *gorm.DB
}

// Open - DATABASE_URL 로 연결
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	log.Println("✅ Postgres store connected")
	return &Store{db: db}, nil
}

type contentRow struct {
	ID                     string `gorm:"primaryKey"`
	UserID                 string
	Influencer             string
	Topic                  string
	ScheduledDate          time.Time `gorm:"type:date"`
	Category               string
	ContentType            string
	Priority               int
	ScriptContent          *string
	Notes                  *string
	InspirationLinks       *string
	Status                 string
	ApprovalStatus         string
	AdminRemarks           *string
	ApprovedBy             *string
	ApprovedAt             *time.Time
	SubmittedForApprovalAt *time.Time
	ReminderCount          int
	LastReminderSentAt     *time.Time
	VideoStatus            *string
	VideoJobID             *string
	VideoCostEstimate      *float64
	WordCount              *int
	VideoErrorMessage      *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (contentRow) TableName() string { return database.TableContentCalendar }

type videoRow struct {
	JobID         string         `gorm:"primaryKey"`
	ContentID     string
	Status        string
	BrollImages   pq.StringArray `gorm:"type:text[]"`
	BrollVideos   pq.StringArray `gorm:"type:text[]"`
	LipsyncImages pq.StringArray `gorm:"type:text[]"`
	LipsyncVideos pq.StringArray `gorm:"type:text[]"`
	FullAudio     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (videoRow) TableName() string { return database.TableVideoGenerations }

type profileRow struct {
	ID       string `gorm:"primaryKey"`
	FullName string
	Email    string
	Role     string
}

func (profileRow) TableName() string { return database.TableProfiles }

func (s *Store) GetContent(ctx context.Context, id string) (*model.ContentItem, error) {
	var row contentRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("pgstore.GetContent", "content not found: %s", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "pgstore.GetContent", err)
	}
	item := row.toModel()
	return &item, nil
}

func (s *Store) ListContent(ctx context.Context, filter model.ContentFilter) ([]model.ContentItem, error) {
	q := s.db.WithContext(ctx).Model(&contentRow{})
	if filter.Influencer != "" {
		q = q.Where("influencer = ?", filter.Influencer)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.ApprovalStatus != "" {
		q = q.Where("approval_status = ?", filter.ApprovalStatus)
	}
	if filter.From != "" {
		q = q.Where("scheduled_date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("scheduled_date <= ?", filter.To)
	}

	var rows []contentRow
	if err := q.Order("scheduled_date asc").Order("priority asc").Find(&rows).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "pgstore.ListContent", err)
	}

	items := make([]model.ContentItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

func (s *Store) InsertContent(ctx context.Context, item *model.ContentItem) (*model.ContentItem, error) {
	row := contentFromModel(item)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "pgstore.InsertContent", err)
	}
	created := row.toModel()
	return &created, nil
}

func (s *Store) UpdateContent(ctx context.Context, id string, fields model.Fields) (int, error) {
	updates := map[string]interface{}{}
	for k, v := range fields {
		updates[k] = v
	}
	updates["updated_at"] = time.Now().UTC()

	res := s.db.WithContext(ctx).Model(&contentRow{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return 0, apperr.Wrap(apperr.KindUpstream, "pgstore.UpdateContent", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *Store) UpdateContentWhere(ctx context.Context, id string, match, fields model.Fields) (int, error) {
	updates := map[string]interface{}{}
	for k, v := range fields {
		updates[k] = v
	}
	updates["updated_at"] = time.Now().UTC()

	q := s.db.WithContext(ctx).Model(&contentRow{}).Where("id = ?", id)
	// nil 은 IS NULL 로 변환된다
	for col, v := range match {
		q = q.Where(clause.Eq{Column: clause.Column{Name: col}, Value: v})
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return 0, apperr.Wrap(apperr.KindUpstream, "pgstore.UpdateContentWhere", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *Store) DeleteContent(ctx context.Context, id string) (int, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&contentRow{})
	if res.Error != nil {
		return 0, apperr.Wrap(apperr.KindUpstream, "pgstore.DeleteContent", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *Store) FindContentByJobID(ctx context.Context, jobID string) (*model.ContentItem, error) {
	var row contentRow
	err := s.db.WithContext(ctx).Where("video_job_id = ?", jobID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("pgstore.FindContentByJobID", "no content for job: %s", jobID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "pgstore.FindContentByJobID", err)
	}
	item := row.toModel()
	return &item, nil
}

// UpsertVideoGeneration - job_id 충돌 시 created_at 을 제외한 컬럼 덮어쓰기
func (s *Store) UpsertVideoGeneration(ctx context.Context, vg *model.VideoGeneration) error {
	row := videoRowFromModel(vg, time.Now().UTC())

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"content_id", "status", "broll_images", "broll_videos",
			"lipsync_images", "lipsync_videos", "full_audio", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "pgstore.UpsertVideoGeneration", err)
	}
	return nil
}

// InsertVideoGeneration - ON CONFLICT (job_id) DO NOTHING
func (s *Store) InsertVideoGeneration(ctx context.Context, vg *model.VideoGeneration) (bool, error) {
	now := time.Now().UTC()
	row := videoRowFromModel(vg, now)

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return false, apperr.Wrap(apperr.KindUpstream, "pgstore.InsertVideoGeneration", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) GetVideoGeneration(ctx context.Context, jobID string) (*model.VideoGeneration, error) {
	var row videoRow
	err := s.db.WithContext(ctx).Where("job_id = ?", jobID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("pgstore.GetVideoGeneration", "video generation not found: %s", jobID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "pgstore.GetVideoGeneration", err)
	}
	return &model.VideoGeneration{
		JobID:         row.JobID,
		ContentID:     row.ContentID,
		Status:        row.Status,
		BrollImages:   orEmpty(row.BrollImages),
		BrollVideos:   orEmpty(row.BrollVideos),
		LipsyncImages: orEmpty(row.LipsyncImages),
		LipsyncVideos: orEmpty(row.LipsyncVideos),
		FullAudio:     row.FullAudio,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	var rows []profileRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "pgstore.ListProfiles", err)
	}
	profiles := make([]model.Profile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, model.Profile(r))
	}
	return profiles, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var row profileRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("pgstore.GetProfile", "profile not found: %s", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "pgstore.GetProfile", err)
	}
	p := model.Profile(row)
	return &p, nil
}

func videoRowFromModel(vg *model.VideoGeneration, now time.Time) videoRow {
	return videoRow{
		JobID:         vg.JobID,
		ContentID:     vg.ContentID,
		Status:        vg.Status,
		BrollImages:   pq.StringArray(orEmpty(vg.BrollImages)),
		BrollVideos:   pq.StringArray(orEmpty(vg.BrollVideos)),
		LipsyncImages: pq.StringArray(orEmpty(vg.LipsyncImages)),
		LipsyncVideos: pq.StringArray(orEmpty(vg.LipsyncVideos)),
		FullAudio:     vg.FullAudio,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// toModel - date 컬럼은 time.Time 으로 읽히므로 YYYY-MM-DD 로 포맷
func (r contentRow) toModel() model.ContentItem {
	return model.ContentItem{
		ID:                     r.ID,
		UserID:                 r.UserID,
		Influencer:             r.Influencer,
		Topic:                  r.Topic,
		ScheduledDate:          formatDate(r.ScheduledDate),
		Category:               r.Category,
		ContentType:            r.ContentType,
		Priority:               r.Priority,
		ScriptContent:          r.ScriptContent,
		Notes:                  r.Notes,
		InspirationLinks:       r.InspirationLinks,
		Status:                 r.Status,
		ApprovalStatus:         r.ApprovalStatus,
		AdminRemarks:           r.AdminRemarks,
		ApprovedBy:             r.ApprovedBy,
		ApprovedAt:             r.ApprovedAt,
		SubmittedForApprovalAt: r.SubmittedForApprovalAt,
		ReminderCount:          r.ReminderCount,
		LastReminderSentAt:     r.LastReminderSentAt,
		VideoStatus:            r.VideoStatus,
		VideoJobID:             r.VideoJobID,
		VideoCostEstimate:      r.VideoCostEstimate,
		WordCount:              r.WordCount,
		VideoErrorMessage:      r.VideoErrorMessage,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

func contentFromModel(c *model.ContentItem) contentRow {
	scheduled, err := time.Parse(model.DateLayout, c.ScheduledDate)
	if err != nil {
		log.Printf("⚠️ [Postgres] Invalid scheduled_date %q for %s", c.ScheduledDate, c.ID)
	}
	return contentRow{
		ID:                     c.ID,
		UserID:                 c.UserID,
		Influencer:             c.Influencer,
		Topic:                  c.Topic,
		ScheduledDate:          scheduled,
		Category:               c.Category,
		ContentType:            c.ContentType,
		Priority:               c.Priority,
		ScriptContent:          c.ScriptContent,
		Notes:                  c.Notes,
		InspirationLinks:       c.InspirationLinks,
		Status:                 c.Status,
		ApprovalStatus:         c.ApprovalStatus,
		AdminRemarks:           c.AdminRemarks,
		ApprovedBy:             c.ApprovedBy,
		ApprovedAt:             c.ApprovedAt,
		SubmittedForApprovalAt: c.SubmittedForApprovalAt,
		ReminderCount:          c.ReminderCount,
		LastReminderSentAt:     c.LastReminderSentAt,
		VideoStatus:            c.VideoStatus,
		VideoJobID:             c.VideoJobID,
		VideoCostEstimate:      c.VideoCostEstimate,
		WordCount:              c.WordCount,
		VideoErrorMessage:      c.VideoErrorMessage,
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

var _ database.Store = (*Store)(nil)
