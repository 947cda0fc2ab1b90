package access

import (
	"context"
	"errors"

	"persona-studio-server/modules/common/apperr"
	"persona-studio-server/modules/common/auth"
	"persona-studio-server/modules/common/model"
)

// Profiles - profiles 조회 (database.Store 가 만족)
type Profiles interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
}

// RequireAdmin - 요청자가 admin 역할인지 확인
func RequireAdmin(ctx context.Context, profiles Profiles, op string, sess auth.Session) (*model.Profile, error) {
	if sess.UserID == "" {
		return nil, apperr.New(apperr.KindUnauthorized, op, "no session")
	}
	profile, err := profiles.GetProfile(ctx, sess.UserID)
	if errors.Is(err, apperr.NotFound) {
		return nil, apperr.New(apperr.KindPermissionDenied, op, "admin role required")
	}
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return nil, apperr.Wrap(apperr.KindUpstream, op, err)
		}
		return nil, err
	}
	if !profile.IsAdmin() {
		return nil, apperr.New(apperr.KindPermissionDenied, op, "admin role required")
	}
	return profile, nil
}

// CanModify - 작성자 본인 또는 admin 만 항목을 수정/삭제할 수 있다
// 작성자가 비어있는 항목은 admin 만
func CanModify(ctx context.Context, profiles Profiles, op string, sess auth.Session, item *model.ContentItem) error {
	if sess.UserID == "" {
		return apperr.New(apperr.KindUnauthorized, op, "no session")
	}
	if item.UserID != "" && item.UserID == sess.UserID {
		return nil
	}
	if _, err := RequireAdmin(ctx, profiles, op, sess); err != nil {
		if errors.Is(err, apperr.PermissionDenied) {
			return apperr.New(apperr.KindPermissionDenied, op, "not allowed to modify this content")
		}
		return err
	}
	return nil
}
