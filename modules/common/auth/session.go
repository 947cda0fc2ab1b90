package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	"persona-studio-server/modules/common/apperr"
)

// Session - 요청 단위 사용자 컨텍스트 (브라우저 저장소 플래그 대신 명시적으로 전달)
type Session struct {
	UserID     string
	Email      string
	Influencer string
}

// Claims - Supabase access token claims
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// WithSession - context 에 Session 저장
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext - context 에서 Session 조회
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// ParseToken - HS256 토큰 검증 후 Session 생성
func ParseToken(secret, token string) (Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Session{}, fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid {
		return Session{}, errors.New("invalid token")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Session{}, errors.New("token has no subject")
	}

	return Session{UserID: sub, Email: claims.Email}, nil
}

// IssueToken - HS256 토큰 발급 (로컬 개발/테스트용)
func IssueToken(secret, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Middleware - Authorization: Bearer 토큰으로 Session 을 context 에 주입
// disabled=true 이면 X-User-Id / X-User-Email 헤더를 그대로 신뢰 (로컬 개발)
func Middleware(secret string, disabled bool, onError func(http.ResponseWriter, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			var sess Session
			if disabled {
				sess = Session{
					UserID: r.Header.Get("X-User-Id"),
					Email:  r.Header.Get("X-User-Email"),
				}
				if sess.UserID == "" {
					sess.UserID = "local-dev"
				}
			} else {
				token := bearerToken(r)
				if token == "" {
					onError(w, apperr.New(apperr.KindUnauthorized, "auth", "missing bearer token"))
					return
				}

				parsed, err := ParseToken(secret, token)
				if err != nil {
					log.Printf("⚠️ [Auth] Rejected token: %v", err)
					onError(w, apperr.New(apperr.KindUnauthorized, "auth", "invalid token"))
					return
				}
				sess = parsed
			}

			sess.Influencer = influencerFrom(r)
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// bearerToken - Authorization 헤더, 없으면 access_token 쿼리 (브라우저 WebSocket 은 헤더를 못 보냄)
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == header {
			return ""
		}
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

// influencerFrom - 선택된 페르소나 (X-Influencer 헤더 또는 influencer 쿼리)
func influencerFrom(r *http.Request) string {
	if v := r.Header.Get("X-Influencer"); v != "" {
		return strings.ToLower(v)
	}
	return strings.ToLower(r.URL.Query().Get("influencer"))
}
