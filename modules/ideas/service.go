package ideas

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"persona-studio-server/modules/common/apperr"
	"persona-studio-server/modules/common/auth"
	"persona-studio-server/modules/common/gemini"
	"persona-studio-server/modules/common/model"
	"persona-studio-server/modules/content"
	"persona-studio-server/modules/persona"
)

// TextGenerator - 웹훅이 없을 때 쓰는 LLM (gemini.Client)
type TextGenerator interface {
	Enabled() bool
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Options - 타임아웃 설정
type Options struct {
	IdeasTimeout  time.Duration
	ScriptTimeout time.Duration
}

// Service - 페르소나별 아이디어 / 스크립트 생성
type Service struct {
	personas   *persona.Registry
	content    *content.Service
	llm        TextGenerator
	opts       Options
	httpClient *http.Client
}

// NewService - Service 생성 (llm 은 nil 허용)
func NewService(personas *persona.Registry, contentSvc *content.Service, llm TextGenerator, opts Options) *Service {
	if opts.IdeasTimeout <= 0 {
		opts.IdeasTimeout = 90 * time.Second
	}
	if opts.ScriptTimeout <= 0 {
		opts.ScriptTimeout = 180 * time.Second
	}
	if llm == nil {
		llm = (*gemini.Client)(nil)
	}
	return &Service{
		personas:   personas,
		content:    contentSvc,
		llm:        llm,
		opts:       opts,
		httpClient: &http.Client{},
	}
}

// IdeasResult - 아이디어 생성 결과
type IdeasResult struct {
	Influencer string `json:"influencer"`
	Source     string `json:"source"` // webhook, gemini
	Shape      Shape  `json:"shape"`
	Ideas      []Idea `json:"ideas"`
}

// ScriptResult - 스크립트 생성 결과
type ScriptResult struct {
	Influencer string `json:"influencer"`
	Script     string `json:"script"`
	WordCount  int    `json:"wordCount"`
}

// GenerateIdeas - GET <ideas webhook>?topic=&day= (웹훅이 없으면 Gemini)
func (s *Service) GenerateIdeas(ctx context.Context, influencer, topic, day string) (*IdeasResult, error) {
	const op = "ideas.GenerateIdeas"

	p, err := s.personas.Get(influencer)
	if err != nil {
		return nil, err
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apperr.Validationf(op, "topic is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.IdeasTimeout)
	defer cancel()

	var (
		body   []byte
		source string
	)
	switch {
	case p.IdeasWebhook != "":
		source = "webhook"
		body, err = s.callWebhook(ctx, http.MethodGet, p.IdeasWebhook, url.Values{"topic": {topic}, "day": {day}})
	case s.llm.Enabled():
		source = "gemini"
		var text string
		text, err = s.llm.GenerateText(ctx, ideasPrompt(p, topic, day))
		body = []byte(text)
	default:
		return nil, apperr.New(apperr.KindUpstream, op, "no ideas source configured for "+p.Key)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, op, err)
	}

	parsed := ParseIdeas(body)
	if len(parsed.Ideas) == 0 {
		return nil, apperr.New(apperr.KindUpstream, op, "ideas source returned no ideas")
	}

	log.Printf("💡 [Ideas] %d ideas for %s from %s (shape: %s)", len(parsed.Ideas), p.Key, source, parsed.Shape)
	return &IdeasResult{
		Influencer: p.Key,
		Source:     source,
		Shape:      parsed.Shape,
		Ideas:      parsed.Ideas,
	}, nil
}

// GenerateScript - POST <script webhook>?message=
func (s *Service) GenerateScript(ctx context.Context, influencer, message string) (*ScriptResult, error) {
	const op = "ideas.GenerateScript"

	p, err := s.personas.Get(influencer)
	if err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.Validationf(op, "message is required")
	}
	if p.ScriptWebhook == "" {
		return nil, apperr.New(apperr.KindUpstream, op, "no script webhook configured for "+p.Key)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ScriptTimeout)
	defer cancel()

	body, err := s.callWebhook(ctx, http.MethodPost, p.ScriptWebhook, url.Values{"message": {message}})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, op, err)
	}

	script := ParseScript(body)
	if script == "" {
		return nil, apperr.New(apperr.KindUpstream, op, "script webhook returned an empty script")
	}

	log.Printf("📝 [Ideas] Script generated for %s (%d words)", p.Key, len(strings.Fields(script)))
	return &ScriptResult{
		Influencer: p.Key,
		Script:     script,
		WordCount:  len(strings.Fields(script)),
	}, nil
}

// AcceptRequest - 생성된 스크립트를 캘린더에 추가
type AcceptRequest struct {
	Influencer    string `json:"influencer"`
	Topic         string `json:"topic" validate:"required"`
	ScheduledDate string `json:"scheduledDate" validate:"required"`
	Script        string `json:"script" validate:"required"`
	Category      string `json:"category"`
	ContentType   string `json:"contentType"`
	Priority      int    `json:"priority"`
	NeedsApproval bool   `json:"needsApproval"`
}

// AcceptScript - content.Create 로 위임 (needsApproval 이면 관리자 알림)
func (s *Service) AcceptScript(ctx context.Context, sess auth.Session, req AcceptRequest) (*model.ContentItem, error) {
	script := strings.TrimSpace(req.Script)
	if script == "" {
		return nil, apperr.Validationf("ideas.AcceptScript", "script is required")
	}
	return s.content.Create(ctx, sess, content.CreateInput{
		Influencer:    req.Influencer,
		Topic:         req.Topic,
		ScheduledDate: req.ScheduledDate,
		Category:      req.Category,
		ContentType:   req.ContentType,
		Priority:      req.Priority,
		ScriptContent: &script,
		NeedsApproval: req.NeedsApproval,
	})
}

// callWebhook - 쿼리 파라미터를 붙여 호출 후 body 반환 (non-2xx 는 에러)
func (s *Service) callWebhook(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call webhook: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}
	return body, nil
}

func ideasPrompt(p persona.Persona, topic, day string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are the content strategist for the influencer %s.\n", p.Name)
	fmt.Fprintf(&sb, "Suggest 5 short-form video ideas about: %s.\n", topic)
	if day != "" {
		fmt.Fprintf(&sb, "The content will be posted on %s.\n", day)
	}
	sb.WriteString(`Respond with a JSON array only, each item {"title": "...", "description": "...", "category": "..."}.`)
	return sb.String()
}

// truncate - UTF-8 문자 경계에서 자르기
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
