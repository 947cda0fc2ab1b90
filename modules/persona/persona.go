package persona

import (
	"fmt"
	"sort"
	"strings"

	"persona-studio-server/modules/common/apperr"
)

// Persona - 인플루언서별 설정 (페이지 복붙 대신 설정으로 구분)
type Persona struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	Character     string `json:"character"` // 영상 벤더에 전달되는 캐릭터 ID
	IdeasWebhook  string `json:"-"`
	ScriptWebhook string `json:"-"`
}

// 기본 페르소나
var defaults = []Persona{
	{Key: "kaira", Name: "Kaira", Character: "kaira"},
	{Key: "aisha", Name: "Aisha", Character: "aisha"},
	{Key: "bailey", Name: "Bailey", Character: "bailey"},
	{Key: "mayra", Name: "Mayra", Character: "mayra"},
}

// Registry - key → Persona
type Registry struct {
	personas map[string]Persona
}

// NewRegistry - 주어진 페르소나로 Registry 생성
func NewRegistry(personas ...Persona) *Registry {
	r := &Registry{personas: map[string]Persona{}}
	for _, p := range personas {
		p.Key = strings.ToLower(p.Key)
		r.personas[p.Key] = p
	}
	return r
}

// DefaultRegistry - 기본 페르소나만 등록된 Registry
func DefaultRegistry() *Registry {
	return NewRegistry(defaults...)
}

// LoadRegistry - 기본 페르소나 + 환경변수 webhook 오버라이드
//   PERSONA_<KEY>_IDEAS_WEBHOOK, PERSONA_<KEY>_SCRIPT_WEBHOOK, PERSONA_<KEY>_CHARACTER
func LoadRegistry(getenv func(string) string) *Registry {
	personas := make([]Persona, 0, len(defaults))
	for _, p := range defaults {
		prefix := fmt.Sprintf("PERSONA_%s_", strings.ToUpper(p.Key))
		if v := getenv(prefix + "IDEAS_WEBHOOK"); v != "" {
			p.IdeasWebhook = v
		}
		if v := getenv(prefix + "SCRIPT_WEBHOOK"); v != "" {
			p.ScriptWebhook = v
		}
		if v := getenv(prefix + "CHARACTER"); v != "" {
			p.Character = v
		}
		personas = append(personas, p)
	}
	return NewRegistry(personas...)
}

// Get - key 로 페르소나 조회 (대소문자 무시)
func (r *Registry) Get(key string) (Persona, error) {
	p, ok := r.personas[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Persona{}, apperr.Validationf("persona.Get", "unknown influencer: %q", key)
	}
	return p, nil
}

// All - key 순으로 정렬된 페르소나 목록
func (r *Registry) All() []Persona {
	out := make([]Persona, 0, len(r.personas))
	for _, p := range r.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
