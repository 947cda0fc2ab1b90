package ideas

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"persona-studio-server/modules/common/fallback"
)

// Shape - 웹훅 응답 형태
type Shape string

const (
	ShapeArray  Shape = "array"  // [...]
	ShapeObject Shape = "object" // {"ideas": [...]}
	ShapeFenced Shape = "fenced" // ```json ... ```
	ShapeLines  Shape = "lines"  // 자유 텍스트, 줄 단위
)

// Idea - 콘텐츠 아이디어
type Idea struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Priority    int    `json:"priority,omitempty"` // 1~3, 0 이면 미지정
}

// Parsed - 파싱 결과 (어떤 형태로 인식했는지 포함)
type Parsed struct {
	Shape Shape  `json:"shape"`
	Ideas []Idea `json:"ideas"`
}

var (
	fencePattern  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	bulletPattern = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s*`)
)

// ParseIdeas - 배열 → {ideas} → 코드펜스 JSON → 줄 단위 순서로 시도
func ParseIdeas(body []byte) Parsed {
	trimmed := bytes.TrimSpace(body)

	if ideas, ok := parseArray(trimmed); ok {
		return Parsed{Shape: ShapeArray, Ideas: ideas}
	}
	if ideas, ok := parseObject(trimmed); ok {
		return Parsed{Shape: ShapeObject, Ideas: ideas}
	}
	if m := fencePattern.FindSubmatch(trimmed); m != nil {
		inner := bytes.TrimSpace(m[1])
		if ideas, ok := parseArray(inner); ok {
			return Parsed{Shape: ShapeFenced, Ideas: ideas}
		}
		if ideas, ok := parseObject(inner); ok {
			return Parsed{Shape: ShapeFenced, Ideas: ideas}
		}
	}
	return Parsed{Shape: ShapeLines, Ideas: parseLines(string(trimmed))}
}

func parseArray(data []byte) ([]Idea, bool) {
	if len(data) == 0 || data[0] != '[' {
		return nil, false
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}
	return toIdeas(raw), true
}

func parseObject(data []byte) ([]Idea, bool) {
	if len(data) == 0 || data[0] != '{' {
		return nil, false
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}
	list, ok := raw["ideas"].([]interface{})
	if !ok {
		return nil, false
	}
	return toIdeas(list), true
}

func toIdeas(raw []interface{}) []Idea {
	ideas := []Idea{}
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			if title := strings.TrimSpace(v); title != "" {
				ideas = append(ideas, Idea{Title: title})
			}
		case map[string]interface{}:
			title := fallback.FirstString(v, "title", "idea", "topic", "name")
			if title == "" {
				continue
			}
			ideas = append(ideas, Idea{
				Title:       title,
				Description: fallback.FirstString(v, "description", "details", "hook"),
				Category:    fallback.SafeString(v["category"], ""),
				Priority:    priorityOf(v["priority"]),
			})
		}
	}
	return ideas
}

// priorityOf - 웹훅이 숫자/문자열로 보내는 우선순위를 1~3 으로
func priorityOf(v interface{}) int {
	p := fallback.SafeInt(v, 0)
	if p > 3 {
		return 3
	}
	return p
}

// parseLines - 빈 줄, 코드펜스, 제목(#), 콜론으로 끝나는 머리말 제외
func parseLines(text string) []Idea {
	ideas := []Idea{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") || strings.HasPrefix(line, "#") || strings.HasSuffix(line, ":") {
			continue
		}
		line = strings.TrimSpace(bulletPattern.ReplaceAllString(line, ""))
		line = strings.Trim(line, `"*`)
		if line == "" {
			continue
		}
		ideas = append(ideas, Idea{Title: line})
	}
	return ideas
}

// ParseScript - {output} / [{output}] / {script} / "..." / 원문 텍스트
func ParseScript(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if m := fencePattern.FindSubmatch(trimmed); m != nil && !json.Valid(trimmed) {
		trimmed = bytes.TrimSpace(m[1])
	}

	var v interface{}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return string(trimmed)
	}

	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]interface{}:
		if s := fallback.FirstString(t, "output", "script", "text", "content"); s != "" {
			return s
		}
	case []interface{}:
		for _, item := range t {
			if m, ok := item.(map[string]interface{}); ok {
				if s := fallback.FirstString(m, "output", "script", "text", "content"); s != "" {
					return s
				}
			}
			if s := fallback.SafeString(item, ""); s != "" {
				return s
			}
		}
	}
	return string(trimmed)
}
