package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// generateFunc - 키 하나로 텍스트 생성 1회
type generateFunc func(ctx context.Context, apiKey, model, prompt string) (string, error)

// Client - 여러 API 키를 돌려가며 429 시 재시도하는 Gemini 텍스트 클라이언트
type Client struct {
	apiKeys          []string
	model            string
	maxRetriesPerKey int
	retryWait        time.Duration
	generate         generateFunc
}

// NewClient - Client 생성
func NewClient(apiKeys []string, model string) *Client {
	keys := make([]string, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return &Client{
		apiKeys:          keys,
		model:            model,
		maxRetriesPerKey: 3,
		retryWait:        2 * time.Second,
		generate:         generateText,
	}
}

// Enabled - API 키가 하나라도 있는지
func (c *Client) Enabled() bool {
	return c != nil && len(c.apiKeys) > 0
}

// GenerateText - 429 에러 시 여러 API 키로 재시도 (각 키당 최대 3번)
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if len(c.apiKeys) == 0 {
		return "", fmt.Errorf("no API keys provided")
	}

	var lastErr error

	for keyIndex, apiKey := range c.apiKeys {
		log.Printf("🔑 [Gemini Retry] Trying API key #%d/%d", keyIndex+1, len(c.apiKeys))

		for attempt := 1; attempt <= c.maxRetriesPerKey; attempt++ {
			if attempt > 1 {
				log.Printf("   🔄 Retry attempt %d/%d for key #%d", attempt, c.maxRetriesPerKey, keyIndex+1)
			}

			text, err := c.generate(ctx, apiKey, c.model, prompt)
			if err == nil {
				log.Printf("✅ [Gemini Retry] Success with API key #%d (attempt %d/%d)", keyIndex+1, attempt, c.maxRetriesPerKey)
				return text, nil
			}

			lastErr = err

			// 429가 아닌 다른 에러면 바로 반환 (재시도 안 함)
			if !is429Error(err) {
				log.Printf("❌ [Gemini Retry] Key #%d failed with non-429 error: %v", keyIndex+1, err)
				return "", err
			}

			log.Printf("⚠️  [Gemini Retry] Key #%d hit rate limit (429) on attempt %d/%d", keyIndex+1, attempt, c.maxRetriesPerKey)

			if attempt < c.maxRetriesPerKey {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(c.retryWait):
				}
			}
		}

		log.Printf("⚠️  [Gemini Retry] Key #%d exhausted all %d attempts, trying next key...", keyIndex+1, c.maxRetriesPerKey)
	}

	return "", fmt.Errorf("all %d API keys exhausted (%d attempts each), last error: %w", len(c.apiKeys), c.maxRetriesPerKey, lastErr)
}

// generateText - generative-ai-go 로 1회 호출 후 텍스트 part 이어붙이기
func generateText(ctx context.Context, apiKey, model, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	resp, err := client.GenerativeModel(model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("gemini returned no text")
	}
	return sb.String(), nil
}

// is429Error - 429 Rate Limit 에러인지 확인
func is429Error(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "resourceexhausted") ||
		strings.Contains(errStr, "resource_exhausted")
}
