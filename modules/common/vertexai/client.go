package vertexai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// Client - Vertex AI Gemini 텍스트 생성 (아이디어 생성용)
type Client struct {
	genai *genai.Client
	model string
}

// credentialOptions - VERTEXAI_CREDENTIALS_JSON > VERTEXAI_CREDENTIALS_PATH > ADC 순서
func credentialOptions(getenv func(string) string) ([]option.ClientOption, error) {
	if credsJSON := getenv("VERTEXAI_CREDENTIALS_JSON"); credsJSON != "" {
		log.Println("✅ [VertexAI] Using VERTEXAI_CREDENTIALS_JSON from environment")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credsJSON))}, nil
	}

	if credsPath := getenv("VERTEXAI_CREDENTIALS_PATH"); credsPath != "" {
		log.Printf("✅ [VertexAI] Using credentials from file: %s", credsPath)
		credsData, err := os.ReadFile(credsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		var creds map[string]interface{}
		if err := json.Unmarshal(credsData, &creds); err != nil {
			return nil, fmt.Errorf("invalid JSON credentials: %w", err)
		}
		return []option.ClientOption{option.WithCredentialsJSON(credsData)}, nil
	}

	log.Println("⚠️  [VertexAI] No explicit credentials found, using Application Default Credentials")
	return nil, nil
}

// NewClient - Vertex AI 클라이언트 생성
func NewClient(ctx context.Context, project, location, model string) (*Client, error) {
	if project == "" {
		return nil, errors.New("vertex ai project is required")
	}
	if location == "" {
		location = "us-central1"
	}

	opts, err := credentialOptions(os.Getenv)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, project, location, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	log.Printf("✅ [VertexAI] Client initialized for project=%s, location=%s, model=%s", project, location, model)
	return &Client{genai: client, model: model}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.genai != nil
}

// GenerateText - 프롬프트 1회 호출 후 텍스트 part 이어붙이기
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", errors.New("vertex ai client not initialized")
	}

	resp, err := c.genai.GenerativeModel(c.model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("vertex ai generate failed: %w", err)
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
		return "", errors.New("vertex ai returned no text")
	}
	return sb.String(), nil
}

func (c *Client) Close() error {
	if c == nil || c.genai == nil {
		return nil
	}
	return c.genai.Close()
}
