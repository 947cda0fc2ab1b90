package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestGenerateTextRotatesKeysOn429(t *testing.T) {
	c := NewClient([]string{"k1", " ", "k2"}, "gemini-test")
	c.retryWait = 0

	var calls []string
	c.generate = func(ctx context.Context, apiKey, model, prompt string) (string, error) {
		calls = append(calls, apiKey)
		if apiKey == "k1" {
			return "", &googleapi.Error{Code: 429, Message: "slow down"}
		}
		return "ideas", nil
	}

	text, err := c.GenerateText(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ideas", text)
	assert.Equal(t, []string{"k1", "k1", "k1", "k2"}, calls)
}

func TestGenerateTextStopsOnOtherErrors(t *testing.T) {
	c := NewClient([]string{"k1", "k2"}, "gemini-test")
	calls := 0
	c.generate = func(ctx context.Context, apiKey, model, prompt string) (string, error) {
		calls++
		return "", errors.New("invalid argument")
	}

	_, err := c.GenerateText(context.Background(), "prompt")
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestGenerateTextAllKeysExhausted(t *testing.T) {
	c := NewClient([]string{"k1"}, "gemini-test")
	c.retryWait = 0
	c.generate = func(ctx context.Context, apiKey, model, prompt string) (string, error) {
		return "", errors.New("RESOURCE_EXHAUSTED: quota exceeded")
	}

	_, err := c.GenerateText(context.Background(), "prompt")
	assert.ErrorContains(t, err, "exhausted")
}

func TestEnabled(t *testing.T) {
	assert.False(t, NewClient(nil, "m").Enabled())
	assert.False(t, NewClient([]string{""}, "m").Enabled())
	assert.True(t, NewClient([]string{"k"}, "m").Enabled())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
}
