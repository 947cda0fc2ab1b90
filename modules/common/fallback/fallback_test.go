package fallback

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeString(t *testing.T) {
	assert.Equal(t, "hi", SafeString("  hi ", "x"))
	assert.Equal(t, "x", SafeString("   ", "x"))
	assert.Equal(t, "x", SafeString(42, "x"))
	assert.Equal(t, "x", SafeString(nil, "x"))
}

func TestSafeInt(t *testing.T) {
	assert.Equal(t, 3, SafeInt(float64(3.7), 1))
	assert.Equal(t, 5, SafeInt(json.Number("5"), 1))
	assert.Equal(t, 7, SafeInt(" 7 ", 1))
	assert.Equal(t, 1, SafeInt(-2, 1))
	assert.Equal(t, 1, SafeInt("abc", 1))
	assert.Equal(t, 2, SafeInt("2.0", 1))
	assert.Equal(t, 1, SafeInt(0.5, 1))
	assert.Equal(t, 1, SafeInt("NaN", 1))
	assert.Equal(t, 1, SafeInt(true, 1))
}

func TestFirstString(t *testing.T) {
	m := map[string]interface{}{"title": " ", "idea": "Studio tour", "topic": "ignored"}
	assert.Equal(t, "Studio tour", FirstString(m, "title", "idea", "topic"))
	assert.Equal(t, "", FirstString(m, "missing"))
}

func TestSafeStringList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SafeStringList([]interface{}{"a", "", 3, " b "}))
	assert.Equal(t, []string{"one"}, SafeStringList("one"))
	assert.Equal(t, []string{}, SafeStringList(nil))
}
