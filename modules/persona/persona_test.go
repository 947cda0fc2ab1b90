package persona

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona-studio-server/modules/common/apperr"
)

func TestLoadRegistryOverrides(t *testing.T) {
	env := map[string]string{
		"PERSONA_KAIRA_IDEAS_WEBHOOK":  "https://n8n.example.com/webhook/kaira-ideas",
		"PERSONA_BAILEY_SCRIPT_WEBHOOK": "https://n8n.example.com/webhook/bailey-script",
		"PERSONA_MAYRA_CHARACTER":       "mayra_v2",
	}
	r := LoadRegistry(func(k string) string { return env[k] })

	kaira, err := r.Get("Kaira")
	require.NoError(t, err)
	assert.Equal(t, "https://n8n.example.com/webhook/kaira-ideas", kaira.IdeasWebhook)
	assert.Empty(t, kaira.ScriptWebhook)

	bailey, err := r.Get("bailey")
	require.NoError(t, err)
	assert.Equal(t, "https://n8n.example.com/webhook/bailey-script", bailey.ScriptWebhook)

	mayra, err := r.Get(" MAYRA ")
	require.NoError(t, err)
	assert.Equal(t, "mayra_v2", mayra.Character)

	keys := []string{}
	for _, p := range r.All() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"aisha", "bailey", "kaira", "mayra"}, keys)
}

func TestGetUnknownPersona(t *testing.T) {
	r := NewRegistry(Persona{Key: "kaira", Name: "Kaira"})
	_, err := r.Get("zed")
	assert.ErrorIs(t, err, apperr.Validation)
}

func TestHandleListHidesWebhooks(t *testing.T) {
	r := NewRegistry(Persona{Key: "Kaira", Name: "Kaira", Character: "kaira", IdeasWebhook: "https://secret.example.com"})

	rec := httptest.NewRecorder()
	r.HandleList(rec, httptest.NewRequest(http.MethodGet, "/api/personas", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret.example.com")

	var resp struct {
		Data []Persona `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "kaira", resp.Data[0].Key)
}

func TestDefaultRegistry(t *testing.T) {
	keys := []string{}
	for _, p := range DefaultRegistry().All() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"aisha", "bailey", "kaira", "mayra"}, keys)
}
