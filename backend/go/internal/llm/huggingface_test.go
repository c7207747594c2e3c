package llm

import (
	"EnterpriseAgent/backend/go/internal/config"
	"EnterpriseAgent/backend/go/internal/models"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuggingFaceGenerateContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/mistral", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sys\n\nhello", body["inputs"])
		_, _ = w.Write([]byte(`[{"generated_text":"hi there"}]`))
	}))
	defer srv.Close()

	h, err := NewHuggingFace("mistral", "secret", srv.URL+"/models")
	require.NoError(t, err)
	resp, err := h.GenerateContent(context.Background(), models.NewTextRequest("sys", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Text())
}

func TestHuggingFaceNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"loading"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h, err := NewHuggingFace("m", "k", srv.URL+"/")
	require.NoError(t, err)
	_, err = h.GenerateContent(context.Background(), models.NewTextRequest("", "hello"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), configFor("bogus", "m"))
	assert.Error(t, err)
	_, err = NewClient(context.Background(), configFor("openai", ""))
	assert.Error(t, err)

	c, err := NewClient(context.Background(), configFor("ollama", "llama3"))
	require.NoError(t, err)
	assert.IsType(t, &Ollama{}, c)
}

func configFor(provider, model string) config.LLMConfig {
	return config.LLMConfig{Provider: provider, Model: model}
}
