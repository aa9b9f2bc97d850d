package provider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smartfridge/fridgechef/internal/errors"
	"github.com/smartfridge/fridgechef/internal/inventory"
	"github.com/smartfridge/fridgechef/internal/services/ai"
	"github.com/smartfridge/fridgechef/internal/settings"
)

func newTestClient() *Client {
	return NewClient(&http.Client{Timeout: 5 * time.Second}, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

var testInventory = []inventory.Ingredient{
	{ID: "1", Name: "鸡蛋", Category: inventory.CategoryRefrigerated},
	{ID: "2", Name: "番茄", Category: inventory.CategoryRefrigerated},
}

var testPrefs = ai.Preferences{Cuisine: "中式家常", Taste: "清淡"}

const validRecipeJSON = `[{"name":"番茄炒蛋","description":"家常","difficulty":"简单","cookingTime":"15分钟","mainIngredientsUsed":["番茄","鸡蛋"],"missingIngredients":[],"steps":["鸡蛋打散，中火热油约30秒至微冒烟，倒入蛋液炒至定型。"],"failurePoints":["油温太高会老"]}]`

func TestListNativeModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("Expected GET method, got %s", r.Method)
		}
		if r.URL.Path != "/v1beta/models" {
			t.Errorf("Expected path /v1beta/models, got %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("Expected x-goog-api-key 'test-key', got '%s'", got)
		}
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("Native path must not send Authorization header, got '%s'", auth)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[
			{"name":"models/gemini-2.0-flash-exp","displayName":"Flash"},
			{"name":"models/embedding-001","displayName":"Embedding"},
			{"name":"models/gemini-pro","displayName":""}
		]}`))
	}))
	defer server.Close()

	client := newTestClient()
	models, err := client.listNativeModels(context.Background(), server.URL, "test-key")
	if err != nil {
		t.Fatalf("listNativeModels failed: %v", err)
	}

	if len(models) != 2 {
		t.Fatalf("Expected 2 models after filtering, got %d: %+v", len(models), models)
	}
	if models[0].Name != "gemini-2.0-flash-exp" || models[0].DisplayName != "Flash" {
		t.Errorf("Unexpected first model: %+v", models[0])
	}
	// Blank display names fall back to the stripped model name.
	if models[1].Name != "gemini-pro" || models[1].DisplayName != "gemini-pro" {
		t.Errorf("Unexpected second model: %+v", models[1])
	}
}

func TestListCompatibleModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("Expected path /v1/models, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected Authorization 'Bearer test-key', got '%s'", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"gpt-4o-mini"},{"id":"embedding-3-small"}]}`))
	}))
	defer server.Close()

	client := newTestClient()
	cfg := settings.AppSettings{APIURL: server.URL, APIKey: "test-key", Model: "gpt-4o-mini"}

	models, err := client.TestConnection(context.Background(), cfg)
	if err != nil {
		t.Fatalf("TestConnection failed: %v", err)
	}

	// No filtering on the compatible path.
	if len(models) != 2 {
		t.Fatalf("Expected 2 models, got %d", len(models))
	}
	if models[0].Name != "gpt-4o-mini" || models[0].DisplayName != "gpt-4o-mini" {
		t.Errorf("Unexpected model: %+v", models[0])
	}
}

func TestTestConnection_NoDoubledV1(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("Expected path /v1/models, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := newTestClient()
	// User already supplied /v1; it must not be appended again.
	cfg := settings.AppSettings{APIURL: server.URL + "/v1", APIKey: "k"}

	if _, err := client.TestConnection(context.Background(), cfg); err != nil {
		t.Fatalf("TestConnection failed: %v", err)
	}
}

func TestTestConnection_IncompleteSettings(t *testing.T) {
	client := newTestClient()

	_, err := client.TestConnection(context.Background(), settings.AppSettings{APIURL: "https://x"})
	if !errors.IsConfigurationError(err) {
		t.Fatalf("Expected ConfigurationError, got %v", err)
	}
}

func TestGenerateNative(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST method, got %s", r.Method)
		}
		if r.URL.Path != "/v1beta/models/gemini-2.0-flash-exp:generateContent" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("Expected x-goog-api-key header, got '%s'", got)
		}

		body, _ := io.ReadAll(r.Body)
		var req nativeGenerateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("Request body is not valid JSON: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 1 {
			t.Fatalf("Expected a single content part, got %+v", req.Contents)
		}
		// System and user prompts are joined into the one part.
		text := req.Contents[0].Parts[0].Text
		if !strings.Contains(text, "烹饪导师") || !strings.Contains(text, "鸡蛋") {
			t.Error("Expected both prompts in the single part")
		}
		if req.GenerationConfig.Temperature != 0.7 {
			t.Errorf("Expected temperature 0.7, got %v", req.GenerationConfig.Temperature)
		}
		if req.GenerationConfig.ResponseMIMEType != "application/json" {
			t.Errorf("Expected JSON response mode hint, got %q", req.GenerationConfig.ResponseMIMEType)
		}

		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": validRecipeJSON}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := newTestClient()
	cfg := settings.AppSettings{APIURL: server.URL, APIKey: "test-key", Model: "gemini-2.0-flash-exp"}

	prompts := ai.Build(testInventory, testPrefs)
	text, err := client.generateNative(context.Background(), server.URL, cfg, prompts)
	if err != nil {
		t.Fatalf("generateNative failed: %v", err)
	}
	if text != validRecipeJSON {
		t.Errorf("Unexpected extracted text: %q", text)
	}
}

func TestGenerateCompatible(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got '%s'", got)
		}

		body, _ := io.ReadAll(r.Body)
		var req chatRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("Request body is not valid JSON: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("Expected model gpt-4o-mini, got %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Fatalf("Expected system+user messages, got %+v", req.Messages)
		}
		if req.Temperature != 0.7 {
			t.Errorf("Expected temperature 0.7, got %v", req.Temperature)
		}
		if req.ResponseFormat.Type != "json_object" {
			t.Errorf("Expected json_object response format, got %q", req.ResponseFormat.Type)
		}

		// Fenced output despite the JSON hint; the parser must cope.
		content := "```json\n" + validRecipeJSON + "\n```"
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := newTestClient()
	cfg := settings.AppSettings{APIURL: server.URL, APIKey: "test-key", Model: "gpt-4o-mini"}

	recipes, err := client.Generate(context.Background(), testInventory, testPrefs, cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(recipes) != 1 {
		t.Fatalf("Expected 1 recipe, got %d", len(recipes))
	}
	if recipes[0].Name != "番茄炒蛋" {
		t.Errorf("Unexpected recipe name %q", recipes[0].Name)
	}
}

func TestGenerate_HTTPErrorWithMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer server.Close()

	client := newTestClient()
	cfg := settings.AppSettings{APIURL: server.URL + "/v1", APIKey: "bad", Model: "gpt-4o-mini"}

	_, err := client.Generate(context.Background(), testInventory, testPrefs, cfg)
	if !errors.IsConnectionError(err) {
		t.Fatalf("Expected ConnectionError, got %v", err)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("Expected message to contain the status code, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "invalid key") {
		t.Errorf("Expected message to contain the server message, got %q", err.Error())
	}
}

func TestGenerate_HTTPErrorWithRawBody(t *testing.T) {
	longBody := strings.Repeat("x", 500)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(longBody))
	}))
	defer server.Close()

	client := newTestClient()
	cfg := settings.AppSettings{APIURL: server.URL, APIKey: "k", Model: "m"}

	_, err := client.Generate(context.Background(), testInventory, testPrefs, cfg)
	if !errors.IsConnectionError(err) {
		t.Fatalf("Expected ConnectionError, got %v", err)
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("Expected message to contain the status code, got %q", err.Error())
	}
	// Raw body excerpt is capped at roughly 100 characters.
	if len(err.Error()) > 200 {
		t.Errorf("Expected a truncated body excerpt, message has %d chars", len(err.Error()))
	}
}

func TestGenerate_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := newTestClient()
	cfg := settings.AppSettings{APIURL: server.URL, APIKey: "k", Model: "m"}

	_, err := client.Generate(context.Background(), testInventory, testPrefs, cfg)
	if !errors.IsConnectionError(err) {
		t.Fatalf("Expected ConnectionError for a network failure, got %v", err)
	}
}

func TestGenerate_EmptyResponse(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"empty content", `{"choices":[{"message":{"role":"assistant","content":""}}]}`},
		{"missing message", `{"choices":[{}]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := newTestClient()
			cfg := settings.AppSettings{APIURL: server.URL, APIKey: "k", Model: "m"}

			_, err := client.Generate(context.Background(), testInventory, testPrefs, cfg)
			if !errors.IsEmptyResponseError(err) {
				t.Fatalf("Expected EmptyResponseError, got %v", err)
			}
		})
	}
}

func TestGenerateNative_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := newTestClient()
	cfg := settings.AppSettings{APIURL: server.URL, APIKey: "k", Model: "m"}

	prompts := ai.Build(testInventory, testPrefs)
	_, err := client.generateNative(context.Background(), server.URL, cfg, prompts)
	if !errors.IsEmptyResponseError(err) {
		t.Fatalf("Expected EmptyResponseError, got %v", err)
	}
}

func TestGenerate_Preflight(t *testing.T) {
	client := newTestClient()

	t.Run("incomplete settings", func(t *testing.T) {
		_, err := client.Generate(context.Background(), testInventory, testPrefs, settings.AppSettings{})
		if !errors.IsConfigurationError(err) {
			t.Fatalf("Expected ConfigurationError, got %v", err)
		}
	})

	t.Run("empty inventory", func(t *testing.T) {
		cfg := settings.AppSettings{APIURL: "https://api.example.com", APIKey: "k", Model: "m"}
		_, err := client.Generate(context.Background(), nil, testPrefs, cfg)
		if !errors.IsConfigurationError(err) {
			t.Fatalf("Expected ConfigurationError, got %v", err)
		}
	})
}

func TestGenerate_UnparseableText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "今天的食材不太适合做菜呢。"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := newTestClient()
	cfg := settings.AppSettings{APIURL: server.URL, APIKey: "k", Model: "m"}

	_, err := client.Generate(context.Background(), testInventory, testPrefs, cfg)
	if !errors.IsParseError(err) {
		t.Fatalf("Expected ParseError, got %v", err)
	}
}
