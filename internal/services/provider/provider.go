// Package provider is the adapter between the app and the external
// generative-text endpoint. It speaks two incompatible wire protocols —
// the native vendor API and the OpenAI-compatible chat API — behind one
// interface, and normalizes every outcome into a provider-agnostic
// result or a classified error.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartfridge/fridgechef/internal/errors"
	"github.com/smartfridge/fridgechef/internal/httpclient"
	"github.com/smartfridge/fridgechef/internal/inventory"
	"github.com/smartfridge/fridgechef/internal/logger"
	"github.com/smartfridge/fridgechef/internal/services/ai"
	"github.com/smartfridge/fridgechef/internal/services/recipe"
	"github.com/smartfridge/fridgechef/internal/settings"
)

// generationTemperature is requested from both provider kinds.
const generationTemperature = 0.7

// ModelOption is one selectable model as reported by the provider.
type ModelOption struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
}

// Client talks to whichever provider the settings point at. Settings are
// passed by value into every call; the client itself holds no
// connection state.
type Client struct {
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a provider client on top of an instrumented HTTP
// client.
func NewClient(httpClient *http.Client, log *slog.Logger) *Client {
	return &Client{httpClient: httpClient, log: log}
}

// TestConnection lists the models available behind the configured
// endpoint. It is the connectivity check the settings UI runs.
func (c *Client) TestConnection(ctx context.Context, cfg settings.AppSettings) ([]ModelOption, error) {
	if !cfg.IsComplete() {
		return nil, errors.NewConfigurationError("请先配置 API 地址和密钥")
	}

	base := NormalizeBaseURL(cfg.APIURL)
	kind := KindFor(base)

	requestID := uuid.NewString()
	c.log.Debug("listing models", "request_id", requestID, "kind", string(kind), logger.WithTraceContext(ctx))

	var (
		models []ModelOption
		err    error
	)
	switch kind {
	case KindNative:
		models, err = c.listNativeModels(ctx, base, cfg.APIKey)
	default:
		models, err = c.listCompatibleModels(ctx, base, cfg.APIKey)
	}
	if err != nil {
		c.log.Warn("model listing failed", "request_id", requestID, "error", err, logger.WithTraceContext(ctx))
		return nil, err
	}

	c.log.Debug("model listing succeeded", "request_id", requestID, "count", len(models), logger.WithTraceContext(ctx))
	return models, nil
}

// Generate asks the provider for recipe suggestions constrained by the
// current inventory and the user's preferences. No retries: a failed
// call surfaces immediately.
func (c *Client) Generate(ctx context.Context, ingredients []inventory.Ingredient, prefs ai.Preferences, cfg settings.AppSettings) ([]recipe.Recipe, error) {
	if !cfg.IsComplete() {
		return nil, errors.NewConfigurationError("请先在设置中配置 API 连接信息！")
	}
	if len(ingredients) == 0 {
		return nil, errors.NewConfigurationError("请先添加一些食材到冰箱！")
	}

	base := NormalizeBaseURL(cfg.APIURL)
	kind := KindFor(base)
	prompts := ai.Build(ingredients, prefs)

	requestID := uuid.NewString()
	start := time.Now()
	c.log.Debug("generating recipes",
		"request_id", requestID,
		"kind", string(kind),
		"model", cfg.Model,
		"ingredients", len(ingredients),
		logger.WithTraceContext(ctx),
	)

	var (
		text string
		err  error
	)
	switch kind {
	case KindNative:
		text, err = c.generateNative(ctx, base, cfg, prompts)
	default:
		text, err = c.generateCompatible(ctx, base, cfg, prompts)
	}
	if err != nil {
		c.log.Warn("generation failed",
			"request_id", requestID,
			"duration", time.Since(start),
			"error", err,
			logger.WithTraceContext(ctx),
		)
		return nil, err
	}

	recipes, err := recipe.Parse(text)
	if err != nil {
		// The raw text goes to the log, not to the user.
		c.log.Error("failed to parse model output",
			"request_id", requestID,
			"raw_text", text,
			"error", err,
			logger.WithTraceContext(ctx),
		)
		return nil, err
	}

	c.log.Info("generation succeeded",
		"request_id", requestID,
		"duration", time.Since(start),
		"recipes", len(recipes),
		logger.WithTraceContext(ctx),
	)
	return recipes, nil
}

// do sends the request and classifies the outcome. Any non-2xx status
// or transport failure becomes a connection error; success returns the
// raw body for the caller to decode.
func (c *Client) do(ctx context.Context, kind Kind, req *http.Request, failurePrefix string) ([]byte, error) {
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req.WithContext(httpclient.WithProvider(ctx, string(kind))))
	if err != nil {
		return nil, errors.NewConnectionError("无法连接到服务器", 0, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, errors.NewConnectionError("读取响应失败", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpStatusError(failurePrefix, resp.StatusCode, body)
	}
	return body, nil
}

// httpStatusError builds the user-visible message for a non-success
// status: the status code plus the server's error.message when the body
// is the conventional JSON error envelope, otherwise a capped excerpt
// of the raw body.
func httpStatusError(prefix string, status int, body []byte) *errors.AppError {
	msg := fmt.Sprintf("%s (%d)", prefix, status)

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		msg += ": " + envelope.Error.Message
	} else if excerpt := bodyExcerpt(body); excerpt != "" {
		msg += ": " + excerpt
	}

	return errors.NewConnectionError(msg, status, nil)
}

// bodyExcerpt caps a raw error body at ~100 characters so provider HTML
// error pages do not flood the UI.
func bodyExcerpt(body []byte) string {
	const maxLen = 100
	excerpt := []rune(strings.TrimSpace(string(body)))
	if len(excerpt) > maxLen {
		excerpt = excerpt[:maxLen]
	}
	return string(excerpt)
}

func readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(resp.Body)
}
