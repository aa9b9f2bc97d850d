package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/smartfridge/fridgechef/internal/errors"
	"github.com/smartfridge/fridgechef/internal/services/ai"
	"github.com/smartfridge/fridgechef/internal/settings"
)

// The native protocol authenticates through a vendor header rather than
// a bearer token.
const nativeAPIKeyHeader = "x-goog-api-key"

// nativeModelFilters keeps the listing usable: the native endpoint
// reports embedding and vision models alongside text generation ones.
// Substring match, OR semantics — a noise filter, not validation.
var nativeModelFilters = []string{"gemini", "flash", "pro"}

type nativeGenerateRequest struct {
	Contents         []nativeContent        `json:"contents"`
	GenerationConfig nativeGenerationConfig `json:"generationConfig"`
}

type nativeContent struct {
	Parts []nativePart `json:"parts"`
}

type nativePart struct {
	Text string `json:"text"`
}

type nativeGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType"`
}

type nativeGenerateResponse struct {
	Candidates []struct {
		Content nativeContent `json:"content"`
	} `json:"candidates"`
}

type nativeModelsResponse struct {
	Models []struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	} `json:"models"`
}

// listNativeModels fetches GET {base}/v1beta/models and maps the result
// to ModelOptions, stripping the "models/" prefix and filtering to
// generation-relevant names.
func (c *Client) listNativeModels(ctx context.Context, base, apiKey string) ([]ModelOption, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/v1beta/models", nil)
	if err != nil {
		return nil, errors.NewConnectionError("无法构造请求", 0, err)
	}
	req.Header.Set(nativeAPIKeyHeader, apiKey)

	body, err := c.do(ctx, KindNative, req, "连接失败")
	if err != nil {
		return nil, err
	}

	var parsed nativeModelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.NewConnectionError("模型列表响应无法解析", 0, err)
	}

	var options []ModelOption
	for _, m := range parsed.Models {
		name := strings.TrimPrefix(m.Name, "models/")
		if !matchesNativeFilter(name) {
			continue
		}
		display := m.DisplayName
		if display == "" {
			display = name
		}
		options = append(options, ModelOption{Name: name, DisplayName: display})
	}
	return options, nil
}

func matchesNativeFilter(name string) bool {
	for _, marker := range nativeModelFilters {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// generateNative POSTs {base}/v1beta/models/{model}:generateContent with
// the system and user prompts joined into a single content part, and
// returns the extracted candidate text.
func (c *Client) generateNative(ctx context.Context, base string, cfg settings.AppSettings, prompts ai.Prompts) (string, error) {
	payload := nativeGenerateRequest{
		Contents: []nativeContent{
			{Parts: []nativePart{{Text: prompts.System + "\n" + prompts.User}}},
		},
		GenerationConfig: nativeGenerationConfig{
			Temperature:      generationTemperature,
			ResponseMIMEType: "application/json",
		},
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", errors.NewConnectionError("无法编码请求", 0, err)
	}

	url := base + "/v1beta/models/" + cfg.Model + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", errors.NewConnectionError("无法构造请求", 0, err)
	}
	req.Header.Set(nativeAPIKeyHeader, cfg.APIKey)

	body, err := c.do(ctx, KindNative, req, "API 请求失败")
	if err != nil {
		return "", err
	}

	var parsed nativeGenerateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.NewConnectionError("生成响应无法解析", 0, err)
	}

	// Extraction path: candidates[0].content.parts[0].text. Absence at
	// any level is an empty result, not a crash.
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 ||
		parsed.Candidates[0].Content.Parts[0].Text == "" {
		return "", errors.NewEmptyResponseError("API 返回了空内容。")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
