package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/smartfridge/fridgechef/internal/errors"
	"github.com/smartfridge/fridgechef/internal/services/ai"
	"github.com/smartfridge/fridgechef/internal/settings"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string             `json:"model"`
	Messages       []chatMessage      `json:"messages"`
	Temperature    float64            `json:"temperature"`
	ResponseFormat chatResponseFormat `json:"response_format"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type compatibleModelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// listCompatibleModels fetches GET {base}/v1/models with bearer auth.
// Every reported id becomes an option; compatible endpoints are assumed
// to list only what they serve, so there is no filtering.
func (c *Client) listCompatibleModels(ctx context.Context, base, apiKey string) ([]ModelOption, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, compatibleBase(base)+"/models", nil)
	if err != nil {
		return nil, errors.NewConnectionError("无法构造请求", 0, err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	body, err := c.do(ctx, KindCompatible, req, "连接失败")
	if err != nil {
		return nil, err
	}

	var parsed compatibleModelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.NewConnectionError("模型列表响应无法解析", 0, err)
	}

	var options []ModelOption
	for _, m := range parsed.Data {
		options = append(options, ModelOption{Name: m.ID, DisplayName: m.ID})
	}
	return options, nil
}

// generateCompatible POSTs {base}/v1/chat/completions with separate
// system and user role messages. The json_object response format is a
// best-effort hint; some providers ignore it, which is why the parser
// downstream still strips fences and prose.
func (c *Client) generateCompatible(ctx context.Context, base string, cfg settings.AppSettings, prompts ai.Prompts) (string, error) {
	payload := chatRequest{
		Model: cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.System},
			{Role: "user", Content: prompts.User},
		},
		Temperature:    generationTemperature,
		ResponseFormat: chatResponseFormat{Type: "json_object"},
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", errors.NewConnectionError("无法编码请求", 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, compatibleBase(base)+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", errors.NewConnectionError("无法构造请求", 0, err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	body, err := c.do(ctx, KindCompatible, req, "API 请求失败")
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.NewConnectionError("生成响应无法解析", 0, err)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", errors.NewEmptyResponseError("API 返回了空内容。")
	}
	return parsed.Choices[0].Message.Content, nil
}
