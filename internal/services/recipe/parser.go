package recipe

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smartfridge/fridgechef/internal/errors"
)

// Parse extracts a JSON array of recipes from raw model output.
//
// Models are instructed to return a bare JSON array, but in practice the
// text may arrive wrapped in a fenced code block or framed by prose, so
// the parser strips fences and slices the text to the outermost
// brackets before decoding. After decoding, every recipe is checked for
// the fields downstream display and saving depend on.
func Parse(raw string) ([]Recipe, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, errors.NewParseError("模型未返回任何文本", raw, nil)
	}

	text = stripFences(text)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start != -1 && end != -1 && start < end {
		text = text[start : end+1]
	}

	var recipes []Recipe
	if err := json.Unmarshal([]byte(text), &recipes); err != nil {
		return nil, errors.NewParseError("模型返回的不是有效的 JSON 数组", raw, err)
	}

	if err := validate(recipes); err != nil {
		return nil, errors.NewParseError(err.Error(), raw, nil)
	}
	return recipes, nil
}

// stripFences removes a surrounding markdown code fence, with or without
// a language tag.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Drop the language tag line ("json", "JSON", ...) if present.
	if idx := strings.Index(text, "\n"); idx != -1 {
		firstLine := strings.TrimSpace(text[:idx])
		if firstLine != "" && !strings.ContainsAny(firstLine, "[]{}") {
			text = text[idx+1:]
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// validate rejects recipes the UI and favorites store cannot work with.
// An empty array is fine; the three-recipe target is a prompt hint, not
// a contract.
func validate(recipes []Recipe) error {
	for i, r := range recipes {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("第 %d 个食谱缺少 name 字段", i+1)
		}
		if len(r.Steps) == 0 {
			return fmt.Errorf("食谱 %q 缺少 steps", r.Name)
		}
		for j, step := range r.Steps {
			if strings.TrimSpace(step) == "" {
				return fmt.Errorf("食谱 %q 的第 %d 步为空", r.Name, j+1)
			}
		}
	}
	return nil
}
