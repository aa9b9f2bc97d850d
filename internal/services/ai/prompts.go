// Package ai builds the system and user prompts for recipe generation.
package ai

import (
	"fmt"
	"strings"

	"github.com/smartfridge/fridgechef/internal/inventory"
)

// Preferences captures what the user asked for in one generation
// request. Constructed fresh per request, never persisted.
type Preferences struct {
	Cuisine              string
	Taste                string
	AdditionalNotes      string
	MustUseIngredientIDs []string
}

// Prompts is the provider-agnostic prompt pair. The native path joins
// the two with a newline; the compatible path sends them as separate
// role messages.
type Prompts struct {
	System string
	User   string
}

const systemPrompt = `你是一位极度注重细节的五星级烹饪导师。你的目标是让从未进过厨房的新手也能一次成功。
请根据用户现有的食材和偏好，推荐 3 道美味且成功率高的菜肴。
**重要：请只返回纯 JSON 格式数据，不要包含 Markdown 代码块 (` + "```json" + `) 或其他文字。**`

const rulesSection = `核心生成规则（严格执行）：
1. **步骤详情化 (防翻车公式)**：
   每一个步骤字符串必须严格遵循公式：**步骤 = 行为 + 条件 + 时间 + 判断**。
   * 行为 (Action): 具体做什么 (如: 快速滑炒, 小火慢炖)。
   * 条件 (Condition): 火候/油温/前置状态 (如: 保持中小火, 待油温微热)。
   * 时间 (Time): 具体的量化时间 (如: 约30秒, 焖煮15分钟)。
   * 判断 (Judgment): 视觉/嗅觉/触觉的完成标准 (如: 至肉丝变白断生, 闻到浓烈蒜香, 筷子能轻松插入)。

   * 错误示范："炒肉丝。"
   * 正确示范："开大火（条件）将锅烧至冒微烟，倒入冷油（行为），立即下入腌制好的肉丝快速滑炒（行为），约30秒（时间）至肉丝变白且根根分明（判断）。"

2. **存储状态感知**：如果使用了冷冻食材，步骤的第一步必须包含科学的解冻说明（如：提前冷藏解冻或微波炉解冻建议）。

3. **避坑指南 (Failure Points)**：
   必须列出极易出错的细节（例如："如果火太大，蒜末会在5秒内变焦发苦" 或 "一定要擦干水分防止炸锅"）。

4. **JSON 结构** (数组):
   [
     {
       "name": "菜名",
       "description": "一句话介绍亮点",
       "difficulty": "简单/中等/困难",
       "cookingTime": "例如：20分钟",
       "mainIngredientsUsed": ["食材1", "食材2"],
       "missingIngredients": ["缺少但必须的食材"],
       "steps": ["步骤1", "步骤2", "步骤3..."],
       "failurePoints": ["避坑1", "避坑2"]
     }
   ]`

// Build renders the prompt pair from the current inventory and the
// user's preferences. It is a pure function of its inputs.
func Build(ingredients []inventory.Ingredient, prefs Preferences) Prompts {
	var b strings.Builder

	b.WriteString("用户现有食材（按存储位置分类）：\n")
	b.WriteString(groupedInventory(ingredients))
	b.WriteString("\n\n特定要求：\n")
	fmt.Fprintf(&b, "- 菜系风格：%s\n", prefs.Cuisine)
	fmt.Fprintf(&b, "- 口味偏好：%s\n", prefs.Taste)
	fmt.Fprintf(&b, "- %s\n", mustUseClause(ingredients, prefs.MustUseIngredientIDs))

	if notes := strings.TrimSpace(prefs.AdditionalNotes); notes != "" {
		fmt.Fprintf(&b, "- 用户的额外要求/备注: %q\n", notes)
	}

	b.WriteString("\n")
	b.WriteString(rulesSection)

	return Prompts{
		System: systemPrompt,
		User:   b.String(),
	}
}

// groupedInventory renders one "category: a, b, c" line per non-empty
// category, in declaration order.
func groupedInventory(ingredients []inventory.Ingredient) string {
	var lines []string
	for _, cat := range inventory.Categories {
		var names []string
		for _, ing := range ingredients {
			if ing.Category == cat {
				names = append(names, ing.Name)
			}
		}
		if len(names) > 0 {
			lines = append(lines, fmt.Sprintf("%s: %s", cat, strings.Join(names, ", ")))
		}
	}
	return strings.Join(lines, "\n")
}

// mustUseClause resolves the must-use ids against the inventory. Ids
// that no longer resolve are silently dropped; the clause is always
// present so the model never has to guess.
func mustUseClause(ingredients []inventory.Ingredient, ids []string) string {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var names []string
	for _, ing := range ingredients {
		if wanted[ing.ID] {
			names = append(names, ing.Name)
		}
	}

	if len(names) == 0 {
		return "无必须包含的食材。"
	}
	return fmt.Sprintf("必须包含的食材: %s", strings.Join(names, ", "))
}
