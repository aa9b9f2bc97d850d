// Package recipe defines the generated-recipe model and the parser that
// turns raw model output into it.
package recipe

// Recipe is one AI-generated dish suggestion. It exists only in memory
// until the user saves it to favorites.
type Recipe struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	Difficulty          string   `json:"difficulty"`
	CookingTime         string   `json:"cookingTime"`
	MainIngredientsUsed []string `json:"mainIngredientsUsed"`
	MissingIngredients  []string `json:"missingIngredients"`
	Steps               []string `json:"steps"`
	FailurePoints       []string `json:"failurePoints"`
}
