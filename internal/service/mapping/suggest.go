package mapping

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// Suggestion is a candidate ingredient for a line the rules could not map. Suggestions feed the
// manual review queue and are never applied automatically.
type Suggestion struct {
	IngredientID string  `json:"ingredient_id"`
	Name         string  `json:"name"`
	Similarity   float64 `json:"similarity"`
}

// Suggest ranks live ingredients by edit-distance similarity between their name and the line
// description and returns at most n of them.
func Suggest(line models.ExpenseLineItem, ingredients []models.Ingredient, n int) []Suggestion {
	desc := normalize(line.RawDescription)
	if desc == "" || n <= 0 {
		return nil
	}

	out := make([]Suggestion, 0, len(ingredients))
	for _, ing := range ingredients {
		if ing.Deleted {
			continue
		}
		name := normalize(ing.Name)
		if name == "" {
			continue
		}
		out = append(out, Suggestion{IngredientID: ing.ID, Name: ing.Name, Similarity: similarity(desc, name)})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func similarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if l := utf8.RuneCountInString(b); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
