package external

import (
	"encoding/json"
	"strconv"
	"strings"

	"recipebox/internal/types"
)

// DecodeRecipe splits a generated JSON object into the typed recipe envelope
// and the content bag. A missing title or non-object payload is malformed.
func DecodeRecipe(payload []byte) (*types.Recipe, error) {
	obj, err := decodeObject(payload)
	if err != nil {
		return nil, err
	}
	title := takeString(obj, "title")
	if title == "" {
		return nil, malformed("generated recipe has no title")
	}
	r := &types.Recipe{
		Title:       title,
		Description: takeString(obj, "description"),
		PrepTime:    takeString(obj, "prepTime"),
		CookTime:    takeString(obj, "cookTime"),
		Servings:    takeInt(obj, "servings"),
		Situation:   takeString(obj, "situation"),
		Tags:        takeStrings(obj, "tags"),
	}
	if len(obj) > 0 {
		r.Content = types.ContentBag(obj)
	}
	return r, nil
}

// DecodeMealPlan splits a generated JSON object into a meal plan envelope
// and content bag.
func DecodeMealPlan(payload []byte) (*types.MealPlan, error) {
	obj, err := decodeObject(payload)
	if err != nil {
		return nil, err
	}
	title := takeString(obj, "title")
	if title == "" {
		return nil, malformed("generated meal plan has no title")
	}
	mp := &types.MealPlan{
		Title:       title,
		Description: takeString(obj, "description"),
		Days:        takeInt(obj, "days"),
		Servings:    takeInt(obj, "servings"),
		Situation:   takeString(obj, "situation"),
	}
	if len(obj) > 0 {
		mp.Content = types.ContentBag(obj)
	}
	return mp, nil
}

func decodeObject(payload []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamGeneratorMalformed,
			"the recipe generator returned output we could not read", err)
	}
	if obj == nil {
		return nil, malformed("the recipe generator returned an empty result")
	}
	return obj, nil
}

func malformed(msg string) error {
	return types.NewAppError(types.ErrCodeUpstreamGeneratorMalformed, msg, nil)
}

// takeString removes key from obj and returns it when it is a string.
// Non-string values stay in the bag.
func takeString(obj map[string]any, key string) string {
	v, ok := obj[key].(string)
	if !ok {
		return ""
	}
	delete(obj, key)
	return strings.TrimSpace(v)
}

// takeInt accepts JSON numbers and numeric strings ("4 servings" is left alone).
func takeInt(obj map[string]any, key string) int {
	switch v := obj[key].(type) {
	case float64:
		delete(obj, key)
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			delete(obj, key)
			return n
		}
	}
	return 0
}

func takeStrings(obj map[string]any, key string) []string {
	raw, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	delete(obj, key)
	return out
}
