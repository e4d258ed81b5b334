package service

import (
	"strings"

	"github.com/noah-isme/sma-activity-portal/internal/models"
)

type categoryRule struct {
	category    models.Category
	name        []string
	description []string
}

// Order matters: the first rule with a matching keyword wins.
var categoryRules = []categoryRule{
	{
		category:    models.CategorySports,
		name:        []string{"soccer", "basketball", "sport", "fitness"},
		description: []string{"team", "game"},
	},
	{
		category:    models.CategoryArts,
		name:        []string{"art", "music", "theater", "drama"},
		description: []string{"creative", "paint"},
	},
	{
		category:    models.CategoryAcademic,
		name:        []string{"science", "math", "academic", "study", "olympiad"},
		description: []string{"learning", "education", "competition"},
	},
	{
		category:    models.CategoryCommunity,
		name:        []string{"volunteer", "community"},
		description: []string{"service", "volunteer"},
	},
	{
		category:    models.CategoryTechnology,
		name:        []string{"computer", "coding", "tech", "robotics"},
		description: []string{"programming", "technology", "digital", "robot"},
	},
}

// Categories lists the concrete categories in precedence order.
func Categories() []models.Category {
	out := make([]models.Category, 0, len(categoryRules))
	for _, rule := range categoryRules {
		out = append(out, rule.category)
	}
	return out
}

// ClassifyActivity infers the category of an activity from its name and
// description. Unmatched activities are academic.
func ClassifyActivity(name, description string) models.Category {
	name = strings.ToLower(name)
	description = strings.ToLower(description)
	for _, rule := range categoryRules {
		if containsAny(name, rule.name) || containsAny(description, rule.description) {
			return rule.category
		}
	}
	return models.CategoryAcademic
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
