package prompt

import (
	"embed"
	"path"
	"strings"
)

var (
	//go:embed template/chat.txt
	chatRaw string

	//go:embed template/recipe.txt
	recipeRaw string

	//go:embed template/forecast.txt
	forecastRaw string

	//go:embed template/content/*.txt
	contentFS embed.FS
)

// Content template names.
const (
	ContentMarketing     = "marketing"
	ContentSocial        = "social"
	ContentEmail         = "email"
	ContentFAQ           = "faq"
	ContentCodeReview    = "code_review"
	ContentReleaseNotes  = "release_notes"
	ContentDocumentation = "documentation"
)

type PromptSet struct {
	Chat     string
	Recipe   string
	Forecast string
	Content  map[string]string
}

func LoadPromptSet() PromptSet {
	return PromptSet{
		Chat:     strings.TrimSpace(chatRaw),
		Recipe:   strings.TrimSpace(recipeRaw),
		Forecast: strings.TrimSpace(forecastRaw),
		Content:  loadContent(),
	}
}

func loadContent() map[string]string {
	out := make(map[string]string)
	entries, err := contentFS.ReadDir("template/content")
	if err != nil {
		return out
	}
	for _, e := range entries {
		raw, err := contentFS.ReadFile(path.Join("template/content", e.Name()))
		if err != nil {
			continue
		}
		out[strings.TrimSuffix(e.Name(), ".txt")] = strings.TrimSpace(string(raw))
	}
	return out
}
