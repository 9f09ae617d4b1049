package factory

import (
	"fmt"

	"github.com/tanpawarit/agent-teams/agent/teams/bakery"
	"github.com/tanpawarit/agent-teams/agent/teams/repository"
	shopteam "github.com/tanpawarit/agent-teams/agent/teams/shopify"
)

// Default returns the built-in layout for a team type, used when no team
// file is configured.
func Default(teamType string) (TeamConfig, error) {
	switch teamType {
	case bakery.Name:
		return TeamConfig{
			TeamType: bakery.Name,
			Members: []MemberConfig{
				{Type: KindForecast, Name: "SalesForecaster"},
				{Type: KindRecipe, Name: "RecipeMaster"},
				{Type: KindReport, Name: "ProductionPlanner"},
				{Type: KindChat, Name: "CustomerService"},
			},
		}, nil
	case shopteam.Name:
		return TeamConfig{
			TeamType: shopteam.Name,
			Members: []MemberConfig{
				{Type: KindShopify, Name: "StoreManager"},
				{Type: KindSegmentation, Name: "CustomerAnalyst"},
				{Type: KindForecast, Name: "SalesForecaster"},
				{Type: KindContent, Name: "Marketer", Config: map[string]any{"kinds": []any{"social", "email"}}},
			},
		}, nil
	case repository.Name:
		return TeamConfig{
			TeamType: repository.Name,
			Members: []MemberConfig{
				{Type: KindContent, Name: "Reviewer", Config: map[string]any{"kinds": []any{"code_review"}}},
				{Type: KindContent, Name: "TechWriter", Config: map[string]any{"kinds": []any{"documentation", "release_notes"}}},
			},
		}, nil
	default:
		return TeamConfig{}, fmt.Errorf("%w: %s", ErrUnknownTeamType, teamType)
	}
}

// TeamTypes lists the team types Build understands.
func TeamTypes() []string {
	return []string{bakery.Name, shopteam.Name, repository.Name}
}
