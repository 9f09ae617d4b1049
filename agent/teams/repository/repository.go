// Package repository defines the repository team: pull request review,
// release preparation and documentation.
package repository

import (
	"fmt"

	promptx "github.com/tanpawarit/agent-teams/agent/prompt"
	"github.com/tanpawarit/agent-teams/agent/team"
)

const Name = "repository"

const (
	CapCodeReview    = "code_review"
	CapDocumentation = "documentation"
	CapReleaseNotes  = "release_notes"
)

var changeFields = []string{"repository", "title", "description", "diff", "files", "changes", "commits", "version"}

func Goals() []team.Goal {
	review := team.Step{
		Capability:  CapCodeReview,
		Description: "Review the change",
		Input:       team.Pick(map[string]any{"kind": promptx.ContentCodeReview}, changeFields...),
		Exports:     []string{"content"},
	}
	docs := team.Step{
		Capability:  CapDocumentation,
		Description: "Update documentation for the change",
		Input:       team.Pick(map[string]any{"kind": promptx.ContentDocumentation}, append(changeFields, "module", "audience")...),
	}

	return []team.Goal{
		{
			Name:        "review_pr",
			Description: "Review a pull request and draft matching docs",
			Steps:       []team.Step{review, docs},
		},
		{
			Name:        "pre_release",
			Description: "Review pending changes and write release notes",
			Steps: []team.Step{
				review,
				{
					Capability:  CapReleaseNotes,
					Description: "Write release notes",
					Input:       team.Pick(map[string]any{"kind": promptx.ContentReleaseNotes}, changeFields...),
				},
			},
		},
		{
			Name:        "update_docs",
			Description: "Regenerate documentation",
			Steps:       []team.Step{docs},
		},
	}
}

func New(opts ...team.Option) (*team.Leader, error) {
	return Define(team.New(Name, opts...))
}

func Define(l *team.Leader) (*team.Leader, error) {
	for _, g := range Goals() {
		if err := l.DefineGoal(g); err != nil {
			return nil, fmt.Errorf("define %s goal %s: %w", Name, g.Name, err)
		}
	}
	return l, nil
}
