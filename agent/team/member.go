package team

import (
	"slices"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

type member struct {
	name         string
	agent        contractx.Executor
	capabilities []string

	assigned  int
	completed int
	failed    int
}

func (m *member) CanHandle(capability string) bool {
	return slices.Contains(m.capabilities, capability)
}

func (m *member) add(capability string) {
	if !m.CanHandle(capability) {
		m.capabilities = append(m.capabilities, capability)
	}
}

func (m *member) drop(capability string) {
	m.capabilities = slices.DeleteFunc(m.capabilities, func(c string) bool {
		return c == capability
	})
}

func (m *member) successRate() float64 {
	if m.assigned == 0 {
		return 0
	}
	return float64(m.completed) / float64(m.assigned) * 100
}
