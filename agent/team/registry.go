// Package team implements a leader: a capability registry plus a static goal
// table whose steps are dispatched, in order, to registered members.
package team

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

type ConflictPolicy int

const (
	// ConflictLastWins remaps the capability to the newest member.
	ConflictLastWins ConflictPolicy = iota
	ConflictFirstWins
	ConflictError
)

func (p ConflictPolicy) String() string {
	switch p {
	case ConflictFirstWins:
		return "first_wins"
	case ConflictError:
		return "error"
	default:
		return "last_wins"
	}
}

func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last_wins", "last-wins", "last":
		return ConflictLastWins, nil
	case "first_wins", "first-wins", "first":
		return ConflictFirstWins, nil
	case "error", "reject":
		return ConflictError, nil
	default:
		return ConflictLastWins, fmt.Errorf("%w: unknown conflict policy %q", contractx.ErrValidation, s)
	}
}

// RegisterAgent maps each capability to agent under name. Registering the
// same name again replaces its executor and adds the new capabilities.
func (l *Leader) RegisterAgent(name string, agent contractx.Executor, capabilities ...string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: agent name is empty", contractx.ErrValidation)
	}
	if agent == nil {
		return fmt.Errorf("%w: agent %s is nil", contractx.ErrValidation, name)
	}

	caps := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		if c = strings.TrimSpace(c); c != "" {
			caps = append(caps, c)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.policy == ConflictError {
		for _, c := range caps {
			if owner, ok := l.capabilities[c]; ok && owner != name {
				return fmt.Errorf("%w: %s already served by %s", contractx.ErrCapabilityConflict, c, owner)
			}
		}
	}

	m, ok := l.members[name]
	if !ok {
		m = &member{name: name}
		l.members[name] = m
		l.order = append(l.order, name)
	}
	m.agent = agent

	for _, c := range caps {
		owner, taken := l.capabilities[c]
		switch {
		case !taken || owner == name:
		case l.policy == ConflictFirstWins:
			l.log.Info().Str("capability", c).Str("kept", owner).Str("skipped", name).Msg("capability already registered")
			continue
		default:
			l.log.Warn().Str("capability", c).Str("previous", owner).Str("agent", name).Msg("capability reassigned")
			if prev := l.members[owner]; prev != nil {
				prev.drop(c)
			}
		}
		l.capabilities[c] = name
		m.add(c)
	}

	l.log.Info().Str("agent", name).Strs("capabilities", m.capabilities).Msg("agent registered")
	return nil
}

func (l *Leader) Resolve(capability string) (contractx.Executor, error) {
	_, exec, err := l.lookup(capability)
	return exec, err
}

func (l *Leader) lookup(capability string) (string, contractx.Executor, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	name, ok := l.capabilities[capability]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", contractx.ErrUnregisteredCapability, capability)
	}
	return name, l.members[name].agent, nil
}

// Capabilities lists every registered capability, sorted.
func (l *Leader) Capabilities() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.capabilities))
	for c := range l.capabilities {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (l *Leader) Members() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.order)
}
