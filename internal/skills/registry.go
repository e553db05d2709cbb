package skills

import "fmt"

// Registry holds the fixed set of skills, in registration order.
//
// Registration order is a documented priority contract: when two
// non-fallback skills both claim an utterance, the dispatcher selects the
// one registered first. The registry is populated once at startup and is
// read-only afterwards, so it needs no locking.
type Registry struct {
	order  []string
	skills map[string]Skill
}

// NewRegistry creates an empty skill registry.
func NewRegistry() *Registry {
	return &Registry{
		skills: make(map[string]Skill),
	}
}

// Register adds a skill, or replaces the existing entry with the same ID.
// A replaced skill keeps its original position in the priority order.
func (r *Registry) Register(skill Skill) {
	id := skill.ID()
	if _, exists := r.skills[id]; !exists {
		r.order = append(r.order, id)
	}
	r.skills[id] = skill
}

// All returns every registered skill in registration order.
func (r *Registry) All() []Skill {
	out := make([]Skill, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.skills[id])
	}
	return out
}

// Get returns the skill with the given ID.
func (r *Registry) Get(id string) (Skill, error) {
	skill, ok := r.skills[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSkillNotFound, id)
	}
	return skill, nil
}
