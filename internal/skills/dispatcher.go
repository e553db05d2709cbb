package skills

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"skillchat/internal/services"
)

// Dispatcher selects exactly one skill for an utterance and invokes it.
type Dispatcher struct {
	registry   *Registry
	fallbackID string
	metrics    *services.Metrics // optional
}

// NewDispatcher creates a dispatcher over the given registry. fallbackID
// names the always-eligible skill used when no specialized skill claims
// the utterance or when the selected skill fails. metrics may be nil.
func NewDispatcher(registry *Registry, fallbackID string, metrics *services.Metrics) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		fallbackID: fallbackID,
		metrics:    metrics,
	}
}

// Dispatch routes the utterance to one skill and returns its normalized
// result. Skill execution failures are converted into a fallback response
// and never surface to the caller; the returned error is non-nil only when
// the fallback itself is missing or fails.
//
// The result's Metadata["skillId"] is always set to the ID of the skill
// that actually produced it, even if the skill implementation forgot to.
func (d *Dispatcher) Dispatch(ctx context.Context, message string, sctx Context) (*Result, error) {
	skill := d.selectSkill(message, sctx)
	if skill == nil {
		return nil, fmt.Errorf("%w: no fallback skill registered as %q", ErrSkillNotFound, d.fallbackID)
	}

	start := time.Now()
	result, err := d.execute(ctx, skill, message, sctx)
	if err != nil && skill.ID() != d.fallbackID {
		slog.Error("skill execution failed, re-dispatching to fallback",
			"skill_id", skill.ID(), "error", err)
		if d.metrics != nil {
			d.metrics.SkillFailures.WithLabelValues(skill.ID()).Inc()
		}

		fallback, ferr := d.registry.Get(d.fallbackID)
		if ferr != nil {
			return nil, ferr
		}
		skill = fallback
		result, err = d.execute(ctx, skill, message, sctx)
	}
	if err != nil {
		if d.metrics != nil {
			d.metrics.SkillFailures.WithLabelValues(skill.ID()).Inc()
		}
		return nil, fmt.Errorf("fallback skill failed: %w", err)
	}

	d.normalize(result, skill.ID())

	if d.metrics != nil {
		d.metrics.SkillDispatches.WithLabelValues(skill.ID()).Inc()
		d.metrics.DispatchLatency.Observe(time.Since(start).Seconds())
	}
	slog.Debug("dispatched message", "skill_id", skill.ID())

	return result, nil
}

// selectSkill performs the two-pass selection: first non-fallback skill
// (in registration order) whose CanHandle is true, then the fallback. The
// fallback is a catch-all, not a peer candidate, so a later non-fallback
// match always pre-empts it.
func (d *Dispatcher) selectSkill(message string, sctx Context) Skill {
	for _, skill := range d.registry.All() {
		if skill.ID() == d.fallbackID {
			continue
		}
		if d.canHandle(skill, message, sctx) {
			return skill
		}
	}

	fallback, err := d.registry.Get(d.fallbackID)
	if err != nil {
		return nil
	}
	return fallback
}

// canHandle evaluates eligibility; a panicking CanHandle counts as false,
// not as a dispatch failure.
func (d *Dispatcher) canHandle(skill Skill, message string, sctx Context) (eligible bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("skill CanHandle panicked, treating as ineligible",
				"skill_id", skill.ID(), "panic", r)
			eligible = false
		}
	}()
	return skill.CanHandle(message, sctx)
}

// execute runs a skill, converting panics into errors so a misbehaving
// skill can still be replaced by the fallback.
func (d *Dispatcher) execute(ctx context.Context, skill Skill, message string, sctx Context) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("skill %s panicked: %v", skill.ID(), r)
		}
	}()

	result, err = skill.Execute(ctx, message, sctx)
	if err == nil && result == nil {
		err = errors.New("skill returned no result")
	}
	return result, err
}

func (d *Dispatcher) normalize(result *Result, skillID string) {
	if result.Role == "" {
		result.Role = RoleAssistant
	}
	if result.Metadata == nil {
		result.Metadata = make(map[string]any)
	}
	if _, ok := result.Metadata["skillId"]; !ok {
		result.Metadata["skillId"] = skillID
	}
}
