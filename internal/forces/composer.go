package forces

import (
	"fmt"

	"github.com/san-kum/clusterflow/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

type entry[T any] struct {
	name string
	item T
}

// Composer is an ordered, named list of forces and constraints. It is not
// safe for concurrent mutation; the simulator only touches it from its loop.
type Composer struct {
	forces      []entry[Force]
	constraints []entry[Constraint]
}

func NewComposer() *Composer {
	return &Composer{}
}

func (c *Composer) Register(name string, f Force) error {
	if c.has(name) {
		return fmt.Errorf("forces: %q already registered", name)
	}
	c.forces = append(c.forces, entry[Force]{name, f})
	return nil
}

// Replace swaps the force registered under name, keeping its position.
func (c *Composer) Replace(name string, f Force) error {
	for i := range c.forces {
		if c.forces[i].name == name {
			c.forces[i].item = f
			return nil
		}
	}
	return fmt.Errorf("forces: no force named %q", name)
}

func (c *Composer) RegisterConstraint(name string, k Constraint) error {
	if c.has(name) {
		return fmt.Errorf("forces: %q already registered", name)
	}
	c.constraints = append(c.constraints, entry[Constraint]{name, k})
	return nil
}

func (c *Composer) ReplaceConstraint(name string, k Constraint) error {
	for i := range c.constraints {
		if c.constraints[i].name == name {
			c.constraints[i].item = k
			return nil
		}
	}
	return fmt.Errorf("forces: no constraint named %q", name)
}

// Remove drops the force or constraint registered under name.
func (c *Composer) Remove(name string) bool {
	for i := range c.forces {
		if c.forces[i].name == name {
			c.forces = append(c.forces[:i], c.forces[i+1:]...)
			return true
		}
	}
	for i := range c.constraints {
		if c.constraints[i].name == name {
			c.constraints = append(c.constraints[:i], c.constraints[i+1:]...)
			return true
		}
	}
	return false
}

// Names lists forces then constraints in registration order.
func (c *Composer) Names() []string {
	names := make([]string, 0, len(c.forces)+len(c.constraints))
	for _, e := range c.forces {
		names = append(names, e.name)
	}
	for _, e := range c.constraints {
		names = append(names, e.name)
	}
	return names
}

func (c *Composer) Force(name string) (Force, bool) {
	for _, e := range c.forces {
		if e.name == name {
			return e.item, true
		}
	}
	return nil, false
}

func (c *Composer) has(name string) bool {
	for _, e := range c.forces {
		if e.name == name {
			return true
		}
	}
	for _, e := range c.constraints {
		if e.name == name {
			return true
		}
	}
	return false
}

func (c *Composer) Prepare(env *Env) {
	for _, e := range c.forces {
		if p, ok := e.item.(Preparer); ok {
			p.Prepare(env)
		}
	}
}

// Accel returns the summed acceleration on p. Anchors get zero.
func (c *Composer) Accel(p *dynamo.Particle, env *Env) r2.Vec {
	var a r2.Vec
	if p.IsAnchor() {
		return a
	}
	for _, e := range c.forces {
		a = r2.Add(a, e.item.Accel(p, env))
	}
	return a
}

// Constrain runs every constraint in registration order.
func (c *Composer) Constrain(env *Env) {
	for _, e := range c.constraints {
		e.item.Resolve(env)
	}
}
