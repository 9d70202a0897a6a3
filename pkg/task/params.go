package task

import (
	"fmt"
	"strings"
)

// Param is a single declared parameter. Significant parameters participate in
// identity computation; hidden parameters are excluded from display output
// but not from hashing.
type Param struct {
	Name        string
	Value       string
	Significant bool
	Hidden      bool
}

// Params is the explicit, ordered parameter schema of a task type, built at
// construction time. Declaration order is preserved and is part of the
// serialized form.
type Params struct {
	ordered []Param
}

func NewParams() *Params {
	return &Params{}
}

// ParamOption adjusts a declared parameter.
type ParamOption func(*Param)

// Insignificant excludes the parameter from identity computation.
func Insignificant() ParamOption {
	return func(p *Param) {
		p.Significant = false
	}
}

// Hidden excludes the parameter from display output.
func Hidden() ParamOption {
	return func(p *Param) {
		p.Hidden = true
	}
}

// Declare appends a parameter. The value is serialized once, at declaration
// time. Parameters default to significant and public.
func (ps *Params) Declare(name string, value interface{}, opts ...ParamOption) {
	p := Param{Name: name, Value: fmt.Sprintf("%v", value), Significant: true}
	for _, opt := range opts {
		opt(&p)
	}
	ps.ordered = append(ps.ordered, p)
}

// Get returns the parameter with the given name.
func (ps *Params) Get(name string) (Param, bool) {
	for _, p := range ps.ordered {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// All returns the declared parameters in declaration order.
func (ps *Params) All() []Param {
	out := make([]Param, len(ps.ordered))
	copy(out, ps.ordered)
	return out
}

// SignificantString serializes the significant parameters in declaration
// order. This is the parameter contribution to the identity hash.
func (ps *Params) SignificantString() string {
	var parts []string
	for _, p := range ps.ordered {
		if p.Significant {
			parts = append(parts, p.Name+"="+p.Value)
		}
	}
	return strings.Join(parts, ",")
}

// PublicMap returns the significant, non-hidden parameters as a name to
// value mapping for display and auxiliary records.
func (ps *Params) PublicMap() map[string]string {
	out := make(map[string]string)
	for _, p := range ps.ordered {
		if p.Significant && !p.Hidden {
			out[p.Name] = p.Value
		}
	}
	return out
}
