package script

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/mesh-intelligence/entrack/pkg/types"
)

// Event is one notification delivered to a script watcher, with entities
// rendered by alias. Old and New are nil when the slot was unset, which
// keeps an unset string apart from an empty one.
type Event struct {
	Step     int                    `json:"step"`
	Kind     types.NotificationKind `json:"kind"`
	Entity   string                 `json:"entity"`
	Property string                 `json:"property"`
	Item     string                 `json:"item,omitempty"`
	Old      *string                `json:"old,omitempty"`
	New      *string                `json:"new,omitempty"`
}

func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "step %d: %s %s.%s", e.Step, e.Kind, e.Entity, e.Property)
	switch e.Kind {
	case types.PropertyChanged:
		fmt.Fprintf(&b, " %s -> %s", show(e.Old), show(e.New))
	case types.CollectionAdd, types.CollectionRemove:
		fmt.Fprintf(&b, " %s", e.Item)
	}
	return b.String()
}

func show(s *string) string {
	switch {
	case s == nil:
		return "<nil>"
	case *s == "":
		return `""`
	}
	return *s
}

// watch is one live subscription made by a watch step.
type watch struct {
	unsubscribe func() bool
}

// Runner executes scripts against one entity context. A Runner keeps its
// aliases and watches across Run calls.
type Runner struct {
	ctx     types.EntityContext
	schema  types.Schema
	logger  *slog.Logger
	aliases map[string]types.Entity
	names   map[string]string // entity ID -> alias
	watches map[string]watch
	events  []Event
	step    int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for step tracing.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner returns a Runner bound to ctx. schema must be the schema ctx
// was created with; it tells the runner which operands name entities.
func NewRunner(ctx types.EntityContext, schema types.Schema, opts ...Option) *Runner {
	r := &Runner{
		ctx:     ctx,
		schema:  schema,
		logger:  slog.New(slog.DiscardHandler),
		aliases: make(map[string]types.Entity),
		names:   make(map[string]string),
		watches: make(map[string]watch),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events returns every event recorded so far.
func (r *Runner) Events() []Event {
	return slices.Clone(r.events)
}

// Entity returns the entity bound to alias.
func (r *Runner) Entity(alias string) (types.Entity, bool) {
	e, ok := r.aliases[alias]
	return e, ok
}

// Run executes s step by step and stops at the first failing step. It
// returns the events recorded during this run.
func (r *Runner) Run(s *Script) ([]Event, error) {
	start := len(r.events)
	for i := range s.Steps {
		r.step++
		st := &s.Steps[i]
		op := st.Op()
		r.logger.Debug("script step", "step", r.step, "op", op)
		if err := r.exec(st); err != nil {
			return slices.Clone(r.events[start:]), fmt.Errorf("step %d (%s): %w", r.step, op, err)
		}
	}
	return slices.Clone(r.events[start:]), nil
}

func (r *Runner) exec(st *Step) error {
	switch {
	case st.Create != nil:
		return r.create(st.Create)
	case st.Set != nil:
		return r.set(st.Set)
	case st.Add != nil:
		return r.mutate(st.Add, types.Collection.Add)
	case st.Remove != nil:
		return r.mutate(st.Remove, types.Collection.Remove)
	case st.Clear != nil:
		c, _, err := r.collection(st.Clear.Entity, st.Clear.Property)
		if err != nil {
			return err
		}
		return c.Clear()
	case st.Watch != nil:
		return r.watch(st.Watch)
	case st.Unwatch != nil:
		return r.unwatch(st.Unwatch)
	case st.Expect != nil:
		return r.expect(st.Expect)
	}
	return fmt.Errorf("%w: empty step", ErrInvalidScript)
}

func (r *Runner) create(op *CreateOp) error {
	if op.As == "" {
		return fmt.Errorf("%w: create needs an alias", ErrInvalidScript)
	}
	if _, taken := r.aliases[op.As]; taken {
		return fmt.Errorf("%w: alias %q already used", ErrInvalidScript, op.As)
	}
	e, err := r.ctx.Create(op.Type)
	if err != nil {
		return err
	}
	r.aliases[op.As] = e
	r.names[e.ID()] = op.As
	return nil
}

func (r *Runner) set(op *SlotOp) error {
	e, def, err := r.slot(op.Entity, op.Property)
	if err != nil {
		return err
	}
	v, err := r.operand(def, op.Value)
	if err != nil {
		return err
	}
	return e.Set(op.Property, v)
}

func (r *Runner) mutate(op *SlotOp, apply func(types.Collection, any) (bool, error)) error {
	c, def, err := r.collection(op.Entity, op.Property)
	if err != nil {
		return err
	}
	v, err := r.operand(def, op.Value)
	if err != nil {
		return err
	}
	_, err = apply(c, v)
	return err
}

func (r *Runner) watch(op *WatchOp) error {
	key := op.Entity + "." + op.Property
	if _, ok := r.watches[key]; ok {
		return nil
	}
	e, err := r.resolve(op.Entity)
	if err != nil {
		return err
	}
	if op.Property != "" {
		c, err := e.Collection(op.Property)
		if err == nil {
			h := c.Subscribe(r.record)
			r.watches[key] = watch{unsubscribe: func() bool { return c.Unsubscribe(h) }}
			return nil
		}
		if _, err := e.Get(op.Property); err != nil {
			return err
		}
	}
	property := op.Property
	h := e.Subscribe(func(n types.Notification) {
		if property == "" || n.Property == property {
			r.record(n)
		}
	})
	r.watches[key] = watch{unsubscribe: func() bool { return e.Unsubscribe(h) }}
	return nil
}

func (r *Runner) unwatch(op *WatchOp) error {
	key := op.Entity + "." + op.Property
	w, ok := r.watches[key]
	if !ok {
		return fmt.Errorf("%w: %s is not watched", ErrInvalidScript, strings.TrimSuffix(key, "."))
	}
	w.unsubscribe()
	delete(r.watches, key)
	return nil
}

func (r *Runner) record(n types.Notification) {
	r.events = append(r.events, Event{
		Step:     r.step,
		Kind:     n.Kind,
		Entity:   r.name(n.Subject),
		Property: n.Property,
		Item:     r.format(n.Item),
		Old:      r.value(n.Old),
		New:      r.value(n.New),
	})
}

func (r *Runner) expect(op *ExpectOp) error {
	e, err := r.resolve(op.Entity)
	if err != nil {
		return err
	}
	def, err := r.property(e, op.Property)
	if err != nil {
		return err
	}
	if def.Kind == types.KindScalar {
		return r.expectScalar(e, def, op)
	}
	return r.expectCollection(e, def, op)
}

func (r *Runner) expectScalar(e types.Entity, def *types.PropertyDef, op *ExpectOp) error {
	if len(op.Contains) > 0 || len(op.Lacks) > 0 || op.Len != nil {
		return fmt.Errorf("%w: %s is a scalar", ErrInvalidScript, def.Name)
	}
	got, err := e.Get(def.Name)
	if err != nil {
		return err
	}
	if op.Unset {
		if got != nil {
			return fmt.Errorf("%w: %s.%s is %s, want unset", ErrExpectationFailed, op.Entity, def.Name, show(r.value(got)))
		}
		return nil
	}
	want, err := r.operand(def, op.Equals)
	if err != nil {
		return err
	}
	if (got == nil) != (want == nil) || r.format(got) != r.format(want) {
		return fmt.Errorf("%w: %s.%s is %s, want %s", ErrExpectationFailed, op.Entity, def.Name, show(r.value(got)), show(r.value(want)))
	}
	return nil
}

func (r *Runner) expectCollection(e types.Entity, def *types.PropertyDef, op *ExpectOp) error {
	if op.Equals != nil || op.Unset {
		return fmt.Errorf("%w: %s is a collection", ErrInvalidScript, def.Name)
	}
	c, err := e.Collection(def.Name)
	if err != nil {
		return err
	}
	for _, raw := range op.Contains {
		v, err := r.operand(def, raw)
		if err != nil {
			return err
		}
		if !c.Contains(v) {
			return fmt.Errorf("%w: %s.%s lacks %s", ErrExpectationFailed, op.Entity, def.Name, r.format(v))
		}
	}
	for _, raw := range op.Lacks {
		v, err := r.operand(def, raw)
		if err != nil {
			return err
		}
		if c.Contains(v) {
			return fmt.Errorf("%w: %s.%s contains %s", ErrExpectationFailed, op.Entity, def.Name, r.format(v))
		}
	}
	if op.Len != nil && c.Len() != *op.Len {
		return fmt.Errorf("%w: %s.%s has %d members, want %d", ErrExpectationFailed, op.Entity, def.Name, c.Len(), *op.Len)
	}
	return nil
}

// resolve finds an entity by alias, then by ID.
func (r *Runner) resolve(name string) (types.Entity, error) {
	if e, ok := r.aliases[name]; ok {
		return e, nil
	}
	if e, err := r.ctx.Get(name); err == nil {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
}

func (r *Runner) property(e types.Entity, name string) (*types.PropertyDef, error) {
	t, ok := r.schema.Type(e.Type())
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownEntityType, e.Type())
	}
	def, ok := t.Property(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", types.ErrPropertyNotFound, e.Type(), name)
	}
	return def, nil
}

func (r *Runner) slot(entity, property string) (types.Entity, *types.PropertyDef, error) {
	e, err := r.resolve(entity)
	if err != nil {
		return nil, nil, err
	}
	def, err := r.property(e, property)
	if err != nil {
		return nil, nil, err
	}
	return e, def, nil
}

func (r *Runner) collection(entity, property string) (types.Collection, *types.PropertyDef, error) {
	e, def, err := r.slot(entity, property)
	if err != nil {
		return nil, nil, err
	}
	c, err := e.Collection(property)
	if err != nil {
		return nil, nil, err
	}
	return c, def, nil
}

// operand turns a YAML value into a slot value: entity names resolve for
// reference properties and RFC 3339 strings parse for time properties.
// Everything else passes through for the entity to type-check.
func (r *Runner) operand(def *types.PropertyDef, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch def.ValueType {
	case types.ValueTypeEntity:
		name, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects an entity name, got %T", ErrInvalidScript, def.Name, v)
		}
		return r.resolve(name)
	case types.ValueTypeTime:
		if s, ok := v.(string); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", types.ErrTypeMismatch, def.Name, err)
			}
			return t, nil
		}
	}
	return v, nil
}

// name renders an entity by alias, falling back to its ID.
func (r *Runner) name(e types.Entity) string {
	if e == nil {
		return ""
	}
	if alias, ok := r.names[e.ID()]; ok {
		return alias
	}
	return e.ID()
}

// value formats v, or returns nil for an unset value.
func (r *Runner) value(v any) *string {
	if v == nil {
		return nil
	}
	s := r.format(v)
	return &s
}

func (r *Runner) format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case types.Entity:
		return r.name(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
