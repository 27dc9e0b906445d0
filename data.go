package defender

import (
	"sync"

	"github.com/reoring/defender/clock"
	"github.com/reoring/defender/events"
)

// Data is one mutable instance of values conforming to a Schema. Every write
// goes through the schema's acceptance rule.
//
// Data is safe for concurrent use. Values are validated before the instance
// lock is taken; the lock covers storage and timestamp refresh.
// Notifications are delivered synchronously after the lock is released.
type Data struct {
	mu        sync.Mutex
	schema    *Schema
	props     map[string]any
	bus       *events.Bus
	notifiers []Notifier
}

func newData(s *Schema, lo loadOptions) *Data {
	d := &Data{
		schema:    s,
		props:     map[string]any{},
		bus:       events.NewBus(s.opts.logger),
		notifiers: lo.notifiers,
	}
	for _, sub := range lo.handlers {
		d.bus.Subscribe(sub.event, sub.handler)
	}
	return d
}

// Schema returns the schema the data is bound to.
func (d *Data) Schema() *Schema { return d.schema }

// On subscribes h to an event of this data: "load", "update",
// "update.<name>", "update.*" or "*".
func (d *Data) On(event string, h events.Handler) {
	d.bus.Subscribe(event, h)
}

// Load applies values without refreshing timestamp properties and then
// publishes a single load event carrying values. It stops at the first
// failing key; keys applied before the failure stay applied.
func (d *Data) Load(values map[string]any) error {
	for _, k := range d.schema.orderKeys(values) {
		w, err := d.prepare(k, values[k])
		if err != nil {
			return err
		}
		d.mu.Lock()
		err = d.store(w)
		d.mu.Unlock()
		if err != nil {
			return err
		}
	}

	if len(d.notifiers) == 0 && !d.bus.HasSubscribers(events.Load) {
		return nil
	}
	applied := make(map[string]any, len(values))
	for k, v := range values {
		applied[k] = v
	}
	d.notify(events.Event{Name: events.Load, Values: applied})
	return nil
}

// Update validates and stores a single value, refreshes every auto timestamp
// property to the current time and publishes "update" and "update.<name>".
func (d *Data) Update(name string, value any) error {
	w, err := d.prepare(name, value)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if err := d.store(w); err != nil {
		d.mu.Unlock()
		return err
	}
	now := clock.NowMillis(d.schema.opts.clock)
	for _, m := range d.schema.ModtimePropertyNames() {
		d.props[m] = now
	}
	d.mu.Unlock()

	ext := d.schema.typecast(name, w.value)
	d.notify(events.Event{Name: events.Update, Property: name, Value: ext})
	d.notify(events.Event{Name: events.PropertyUpdate(name), Property: name, Value: ext})
	return nil
}

// prepare normalizes a write. It runs without d.mu held, since validators and
// nested projections may read d. A value that would contain d itself is
// rejected.
func (d *Data) prepare(name string, value any) (write, error) {
	w, err := d.schema.normalize(name, value)
	if err != nil {
		return w, err
	}
	if contains(w.value, d, map[*Data]bool{}) {
		return write{}, issueAt(CodeInvalidValue, name, value)
	}
	return w, nil
}

// contains reports whether target is reachable from v through nested Data,
// maps and lists.
func contains(v any, target *Data, seen map[*Data]bool) bool {
	switch t := v.(type) {
	case *Data:
		if t == target {
			return true
		}
		if t == nil || seen[t] {
			return false
		}
		seen[t] = true
		t.mu.Lock()
		vals := make([]any, 0, len(t.props))
		for _, e := range t.props {
			vals = append(vals, e)
		}
		t.mu.Unlock()
		for _, e := range vals {
			if contains(e, target, seen) {
				return true
			}
		}
	case map[string]any:
		for _, e := range t {
			if contains(e, target, seen) {
				return true
			}
		}
	case []any:
		for _, e := range t {
			if contains(e, target, seen) {
				return true
			}
		}
	}
	return false
}

// store applies a normalized write. Callers hold d.mu.
func (d *Data) store(w write) error {
	if w.noChange {
		if cur, ok := d.props[w.name]; ok && !sameValue(cur, w.value) {
			return issueAt(CodeValueChangeNotAllowed, w.name, w.value)
		}
	}
	d.props[w.name] = w.value
	return nil
}

// Get returns the external value of a property, or nil when it is unset.
// Date properties are returned as time.Time.
func (d *Data) Get(name string) any {
	d.mu.Lock()
	v, ok := d.props[name]
	d.mu.Unlock()
	if !ok {
		return nil
	}
	return d.schema.typecast(name, v)
}

// Has reports whether a value (possibly null) is stored for name.
func (d *Data) Has(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.props[name]
	return ok
}

// ToJSON returns a plain nested copy of the stored values. Dates stay epoch
// milliseconds, nulls are kept and nested Projectors are projected.
func (d *Data) ToJSON() map[string]any {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	snapshot := make(map[string]any, len(d.props))
	for k, v := range d.props {
		snapshot[k] = v
	}
	d.mu.Unlock()
	return projectMap(snapshot)
}

func (d *Data) notify(e events.Event) {
	d.bus.Publish(e)
	for _, n := range d.notifiers {
		n.Notify(e)
	}
}

var (
	_ Projector = (*Data)(nil)
	_ Notifier  = (*events.Bus)(nil)
)
