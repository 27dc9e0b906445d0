package defender_test

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	defender "github.com/reoring/defender"
	"github.com/reoring/defender/clock"
	"github.com/reoring/defender/events"
	"github.com/reoring/defender/idgen"
)

var epoch = time.UnixMilli(1_700_000_000_000)

// newUserSchema builds the schema most tests share: a token, a bounded name,
// a defaulted age and a modification time driven by clk.
func newUserSchema(t *testing.T, clk clock.Clock) *defender.Schema {
	t.Helper()
	s := defender.NewSchema("user",
		defender.WithClock(clk),
		defender.WithTokenGenerator(idgen.NewSequential("user-")),
	)
	defender.Must(s.Define("id", defender.Unique()))
	defender.Must(s.Define("name", defender.String().Min(2).Max(10)))
	defender.Must(s.Define("age", defender.Number().Min(0).Default(20)))
	defender.Must(s.Define("updated", defender.AutoTimestamp().DefaultFunc(func() any { return clk.Now() })))
	s.LockSchema()
	return s
}

func TestLoad_AppliesDefaultsAndTokens(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := newUserSchema(t, clk)

	d, err := s.Load(map[string]any{"name": "alice"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d.Schema() != s {
		t.Fatalf("data must be bound to its schema")
	}
	want := map[string]any{
		"id":      "user-1",
		"name":    "alice",
		"age":     20,
		"updated": epoch.UnixMilli(),
	}
	if got := d.ToJSON(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ToJSON mismatch:\n got=%#v\nwant=%#v", got, want)
	}
	if got, ok := d.Get("updated").(time.Time); !ok || !got.Equal(epoch) {
		t.Fatalf("date properties read back as time.Time, got %#v", d.Get("updated"))
	}
	if d.Get("nope") != nil || d.Has("nope") {
		t.Fatalf("unknown properties read as absent")
	}

	d2 := defender.MustValue(s.Load(map[string]any{"name": "bob"}))
	if d2.Get("id") != "user-2" {
		t.Fatalf("each load draws a fresh token, got %v", d2.Get("id"))
	}
}

func TestLoad_RejectsInvalidAndUnknown(t *testing.T) {
	s := newUserSchema(t, clock.NewFake(epoch))

	if _, err := s.Load(map[string]any{"name": "a"}); defender.CodeOf(err) != defender.CodeInvalidValue {
		t.Fatalf("want invalid_value, got %v", err)
	}
	if _, err := s.Load(map[string]any{}); defender.CodeOf(err) != defender.CodeMissingValue {
		t.Fatalf("want missing_value, got %v", err)
	}
	_, err := s.Load(map[string]any{"name": "alice", "zzz": 1})
	iss, ok := defender.AsIssues(err)
	if !ok || iss[0].Code != defender.CodePropertyNotDefined || iss[0].Path != "/zzz" {
		t.Fatalf("want property_not_defined at /zzz, got %v", err)
	}
}

func TestDataLoad_PartialApplication(t *testing.T) {
	s := newUserSchema(t, clock.NewFake(epoch))
	d := defender.MustValue(s.Load(map[string]any{"name": "alice", "age": 30}))

	// name is defined before age, so it is applied before age fails
	err := d.Load(map[string]any{"age": -1, "name": "carol"})
	if !defender.HasCode(err, defender.CodeInvalidValue) {
		t.Fatalf("want invalid_value, got %v", err)
	}
	if d.Get("name") != "carol" || d.Get("age") != 30 {
		t.Fatalf("unexpected state after partial load: %v", d.ToJSON())
	}
}

func TestUpdate_ValidatesAndRefreshesModtime(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := newUserSchema(t, clk)
	d := defender.MustValue(s.Load(map[string]any{"name": "alice"}))

	clk.Advance(5 * time.Second)
	if err := d.Update("age", 31); err != nil {
		t.Fatalf("update: %v", err)
	}
	if d.Get("age") != 31 {
		t.Fatalf("age not stored: %v", d.Get("age"))
	}
	if got := d.ToJSON()["updated"]; got != epoch.Add(5*time.Second).UnixMilli() {
		t.Fatalf("modtime not refreshed: %v", got)
	}

	clk.Advance(time.Second)
	if err := d.Update("age", -5); !defender.HasCode(err, defender.CodeInvalidValue) {
		t.Fatalf("want invalid_value, got %v", err)
	}
	if d.Get("age") != 31 {
		t.Fatalf("rejected update must not change the value")
	}
	if got := d.ToJSON()["updated"]; got != epoch.Add(5*time.Second).UnixMilli() {
		t.Fatalf("rejected update must not refresh modtime: %v", got)
	}
	if err := d.Update("nope", 1); defender.CodeOf(err) != defender.CodePropertyNotDefined {
		t.Fatalf("want property_not_defined, got %v", err)
	}
}

func TestUpdate_ImmutableKinds(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := newUserSchema(t, clk)
	d := defender.MustValue(s.Load(map[string]any{"name": "alice"}))

	if err := d.Update("id", "other"); defender.CodeOf(err) != defender.CodeValueChangeNotAllowed {
		t.Fatalf("want value_change_not_allowed, got %v", err)
	}
	if err := d.Update("id", "user-1"); err != nil {
		t.Fatalf("rewriting the same token is allowed: %v", err)
	}
	if err := d.Update("updated", epoch.Add(time.Hour)); defender.CodeOf(err) != defender.CodeValueChangeNotAllowed {
		t.Fatalf("want value_change_not_allowed, got %v", err)
	}
	if err := d.Update("updated", epoch.UnixMilli()); err != nil {
		t.Fatalf("rewriting the same timestamp is allowed: %v", err)
	}
	if d.Get("id") != "user-1" {
		t.Fatalf("token changed: %v", d.Get("id"))
	}
}

func TestUpdate_DateTimeBounds(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := defender.NewSchema("event", defender.WithClock(clk))
	defender.Must(s.Define("at", defender.DateTime().Max(clk.Now().Add(1000*time.Millisecond)).DefaultFunc(func() any { return clk.Now() })))

	d, err := s.Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := d.Update("at", epoch.Add(2000*time.Millisecond)); !defender.HasCode(err, defender.CodeInvalidValue) {
		t.Fatalf("want invalid_value past max, got %v", err)
	}
	if err := d.Update("at", epoch.UnixMilli()+1000); err != nil {
		t.Fatalf("bound is inclusive: %v", err)
	}
	if err := d.Update("at", func() time.Time { return epoch.Add(500 * time.Millisecond) }); err != nil {
		t.Fatalf("date producers are resolved: %v", err)
	}
	if got := d.ToJSON()["at"]; got != epoch.UnixMilli()+500 {
		t.Fatalf("stored as epoch ms, got %#v", got)
	}
}

func TestUpdate_DateProducerInvokedOnce(t *testing.T) {
	s := defender.NewSchema("t")
	var seen []any
	defender.Must(s.Define("d", defender.DateTime().Max(int64(1)).DefaultNull().Validate(func(v any) bool {
		seen = append(seen, v)
		return true
	})))
	d := defender.MustValue(s.Load(nil))

	calls := int64(0)
	next := func() int64 { calls++; return calls }
	if err := d.Update("d", next); err != nil {
		t.Fatalf("update: %v", err)
	}
	if calls != 1 {
		t.Fatalf("producer called %d times", calls)
	}
	if got := d.ToJSON()["d"]; got != int64(1) {
		t.Fatalf("stored %#v, want the checked value 1", got)
	}
	if len(seen) != 1 || seen[0] != int64(1) {
		t.Fatalf("validator saw %v", seen)
	}
	if err := d.Update("d", next); !defender.HasCode(err, defender.CodeInvalidValue) {
		t.Fatalf("second result 2 exceeds max, got %v", err)
	}
	if calls != 2 || d.ToJSON()["d"] != int64(1) {
		t.Fatalf("calls=%d stored=%v", calls, d.ToJSON()["d"])
	}
}

func TestNull_AcceptedOnlyWithNullDefault(t *testing.T) {
	s := defender.NewSchema("t")
	defender.Must(s.Define("nick", defender.String().Min(2).DefaultNull()))
	defender.Must(s.Define("name", defender.String().Default("anon")))

	d := defender.MustValue(s.Load(nil))
	if !d.Has("nick") || d.Get("nick") != nil {
		t.Fatalf("null default must be stored")
	}
	if v, ok := d.ToJSON()["nick"]; !ok || v != nil {
		t.Fatalf("ToJSON keeps nulls: %v", d.ToJSON())
	}
	if err := d.Update("nick", "bo"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := d.Update("nick", nil); err != nil {
		t.Fatalf("null is accepted with a null default: %v", err)
	}
	if err := d.Update("name", nil); !defender.HasCode(err, defender.CodeInvalidValue) {
		t.Fatalf("null must be rejected without a null default, got %v", err)
	}
}

func TestNull_RejectedWithoutDefault(t *testing.T) {
	s := defender.NewSchema("t", defender.WithTokenGenerator(idgen.NewSequential("t-")))
	defender.Must(s.Define("id", defender.Unique()))
	defender.Must(s.Define("title", defender.String()))

	if _, err := s.Load(map[string]any{"title": nil}); !defender.HasCode(err, defender.CodeInvalidValue) {
		t.Fatalf("explicit null string must be rejected, got %v", err)
	}
	if _, err := s.Load(map[string]any{"id": nil, "title": "x"}); !defender.HasCode(err, defender.CodeInvalidValue) {
		t.Fatalf("explicit null token must be rejected, got %v", err)
	}

	d := defender.MustValue(s.Load(map[string]any{"title": "x"}))
	if err := d.Update("title", nil); !defender.HasCode(err, defender.CodeInvalidValue) {
		t.Fatalf("want invalid_value for null title, got %v", err)
	}
	if err := d.Update("id", nil); !defender.HasCode(err, defender.CodeInvalidValue) {
		t.Fatalf("want invalid_value for null id, got %v", err)
	}
	if d.Get("id") != "t-1" || d.Get("title") != "x" {
		t.Fatalf("rejected writes must not change data: %v", d.ToJSON())
	}
}

func TestDefaults_ContainersAreNotShared(t *testing.T) {
	s := defender.NewSchema("t")
	defender.Must(s.Define("tags", defender.List().Default([]any{"a"})))

	d1 := defender.MustValue(s.Load(nil))
	d2 := defender.MustValue(s.Load(nil))
	d1.Get("tags").([]any)[0] = "mutated"
	if d2.Get("tags").([]any)[0] != "a" {
		t.Fatalf("default list shared between data objects")
	}
}

func TestToJSON_RoundTrip(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := newUserSchema(t, clk)
	d := defender.MustValue(s.Load(map[string]any{"name": "alice", "age": 41}))

	out := d.ToJSON()
	out["name"] = "mutated"
	if d.Get("name") != "alice" {
		t.Fatalf("ToJSON must return a copy")
	}
	out["name"] = "alice"

	clk.Advance(time.Hour)
	d2, err := s.Load(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(d2.ToJSON(), d.ToJSON()) {
		t.Fatalf("round trip mismatch:\n got=%v\nwant=%v", d2.ToJSON(), d.ToJSON())
	}
}

func TestNestedData_ProjectsThroughToJSON(t *testing.T) {
	address := defender.NewSchema("address")
	defender.Must(address.Define("city", defender.String()))
	address.LockSchema()

	person := defender.NewSchema("person")
	defender.Must(person.Define("name", defender.String()))
	defender.Must(person.Define("address", defender.Map().Min(1).Schema(address)))
	person.LockSchema()

	home := defender.MustValue(address.Load(map[string]any{"city": "Kyoto"}))
	p, err := person.Load(map[string]any{"name": "ann", "address": home})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[string]any{
		"name":    "ann",
		"address": map[string]any{"city": "Kyoto"},
	}
	if got := p.ToJSON(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}

	// the stored value is the live Data, so later nested changes are visible
	defender.Must(home.Update("city", "Osaka"))
	if got := p.ToJSON()["address"].(map[string]any)["city"]; got != "Osaka" {
		t.Fatalf("nested projection is stale: %v", got)
	}
	if _, err := person.Load(map[string]any{"name": "x", "address": map[string]any{}}); !defender.HasCode(err, defender.CodeInvalidValue) {
		t.Fatalf("min key count applies to nested maps, got %v", err)
	}
}

func TestNotifications(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := newUserSchema(t, clk)

	var got []events.Event
	record := func(e events.Event) error {
		got = append(got, e)
		return nil
	}
	bus := events.NewBus(zerolog.Nop())
	var viaBus int
	bus.Subscribe("*", func(events.Event) error { viaBus++; return nil })

	d, err := s.Load(map[string]any{"name": "alice"},
		defender.WithHandler(events.Load, record),
		defender.WithNotifier(bus),
	)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Name != events.Load || got[0].Values["name"] != "alice" || got[0].Values["id"] != "user-1" {
		t.Fatalf("unexpected load notifications: %+v", got)
	}

	got = nil
	d.On(events.Update, record)
	d.On(events.PropertyUpdate("updated"), record)
	d.On("update.*", record)
	clk.Advance(time.Minute)
	defender.Must(d.Update("updated", epoch.UnixMilli()))

	if len(got) != 3 {
		t.Fatalf("want update + update.updated (exact and wildcard), got %+v", got)
	}
	if got[0].Name != events.Update || got[1].Name != "update.updated" || got[2].Name != "update.updated" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if ts, ok := got[0].Value.(time.Time); !ok || !ts.Equal(epoch) {
		t.Fatalf("update carries the external value, got %#v", got[0].Value)
	}

	got = nil
	_ = d.Update("age", -1)
	if len(got) != 0 {
		t.Fatalf("failed updates notify nothing")
	}
	if viaBus != 3 {
		t.Fatalf("notifier should see load and two update events, got %d", viaBus)
	}
}

func TestData_ConcurrentUpdates(t *testing.T) {
	s := newUserSchema(t, clock.Real{})
	d := defender.MustValue(s.Load(map[string]any{"name": "alice"}))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = d.Update("age", n)
			_ = d.ToJSON()
			_ = d.Get("name")
		}(i)
	}
	wg.Wait()
	if n, ok := d.Get("age").(int); !ok || n < 0 || n >= 32 {
		t.Fatalf("unexpected final age: %v", d.Get("age"))
	}
}

func TestUpdate_StringLengthBounds(t *testing.T) {
	s := defender.NewSchema("s")
	defender.Must(s.Define("name", defender.String().Min(2).Max(10).Default("ok")))
	d := defender.MustValue(s.Load(nil))

	for _, v := range []any{"0", "0123456789A", 12345} {
		if err := d.Update("name", v); defender.CodeOf(err) != defender.CodeInvalidValue {
			t.Errorf("update(%v): want invalid_value, got %v", v, err)
		}
	}
	if err := d.Update("name", "Test 101"); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestDataLoad_ValidatorsMayReadTheInstance(t *testing.T) {
	s := defender.NewSchema("t")
	var d *defender.Data
	defender.Must(s.Define("n", defender.Number().DefaultNull().Validate(func(v any) bool {
		_ = d.Get("n")
		return true
	})))
	defender.Must(s.Define("m", defender.Map().DefaultNull()))
	d = defender.MustValue(s.Load(nil))
	other := defender.MustValue(s.Load(map[string]any{"m": d}))

	done := make(chan []error, 1)
	go func() {
		done <- []error{
			d.Load(map[string]any{"n": 1}),
			d.Load(map[string]any{"m": d}),
			d.Update("m", map[string]any{"self": d}),
			d.Update("m", other),
		}
	}()
	select {
	case errs := <-done:
		if errs[0] != nil {
			t.Fatalf("load: %v", errs[0])
		}
		for i, err := range errs[1:] {
			if !defender.HasCode(err, defender.CodeInvalidValue) {
				t.Errorf("write %d: data containing itself must be rejected, got %v", i+1, err)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Load blocked on its own instance")
	}
	if d.Get("n") != 1 || d.Get("m") != nil {
		t.Fatalf("unexpected state: %v", d.ToJSON())
	}
}
