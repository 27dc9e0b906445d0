package defender_test

import (
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	defender "github.com/reoring/defender"
	"github.com/reoring/defender/clock"
)

func TestLoadJSON(t *testing.T) {
	s := newUserSchema(t, clock.NewFake(epoch))

	d, err := s.LoadJSON([]byte(`{"name":"alice","age":31}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n, ok := d.Get("age").(json.Number); !ok || n.String() != "31" {
		t.Fatalf("numbers decode as json.Number, got %#v", d.Get("age"))
	}
	if err := d.LoadJSON([]byte(`{"age":-1}`)); !defender.HasCode(err, defender.CodeInvalidValue) {
		t.Fatalf("want invalid_value, got %v", err)
	}
}

func TestLoadJSON_DecodeFailures(t *testing.T) {
	s := newUserSchema(t, clock.NewFake(epoch))

	_, err := s.LoadJSON([]byte(`{"name":`))
	iss, ok := defender.AsIssues(err)
	if !ok || iss[0].Code != defender.CodeParseError || iss[0].Cause == nil {
		t.Fatalf("want parse_error with cause, got %v", err)
	}
	if len(iss.Unwrap()) != 1 || !errors.Is(err, iss[0].Cause) {
		t.Fatalf("cause must be reachable through Unwrap")
	}
	for _, in := range []string{`[1,2]`, `"x"`, `null`} {
		if _, err := s.LoadJSON([]byte(in)); defender.CodeOf(err) != defender.CodeInvalidValue {
			t.Errorf("%s: want invalid_value, got %v", in, err)
		}
	}
}

func TestMarshalJSON(t *testing.T) {
	s := newUserSchema(t, clock.NewFake(epoch))
	d := defender.MustValue(s.Load(map[string]any{"name": "alice", "age": 7}))

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	d2, err := s.LoadJSON(b)
	if err != nil {
		t.Fatalf("reload %s: %v", b, err)
	}
	if d2.Get("id") != d.Get("id") || d2.Get("name") != "alice" {
		t.Fatalf("round trip lost values: %s", b)
	}
	if got := d2.Get("updated").(time.Time); !got.Equal(epoch) {
		t.Fatalf("timestamp round trip: %v", got)
	}
}

func TestLoadJSON_DuplicateKeys(t *testing.T) {
	s := newUserSchema(t, clock.NewFake(epoch))

	_, err := s.LoadJSON([]byte(`{"name":"alice","name":"mallory"}`))
	iss, ok := defender.AsIssues(err)
	if !ok || len(iss) != 1 || iss[0].Code != defender.CodeDuplicateKey || iss[0].Path != "/name" {
		t.Fatalf("want duplicate_key at /name, got %v", err)
	}
	_, err = s.LoadJSON([]byte(`{"name":"alice","tags":[{"k":1,"k":2}]}`))
	if !defender.HasCode(err, defender.CodeDuplicateKey) {
		t.Fatalf("nested duplicates are reported, got %v", err)
	}
}
