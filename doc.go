// Package defender provides:
//
// - Named, lockable schemas of typed property constraints (Registry/Schema/Define)
// - Mutable Data objects whose every write is checked against the schema (Load/Update)
// - A stable error model via Issues (JSON Pointer, code, message)
// - Change notifications delivered through events.Bus or any Notifier
//
// Design policy:
// - Keep only public APIs in the root package; helpers live in clock/, idgen/, events/ and i18n/.
// - Schema files (YAML) are loaded by schemafile/, and the CLI lives under cmd/defender.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	user := defender.MustValue(defender.Create("user"))
//	defender.Must(user.Define("id", defender.Unique()))
//	defender.Must(user.Define("name", defender.String().Min(2).Max(10)))
//	defender.Must(user.Define("age", defender.Number().Min(0).Default(20)))
//	defender.Must(user.Define("updated", defender.AutoTimestamp().DefaultFunc(func() any { return time.Now() })))
//	user.LockSchema()
//
//	d, err := user.Load(map[string]any{"name": "alice"})
//	err = d.Update("age", 31)
//	out := d.ToJSON()
package defender
