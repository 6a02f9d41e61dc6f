// Package simulation provides a multi-tick test harness for validating
// emergent dynamics of the tick scheduler.
//
// The simulation exercises the real Engine, the trial loader, and the
// SQLiteRunStore — no mocks. Trials are declarative initial states (anchors,
// identities, field seeds, scheduled probes) run through the real tick loop,
// with every snapshot persisted and re-read through the store so assertions
// see exactly what an operator would.
//
// Each test gets an isolated SQLite database via t.TempDir() and a sandboxed
// HOME to prevent touching user data.
//
// Usage:
//
//	func TestCoexistenceBreaks(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(&scenario.Trial{...}, nil, 10)
//	    simulation.AssertAncestryAt(t, result, 10, "idn-000002", "ABC_1")
//	}
package simulation
