// Package testutil provides deterministic fakes for sheet and store tests:
// a resettable revision clock, a scripted entity, a host window with
// prepare hooks, and a view that records every value it is notified with.
package testutil
