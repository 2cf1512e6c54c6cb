// Package cleanup coordinates the lifecycle of remote fixtures created by
// end-to-end tests.
//
// Tests record the users, applications and sessions they create in an
// EntityTracker under a cleanup identifier (per test or per suite). When a
// test attempt finishes, a Policy decides, from the retry index, the retry
// ceiling, the attempt status and the test's position in its suite, whether
// the Executor should delete everything tracked for that identifier now.
//
// The Executor deletes sessions, then applications, then users. Deleting an
// entity that is already gone counts as success. Any other failure is
// recorded and the remaining deletes still run. Once an identifier has been
// processed it is marked complete and later calls are no-ops, so a per-test
// teardown and a suite-level teardown can both ask for cleanup safely.
//
// All state is owned by a Registry constructed once per test binary and
// passed to fixtures explicitly. Nothing here is a package-level singleton.
package cleanup
