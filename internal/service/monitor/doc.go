// Package monitor implements the escalation state machine that turns
// sustained drowsiness into an emergency alert.
//
// Each driver key is Idle or Pending. The first drowsy event arms a single
// dwell timer; a normal event cancels it; once the dwell elapses exactly one
// alert fires and the driver returns to Idle, ready for a fresh episode.
// Timer entries are cleared before any side effect runs, so firing and
// cancellation are mutually exclusive even when they race. Episodes live in
// process memory only and do not survive a restart.
package monitor
