// Package calibration defines the types shared by the measurement
// controller, the daemon and its clients. It contains:
//
//   - TaskKind and State: what the controller is doing and where it is
//   - the task requests accepted by the controller and the HTTP API
//   - Outcome and Status: the result of the last task and a live snapshot
//   - the measured artifacts (series, fits, color table and evaluation rows)
//     and their export rows
//
// Keeping them in one place keeps the JSON contracts of the daemon and the
// client consistent.
package calibration
