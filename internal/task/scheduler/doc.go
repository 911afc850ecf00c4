// Package scheduler triggers the broadcast job on a fixed period.
//
// There is exactly one job. Its period is set at construction and cannot be
// changed at runtime; admins can only start and stop it. Both transitions are
// idempotent:
//
//	Stopped --Start--> Running --Stop--> Stopped
package scheduler
