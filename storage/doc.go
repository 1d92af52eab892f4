// Package storage persists users, courses, class sessions, and class
// memberships through GORM.
//
// Every operation that touches a capacity counter runs inside one database
// transaction: join and leave pair the membership row change with a guarded
// counter update, so a failed or cancelled request never leaves a half-applied
// state behind. Guarded updates (available_spots > 0 on join,
// available_spots < total_max_spots on leave) keep the counter inside
// [0, total_max_spots] even when the dialect ignores row locks.
//
// # Drivers
//
//   - sqlite: development and tests. A single connection serializes writers.
//   - postgres: production. Join and leave take SELECT ... FOR UPDATE on the
//     class session row.
//   - mysql: supported for deployments that already run MySQL.
//
// # What this package must NOT do
//
//   - Decide who may call an operation. Authorization lives in the engine.
//   - Retry failed transactions.
package storage
