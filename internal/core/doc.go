// Package core provides the business logic for spreadsheet datasets.
//
// This package holds all domain logic independent of any UI or transport
// layer. The web package and tests drive it directly.
//
// # Architecture
//
//   - Selector: [Select] reconciles a user's sheet and column choices into
//     union columns plus the projected rows to persist.
//   - DatasetStore: owns persisted datasets and their rows. All writes go
//     through its four mutating operations, and rows are written in fixed
//     size batches.
//   - Coordinator: previews uploads, serves rows back out in sheet shape and
//     saves edited rows.
//   - IngestService: the upload path. It parses the file, applies the
//     selection, keeps the original on disk and persists the result. An
//     [IngestLimiter] bounds how many run at once.
//   - Directory: the static login allow-list.
//
// # Persisted Shape
//
// A dataset's metadata columns are the union of every selected sheet's
// columns. Each persisted row only carries its own sheet's selected columns,
// so readers must treat a missing key as null:
//
//	sheet A [x y] + sheet B [y z]  ->  columns [x y z]
//	row from A: {x, y}             ->  no z key, not even null
//
// # Errors
//
// Failures are classified by [StatusCode] and translated for users by
// [MapError]. See errors.go for the taxonomy.
package core
