// Package mappings persists per-identity button assignments: which numbered
// button selects which property once an entity with that identity is
// focused. Records live in SQLite keyed by a sanitized identity; a JSON
// export/import path covers sharing mappings between machines.
package mappings
