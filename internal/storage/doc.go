// Package storage provides the SQLite-backed repositories for users, phone
// numbers, bookings and documents, with versioned schema migrations keyed on
// PRAGMA user_version.
package storage
