// Package models holds the GORM row types behind the persistence repositories.
//
// Domain types in internal/domain carry no ORM tags. Each row type here has a
// ToDomain method and a FromDomain counterpart, and the repositories only ever
// hand domain values across the package boundary.
//
// The tables themselves are created by the SQL files in migrations/. AutoMigrate
// on these types is only used by the SQLite-backed tests.
package models
