// Package repositories implements SQLite persistence for the little state setlist keeps locally.
//
//   - [SessionRepository] : the single persisted credential slot, satisfying session.Persister
//   - [ExportRepository] : history of playlist exports, implementing [models.Repository]
//
// Tables are created by the embedded migrations in the shared package.
package repositories
