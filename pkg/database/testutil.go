package database

import (
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

// NewMockPool creates a pgxmock pool for repository tests. The pool
// satisfies DBTX, so it can be handed to any repository constructor in
// place of a *pgxpool.Pool. Finish each test with ExpectationsWereMet.
func NewMockPool() (pgxmock.PgxPoolIface, error) {
	return pgxmock.NewPool()
}
