package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres codes that mean the filtered inbox query cannot be served while
// the unfiltered ListAll still can. Missing tables or columns (42P01, 42703)
// are left out: ListAll reads the same columns and would fail the same way.
var queryUnsupportedCodes = map[string]struct{}{
	"0A000": {}, // feature_not_supported
	"42P10": {}, // invalid_column_reference
	"42883": {}, // undefined_function
}

func IsQueryUnsupported(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	_, ok := queryUnsupportedCodes[pgErr.Code]
	return ok
}
