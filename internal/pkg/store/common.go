package store

import (
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ougirez/covtrack/internal/pkg/constants"
)

const (
	tableLocations = "locations"
	tableFacts     = "facts"
)

type sqlizer = squirrel.Sqlizer

var mapping = map[error]error{pgx.ErrNoRows: constants.ErrDBNotFound}

// wrapErr maps driver errors onto the error taxonomy. Errors that already
// carry a code pass through untouched.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *constants.CodedError
	if errors.As(err, &coded) {
		return err
	}
	for k, v := range mapping {
		if errors.Is(err, k) {
			return fmt.Errorf("%w: %w", v, err)
		}
	}
	return fmt.Errorf("%w: %w", constants.ErrDB, err)
}

// builder возвращает squirrel SQL Builder обьект.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}
