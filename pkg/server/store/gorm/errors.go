package gorm

import (
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"gorm.io/gorm"

	"github.com/halyard-advisory/halyard/pkg/server/store"
)

const (
	uniqueViolation = "23505"
	usersEmailKey   = "users_email_key"
)

// translateError maps driver and GORM errors onto the store sentinels
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == usersEmailKey {
			return store.ErrEmailInUse
		}
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
