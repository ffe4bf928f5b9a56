package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique key (threshold metric, username) is already taken
var ErrDuplicate = errors.New("duplicate record")

// translate maps gorm's sentinel errors onto the repository's and passes others through
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
