package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// translate maps gorm sentinel errors onto the model errors the services
// branch on. Anything else is returned untouched.
func translate(err error, notFound error, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case duplicate != nil && errors.Is(err, gorm.ErrDuplicatedKey):
		return duplicate
	}
	return err
}
