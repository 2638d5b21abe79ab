package models

import (
	"errors"
	"fmt"
	"time"
)

// Expected, user-recoverable failures of the wiki core. Storage and transport
// errors are never wrapped in these types.

type ErrorNotFound struct {
	Message string
}

func (e ErrorNotFound) Error() string { return e.Message }

// ErrorNoVersions means the article exists but has never been edited.
type ErrorNoVersions struct {
	ArticleID uint
}

func (e ErrorNoVersions) Error() string {
	return fmt.Sprintf("article %d has no versions", e.ArticleID)
}

type ErrorDuplicateTitle struct {
	Title string
}

func (e ErrorDuplicateTitle) Error() string {
	return fmt.Sprintf("an article titled %q already exists", e.Title)
}

type ErrorPermissionDenied struct {
	Message string
}

func (e ErrorPermissionDenied) Error() string { return e.Message }

type ErrorUnauthorized struct {
	Message string
}

func (e ErrorUnauthorized) Error() string { return e.Message }

// ErrorLockContention is returned when another holder owns the write lease.
type ErrorLockContention struct {
	Holder    string
	ExpiresAt time.Time
}

func (e ErrorLockContention) Error() string {
	return "Someone else is currently editing this page, please wait and try again."
}

// ErrorLockLost is returned on submission when the caller's lease is gone.
type ErrorLockLost struct{}

func (e ErrorLockLost) Error() string {
	return "Your session timed out and someone else is now editing this page."
}

type ErrorValidation struct {
	Field   string
	Message string
}

func (e ErrorValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

type ErrorConflict struct {
	Message string
}

func (e ErrorConflict) Error() string { return e.Message }

// ErrorRedirectLoop is returned when a redirect chain is longer than allowed.
type ErrorRedirectLoop struct {
	Title string
	Hops  int
}

func (e ErrorRedirectLoop) Error() string {
	return fmt.Sprintf("redirect chain starting at %q exceeds %d hops", e.Title, e.Hops)
}

func IsNotFound(err error) bool {
	var nf ErrorNotFound
	return errors.As(err, &nf)
}

func IsNoVersions(err error) bool {
	var nv ErrorNoVersions
	return errors.As(err, &nv)
}
