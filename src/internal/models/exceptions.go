package models

import "errors"

var (
	ErrRedisGet    = errors.New("redis get error")
	ErrRedisSet    = errors.New("redis set error")
	ErrRedisDelete = errors.New("redis delete error")
)

var (
	ErrValidation         = errors.New("missing or malformed input")
	ErrEmailTaken         = errors.New("email is already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionCreating = errors.New("error creating session")
	ErrSessionDeleting = errors.New("error deleting session")
)

var (
	ErrAccessTokenInvalid = errors.New("invalid access token")
)

var (
	ErrListNotFound = errors.New("list not found")
	ErrTaskNotFound = errors.New("task not found")
)

var (
	ErrDatabaseQuery  = errors.New("database query error")
	ErrDatabaseInsert = errors.New("database insert error")
	ErrDatabaseUpdate = errors.New("database update error")
	ErrDatabaseDelete = errors.New("database delete error")
)
