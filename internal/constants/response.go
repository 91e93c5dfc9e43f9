package constants

import "github.com/gin-gonic/gin"

// Fixed user-visible messages. Login failures must always produce the same
// unauthorized body regardless of whether the login exists, so handlers reply
// with these canned values and never interpolate error details.
const (
	MsgCreated       = "Object successfully created"
	MsgOK            = "Success"
	MsgNotFound      = "Object not found"
	MsgUnauthorized  = "Unauthorized"
	MsgAlreadyExists = "Object already exists"
	MsgTotpNotSynced = "Totp code is not synced"
)

// MsgResponse builds the single-field message body used across the API.
func MsgResponse(msg string) gin.H {
	return gin.H{"msg": msg}
}

// Pagination defaults for the login history endpoint.
const (
	DefaultPageNum   = 1
	DefaultPageItems = 10
	MinPageNum       = 1
	MinPageItems     = 1
	MaxPageItems     = 100
)
