package types

const (
	ContextUserKey = "user"
	SessionCookie  = "token"
)
