package models

import "strings"

// UnlockRequest is the admin unlock body.
type UnlockRequest struct {
	Identifier string `json:"identifier" validate:"required,notblank,max=320"`
}

func (r *UnlockRequest) Normalize() {
	r.Identifier = NormalizeIdentifier(r.Identifier)
}

// ResetBucketRequest is the admin bucket reset body.
type ResetBucketRequest struct {
	ClientID string `json:"client_id" validate:"required,notblank,max=256"`
	Class    string `json:"class" validate:"required,oneof=search purchase stream analytics"`
}

func (r *ResetBucketRequest) Normalize() {
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.Class = strings.ToLower(strings.TrimSpace(r.Class))
}

// LoginAttemptRequest is the body of the login-attempt probe routes. The
// source address and User-Agent come from the request itself.
type LoginAttemptRequest struct {
	Identifier string `json:"identifier" validate:"required,notblank,max=320"`
}

func (r *LoginAttemptRequest) Normalize() {
	r.Identifier = NormalizeIdentifier(r.Identifier)
}
