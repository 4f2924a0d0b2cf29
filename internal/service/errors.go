package service

import "errors"

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrDisplayNameTaken   = errors.New("display name already taken")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrWrongPassword      = errors.New("current password provided is incorrect")

	// Session failures reported by Authenticate
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrUserGone       = errors.New("the user belonging to this token no longer exists")
	ErrStaleSession   = errors.New("password was changed recently, please log in again")

	ErrInvalidResetToken = errors.New("token is invalid or has expired")
	ErrDeliveryFailed    = errors.New("there was an error sending the email, try again later")

	ErrUserNotFound = errors.New("user not found")
	ErrPostNotFound = errors.New("post not found")
	ErrTitleTaken   = errors.New("a post with this title already exists")
)
