package handlers

const (
	SessionCookieName = "jwt"

	MsgNotLoggedIn       = "You are not logged in. Please log in to get access"
	MsgInvalidSession    = "Invalid or expired session"
	MsgUserGone          = "The user belonging to this token no longer exists"
	MsgStaleSession      = "Password was changed recently, please log in again"
	MsgForbidden         = "You do not have permission to perform this action"
	MsgWrongPassword     = "Current password provided is incorrect"
	MsgInvalidResetToken = "Token is invalid or has expired"
	MsgDeliveryFailed    = "There was an error sending the email. Please try again later"
	MsgResetRequested    = "If that email is registered, a reset link has been sent to it"
	MsgNotPasswordRoute  = "This route is not for password updates. Please use /updatePassword"
	MsgInvalidJSON       = "Request body must be valid JSON"
	MsgBodyTooLarge      = "Request body is too large"
)
