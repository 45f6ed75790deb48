package handler

const (
	errInternalServer     = "Internal server error"
	errEmailTaken         = "Email already in use"
	errUsernameTaken      = "Username already taken"
	errPasswordMismatch   = "Passwords do not match"
	errInvalidCredentials = "Invalid email/username or password"
	errUserNotFound       = "User not found"
	// One message for both expired and unknown tokens, see VerifyEmail.
	errLinkInvalid = "Invalid or expired link"
)
