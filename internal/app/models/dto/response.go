package dto

// Messages returned verbatim by the API
const (
	MessageResetRequested  = "If that email address is registered, you will receive a reset code shortly."
	MessagePasswordReset   = "Password has been successfully reset."
	MessageCourseBought    = "Course bought successfully"
	MessageLoggedOut       = "Logged out"
	MessageProgressUpdated = "Progress updated"
)

// MessageResponse is a bare {"message": ...} body
type MessageResponse struct {
	Message string `json:"message"`
}
