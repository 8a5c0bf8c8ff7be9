package models

// CommandResult is the uniform outcome of every lease command. Failures that a
// caller can act on carry a specific ErrorMessage; infrastructure failures carry a
// generic one so storage details never reach players.
type CommandResult struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
	Data         any    `json:"data,omitempty"`
}

func Succeeded(data any) CommandResult {
	return CommandResult{Success: true, Data: data}
}

func Failed(message string) CommandResult {
	return CommandResult{Success: false, ErrorMessage: message}
}

// Messages surfaced to callers.
const (
	MsgNoActiveRental      = "no active rental"
	MsgTenantMismatch      = "tenant mismatch"
	MsgPaymentMismatch     = "payment method does not match the lease"
	MsgPropertyNotFound    = "property not found"
	MsgOwnedNotEvictable   = "owned properties cannot be evicted"
	MsgConcurrentUpdate    = "property was modified concurrently, please retry"
	MsgInternalError       = "an internal error occurred"
	MsgUnknownCommand      = "unknown command"
	MsgInvalidCommandInput = "invalid command input"
)
