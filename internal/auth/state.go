package auth

type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateRefreshing     State = "refreshing"

	// Passed through on logout, the manager settles in StateAnonymous right after
	StateLoggedOut State = "logged_out"
)

// Observer is called on every state change, from the goroutine that caused it
// It must not call the manager back
type Observer func(from, to State)
