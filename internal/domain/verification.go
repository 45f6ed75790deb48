package domain

// MatchStatus classifies the outcome of looking an inbound token up
// against the store.
type MatchStatus int

const (
	MatchNotFound MatchStatus = iota
	MatchExpired
	MatchValid
)

// MatchVerdict is the matcher's answer for one raw token. User is set
// for MatchValid and MatchExpired, nil for MatchNotFound.
type MatchVerdict struct {
	Status MatchStatus
	User   *User
}

// RedemptionOutcome is the terminal result of redeeming a verification token.
type RedemptionOutcome int

const (
	RedemptionNotFound RedemptionOutcome = iota
	RedemptionExpired
	// RedemptionAlreadyVerified is success, not an error: the token was
	// valid but another request (or an earlier click) already consumed it.
	RedemptionAlreadyVerified
	RedemptionVerified
)

type RedemptionResult struct {
	Outcome RedemptionOutcome
	User    *User
}

// ResetOutcome is the terminal result of redeeming a password-reset token.
// There is no "already reset" state; a consumed reset token simply no
// longer matches.
type ResetOutcome int

const (
	ResetNotFound ResetOutcome = iota
	ResetExpired
	ResetApplied
)

type ResetResult struct {
	Outcome ResetOutcome
	User    *User
}
