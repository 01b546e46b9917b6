package voting

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalid          = errors.New("invalid request")
	ErrNotOpen          = errors.New("election is not open for voting")
	ErrAlreadyVoted     = errors.New("already voted in this election")
	ErrIncompleteBallot = errors.New("incomplete ballot")
	ErrInvalidCandidate = errors.New("invalid candidate")
	ErrNotAvailable     = errors.New("results are not yet available")
	ErrNotEligible      = errors.New("voter is not eligible for this election")
)

// Reasons attached to ErrNotOpen.
const (
	ReasonNotStarted  = "not_started"
	ReasonEnded       = "ended"
	ReasonInactive    = "inactive"
	ReasonNoPositions = "no_positions"
)

// Reasons attached to ErrNotEligible.
const (
	ReasonAccountInactive = "account_inactive"
	ReasonEmailUnverified = "email_unverified"
	ReasonDepartment      = "department"
)

// Error is a user-facing voting outcome. Kind is one of the sentinel errors above,
// so callers match with errors.Is.
type Error struct {
	Kind       error
	Msg        string
	Reason     string
	Position   string
	ElectionID string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Code returns the stable machine-readable code for err, or "internal" for infrastructure failures.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalid):
		return "invalid"
	case errors.Is(err, ErrNotOpen):
		return "not_open"
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, ErrIncompleteBallot):
		return "incomplete_ballot"
	case errors.Is(err, ErrInvalidCandidate):
		return "invalid_candidate"
	case errors.Is(err, ErrNotAvailable):
		return "not_available"
	case errors.Is(err, ErrNotEligible):
		return "not_eligible"
	default:
		return "internal"
	}
}

// IsUserError reports whether err is an expected outcome rather than a server fault.
func IsUserError(err error) bool {
	var verr *Error
	return errors.As(err, &verr)
}

func notFound(msg string) error {
	return &Error{Kind: ErrNotFound, Msg: msg}
}

func invalid(msg string) error {
	return &Error{Kind: ErrInvalid, Msg: msg}
}
