package ports

import "fmt"

// Phase is a named stage in the fixed execution order a request passes
// through. The order is a total order fixed at configuration time; no two
// phases interleave for a single request and no phase is re-entered.
type Phase string

const (
	PreEarlyRequest    Phase = "PreEarlyRequest"
	EarlyRequest       Phase = "EarlyRequest"
	PostEarlyRequest   Phase = "PostEarlyRequest"
	PreAuthentication  Phase = "PreAuthentication"
	Authentication     Phase = "Authentication"
	PostAuthentication Phase = "PostAuthentication"
	PreAuthorization   Phase = "PreAuthorization"
	Authorization      Phase = "Authorization"
	PostAuthorization  Phase = "PostAuthorization"
	PreContent         Phase = "PreContent"
	Content            Phase = "Content"
	PostContent        Phase = "PostContent"
	PreAccounting      Phase = "PreAccounting"
	Accounting         Phase = "Accounting"
	PostAccounting     Phase = "PostAccounting"
	PreErrorHandling   Phase = "PreErrorHandling"
	ErrorHandling      Phase = "ErrorHandling"
	PostErrorHandling  Phase = "PostErrorHandling"
	PreLateRequest     Phase = "PreLateRequest"
	LateRequest        Phase = "LateRequest"
	PostLateRequest    Phase = "PostLateRequest"
)

// DefaultPhases returns the built-in execution order: each major stage
// bracketed by a Pre and Post hook phase.
func DefaultPhases() []Phase {
	return []Phase{
		PreEarlyRequest, EarlyRequest, PostEarlyRequest,
		PreAuthentication, Authentication, PostAuthentication,
		PreAuthorization, Authorization, PostAuthorization,
		PreContent, Content, PostContent,
		PreAccounting, Accounting, PostAccounting,
		PreErrorHandling, ErrorHandling, PostErrorHandling,
		PreLateRequest, LateRequest, PostLateRequest,
	}
}

var knownPhases = func() map[Phase]struct{} {
	m := make(map[Phase]struct{})
	for _, p := range DefaultPhases() {
		m[p] = struct{}{}
	}
	return m
}()

// ParsePhase validates a configuration string against the known phase set.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if _, ok := knownPhases[p]; !ok {
		return "", fmt.Errorf("unknown phase %q", s)
	}
	return p, nil
}
