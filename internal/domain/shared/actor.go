package shared

import "strings"

// Actor is the opaque authenticated identifier supplied by the identity
// service for every mutating call. It is recorded on audit rows but never
// interpreted by the domain.
type Actor string

// Validate returns an error if the actor is empty
func (a Actor) Validate() error {
	if strings.TrimSpace(string(a)) == "" {
		return ErrMissingActor
	}
	return nil
}

// String returns the actor identifier
func (a Actor) String() string {
	return string(a)
}
