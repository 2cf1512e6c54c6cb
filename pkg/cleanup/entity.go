package cleanup

import "fmt"

// Kind identifies the type of a tracked remote entity.
type Kind string

const (
	KindUser        Kind = "user"
	KindApplication Kind = "application"
	KindSession     Kind = "session"
)

// deletionOrder is the order the Executor deletes kinds in. Sessions
// reference users and applications, so they go first.
var deletionOrder = []Kind{KindSession, KindApplication, KindUser}

// Kinds returns all entity kinds in deletion order.
func Kinds() []Kind {
	return append([]Kind(nil), deletionOrder...)
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindUser, KindApplication, KindSession:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
}

// Entity is a remote record created by a test.
type Entity struct {
	Kind  Kind   `json:"kind"`
	ID    string `json:"id"`
	Label string `json:"label,omitempty"` // e.g. the user's email, only used in logs
}

// String returns "kind:id" or "kind:id (label)".
func (e Entity) String() string {
	if e.Label != "" {
		return fmt.Sprintf("%s:%s (%s)", e.Kind, e.ID, e.Label)
	}
	return fmt.Sprintf("%s:%s", e.Kind, e.ID)
}

// User returns a user Entity.
func User(id, email string) Entity {
	return Entity{Kind: KindUser, ID: id, Label: email}
}

// Application returns an application Entity.
func Application(id, name string) Entity {
	return Entity{Kind: KindApplication, ID: id, Label: name}
}

// Session returns a session Entity.
func Session(id string) Entity {
	return Entity{Kind: KindSession, ID: id}
}

// Status counts the entities tracked under one identifier.
type Status struct {
	Users        int `json:"users"`
	Applications int `json:"applications"`
	Sessions     int `json:"sessions"`
}

// Total returns the number of tracked entities across all kinds.
func (s Status) Total() int {
	return s.Users + s.Applications + s.Sessions
}

func (s *Status) add(k Kind, n int) {
	switch k {
	case KindUser:
		s.Users += n
	case KindApplication:
		s.Applications += n
	case KindSession:
		s.Sessions += n
	}
}
