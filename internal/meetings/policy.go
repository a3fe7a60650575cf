package meetings

import "github.com/mepad/mepad-server/internal/identity"

// Access is the caller's relationship to a meeting, resolved once per
// request and consulted by every mutating operation.
type Access struct {
	IsCreator     bool
	IsParticipant bool
}

// ResolveAccess derives the caller's access to a meeting. Participant
// membership is always re-derived by comparing the caller's account email
// against the embedded participant emails; there is no join table.
func ResolveAccess(m *Meeting, caller *identity.User) Access {
	if caller == nil {
		return Access{}
	}
	a := Access{IsCreator: m.CreatedBy == caller.ID}
	if m.FindParticipant(caller.Email) != nil {
		a.IsParticipant = true
	}
	return a
}

// CanView reports whether the caller may read the meeting.
func (a Access) CanView() bool {
	return a.IsCreator || a.IsParticipant
}

// CanEditActionPoints reports whether the caller may add action points or
// update their status.
func (a Access) CanEditActionPoints() bool {
	return a.IsCreator || a.IsParticipant
}
