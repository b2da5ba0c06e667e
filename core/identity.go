package core

// Roles
const (
	RoleLearner    = "learner"
	RoleInstructor = "instructor"
)

// Identity is the already-authenticated caller, supplied by the session
// collaborator. The engine never validates credentials; it only layers
// ownership and role checks on top of this value.
type Identity struct {
	ID          string
	Role        string
	DisplayName string
	Email       string
}

func (id Identity) IsInstructor() bool {
	return id.Role == RoleInstructor
}

func (id Identity) IsLearner() bool {
	return id.Role == RoleLearner
}
