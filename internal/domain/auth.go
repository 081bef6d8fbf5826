package domain

// ActorType differentiates human callers from automated policies.
type ActorType string

const (
	ActorTypeUser   ActorType = "USER"
	ActorTypeSystem ActorType = "SYSTEM"
)

// Actor is the authenticated identity performing a mutation.
type Actor struct {
	ID   string
	Type ActorType
}

// SystemActor identifies automated policies such as auto-assignment.
func SystemActor(name string) Actor {
	return Actor{ID: name, Type: ActorTypeSystem}
}
