package ports

// Metrics records protocol outcomes
type Metrics interface {
	SessionIssued()
	Authenticated(ok bool)
	StarRegistered()
}
