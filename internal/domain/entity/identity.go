package entity

// AuthenticatedIdentity is the caller identity resolved per request from
// a credential. It is never persisted; the review's author field is the
// only durable trace of it.
type AuthenticatedIdentity struct {
	Email string `json:"email"`
}

// Anonymous reports whether no usable identity was resolved. A nil
// receiver is the "no credential at all" case.
func (i *AuthenticatedIdentity) Anonymous() bool {
	return i == nil || i.Email == ""
}
