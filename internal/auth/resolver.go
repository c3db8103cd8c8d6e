package auth

// Identity is the summary the access gate works with. It never carries the
// raw credential.
type Identity struct {
	UserID uint64
	Label  string
}

func (i *Identity) IsGuest() bool {
	return i != nil && IsGuestLabel(i.Label)
}

// Resolver turns an inbound credential into an Identity, or nil. Absent,
// malformed and expired tokens all resolve to nil: the gate must not be able
// to distinguish them.
type Resolver struct {
	secret string
}

func NewResolver(secret string) *Resolver {
	return &Resolver{secret: secret}
}

func (r *Resolver) Resolve(token string) *Identity {
	if token == "" {
		return nil
	}
	claims, err := ParseJWT(token, r.secret)
	if err != nil {
		return nil
	}
	return &Identity{UserID: claims.UserID, Label: claims.Email}
}
