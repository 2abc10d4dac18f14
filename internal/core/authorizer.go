package core

// Authorizer decides whether a connection may join a store room.
type Authorizer interface {
	CanJoin(p Principal, storeID string) bool
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(p Principal, storeID string) bool

// CanJoin calls f.
func (f AuthorizerFunc) CanJoin(p Principal, storeID string) bool {
	return f(p, storeID)
}

// PrincipalAuthorizer allows a join when the principal's token lists the store.
var PrincipalAuthorizer Authorizer = AuthorizerFunc(Principal.CanWatch)
