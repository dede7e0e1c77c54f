package authkit

// ClaimsDecorator can mutate allowed claim extensions before a token is
// signed. Implementations may only touch the Metadata extension and must
// leave registered/identity claims untouched so core token semantics stay
// stable; mutations of protected claims are rejected at signing time.
type ClaimsDecorator interface {
	Decorate(identity Identity, claims *TokenClaims) error
}

// ClaimsDecoratorFunc adapts a function into a ClaimsDecorator.
type ClaimsDecoratorFunc func(identity Identity, claims *TokenClaims) error

// Decorate satisfies the ClaimsDecorator interface.
func (f ClaimsDecoratorFunc) Decorate(identity Identity, claims *TokenClaims) error {
	if f == nil {
		return nil
	}
	return f(identity, claims)
}

type noopClaimsDecorator struct{}

func (noopClaimsDecorator) Decorate(Identity, *TokenClaims) error {
	return nil
}

func normalizeClaimsDecorator(d ClaimsDecorator) ClaimsDecorator {
	if d == nil {
		return noopClaimsDecorator{}
	}
	return d
}
