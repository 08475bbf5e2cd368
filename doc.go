// Package memberauth implements the authentication and authorization layer
// for the club membership HTTP API: bearer credential issuance and
// verification, role based route gating, and the password reset lifecycle
// backed by single use, time limited secrets.
//
// The package is transport aware but store agnostic: persistence, outbound
// mail, and object storage are collaborators injected behind small
// interfaces. Tokens are stateless JWTs; the only server side invalidation
// mechanism is the password_changed_at comparison performed by the
// authentication gate.
package memberauth
