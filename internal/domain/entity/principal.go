package entity

type PrincipalKind string

const (
	PrincipalUser   PrincipalKind = "user"
	PrincipalVendor PrincipalKind = "vendor"
	PrincipalAdmin  PrincipalKind = "admin"
)

// Principal is the resolved identity behind a request, produced once by the
// auth middleware and passed explicitly into every chat operation.
type Principal struct {
	Kind PrincipalKind `json:"kind"`
	ID   string        `json:"id"`
}
