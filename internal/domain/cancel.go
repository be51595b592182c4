package domain

// CancelRequest names who is cancelling and with what authority. The set of
// implementations is closed: only BySelf and ByAdmin exist.
type CancelRequest interface {
	ActorID() int
	Authority() CancelAuthority
	sealed()
}

type CancelAuthority string

const (
	AuthoritySelf  CancelAuthority = "SELF"
	AuthorityAdmin CancelAuthority = "ADMIN"
)

// BySelf is an owner cancelling their own reservation. Only allowed while the
// reservation window has not fully elapsed.
type BySelf struct {
	UserID int
}

// ByAdmin is a forced cancellation. No time gate and no ownership check.
type ByAdmin struct {
	AdminID int
}

func (r BySelf) ActorID() int               { return r.UserID }
func (r BySelf) Authority() CancelAuthority { return AuthoritySelf }
func (BySelf) sealed()                      {}

func (r ByAdmin) ActorID() int               { return r.AdminID }
func (r ByAdmin) Authority() CancelAuthority { return AuthorityAdmin }
func (ByAdmin) sealed()                      {}
