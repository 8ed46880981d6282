package threshold

import "github.com/avelsh/crossarb/internal/domain"

// TargetSource exposes learned thresholds. *Tracker implements it.
type TargetSource interface {
	Target(key Key) (float64, bool)
}

// Resolver turns a deal direction into the target profit for a directed key:
// the static open/close values (mean for half_close), overridden by a learned
// threshold when the tracker holds one for the key. A learned value below
// zero is only honored for close deals, where chasing negative apparent
// profit reduces risk instead of opening new risk; any other direction on
// such a key is refused outright, since its learned distribution says the
// direction cannot clear fees.
type Resolver struct {
	ProfitOpen  float64
	ProfitClose float64
	Learned     TargetSource
}

// Resolve returns the target profit for the key and direction. The second
// return is false when the direction must not trade on this key at all.
func (r Resolver) Resolve(key Key, dir domain.Direction) (float64, bool) {
	base := r.base(dir)
	if r.Learned == nil {
		return base, true
	}
	learned, ok := r.Learned.Target(key)
	if !ok {
		return base, true
	}
	if learned < 0 && dir != domain.DirectionClose {
		return 0, false
	}
	return learned, true
}

func (r Resolver) base(dir domain.Direction) float64 {
	switch dir {
	case domain.DirectionOpen:
		return r.ProfitOpen
	case domain.DirectionClose:
		return r.ProfitClose
	default:
		return (r.ProfitOpen + r.ProfitClose) / 2
	}
}
