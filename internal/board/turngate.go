package board

// DefaultMessageFloor is how many chat messages must be exchanged before a
// deal can be proposed or the participant can walk away.
const DefaultMessageFloor = 10

// TurnGate derives chat-dependent eligibility from the transport's turn
// signal and the running message count. It never infers turn order itself.
type TurnGate struct {
	IsMyTurn     bool
	MessageCount int
	Floor        int
}

// CanActOnTurn passes the externally delivered turn signal through.
func CanActOnTurn(isMyTurn bool) bool { return isMyTurn }

// MeetsMessageFloor reports whether count has reached floor. A non-positive
// floor uses DefaultMessageFloor.
func MeetsMessageFloor(count, floor int) bool {
	if floor <= 0 {
		floor = DefaultMessageFloor
	}
	return count >= floor
}

// Reasons accumulates every unmet condition, turn first, without
// short-circuiting.
func (g TurnGate) Reasons(requireFloor bool) []Reason {
	var reasons []Reason
	if !CanActOnTurn(g.IsMyTurn) {
		reasons = append(reasons, ReasonNotYourTurn)
	}
	if requireFloor && !MeetsMessageFloor(g.MessageCount, g.Floor) {
		reasons = append(reasons, ReasonMessageFloor)
	}
	return reasons
}
