// Package combat resolves troop attacks between the two sides of a match.
//
// The same formula serves both sides; callers never compute damage inline.
package combat

// Combat tuning constants.
const (
	// DamagePerTroop is the raw damage each committed troop inflicts.
	DamagePerTroop = 10
	// ScorePerDamage is the attacker score credit per point of damage dealt.
	ScorePerDamage = 0.5
	// MaxTroopsPerAttack caps how many troops the computer side commits at once.
	MaxTroopsPerAttack = 5
)

// Defender captures the defending side's state at the moment of an attack.
type Defender struct {
	// Defense is subtracted from the (possibly halved) raw damage.
	Defense int
	// Fortified is true when the defender fortified its house this turn.
	Fortified bool
}

// Outcome summarises a resolved attack.
type Outcome struct {
	// TroopsSent is the number of troops committed.
	TroopsSent int
	// RawDamage is TroopsSent * DamagePerTroop before any mitigation.
	RawDamage int
	// Halved is true when fortification halved the raw damage.
	Halved bool
	// Damage is the health actually removed from the defender.
	Damage int
}

// Blocked reports whether troops were sent but no damage got through.
func (o Outcome) Blocked() bool {
	return o.TroopsSent > 0 && o.Damage == 0
}

// ScoreCredit returns the score the attacker earns for this attack.
//
// Postcondition: Returns Damage * ScorePerDamage.
func (o Outcome) ScoreCredit() float64 {
	return float64(o.Damage) * ScorePerDamage
}
