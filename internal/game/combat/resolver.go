package combat

// Source is the subset of dice.Source used for troop sampling.
// Using a local interface avoids a circular import.
type Source interface {
	Float64() float64
}

// Resolve applies the attack formula for troops committed against def.
//
// raw = troops * DamagePerTroop; halved (floored) when def.Fortified;
// damage = max(0, raw - def.Defense).
//
// Precondition: troops >= 0.
// Postcondition: Damage >= 0 and Damage <= RawDamage.
func Resolve(troops int, def Defender) Outcome {
	if troops < 0 {
		troops = 0
	}
	raw := troops * DamagePerTroop
	dmg := raw
	if def.Fortified {
		dmg = dmg / 2
	}
	dmg -= def.Defense
	if dmg < 0 {
		dmg = 0
	}
	return Outcome{
		TroopsSent: troops,
		RawDamage:  raw,
		Halved:     def.Fortified,
		Damage:     dmg,
	}
}

// SampleTroops picks how many troops the computer side commits:
// floor(min(MaxTroopsPerAttack, available) * (0.3 + 0.7*r)), raised to 1
// whenever any troops are available.
//
// Precondition: src must be non-nil.
// Postcondition: 0 <= result <= available; result >= 1 iff available > 0.
func SampleTroops(available int, src Source) int {
	if available <= 0 {
		return 0
	}
	limit := available
	if limit > MaxTroopsPerAttack {
		limit = MaxTroopsPerAttack
	}
	n := int(float64(limit) * (0.3 + 0.7*src.Float64()))
	if n < 1 {
		n = 1
	}
	if n > limit {
		n = limit
	}
	return n
}
