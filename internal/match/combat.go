package match

import "math"

// Defaults used when an attack omits damage or range.
const (
	DefaultDamage = 10.0
	DefaultRange  = 200.0
)

// Attack is the damage and reach of a single attack. Nil fields take the defaults.
type Attack struct {
	Damage *float64
	Range  *float64
}

// Outcome describes what an attack did to its target.
type Outcome struct {
	Hit    bool
	Damage int // health actually removed
	Killed bool
}

// ResolveAttack applies atk from attacker to target.
// The attacker connects only when the target is within range and on the side
// the attacker is facing. Equal x never connects. Target health never drops
// below zero, and a target reaching zero is marked dead.
func ResolveAttack(attacker, target *PlayerSlot, atk Attack) Outcome {
	if attacker == nil || target == nil {
		return Outcome{}
	}
	if !attacker.Connected || !target.Connected || attacker.IsDead || target.IsDead {
		return Outcome{}
	}

	damage := DefaultDamage
	if atk.Damage != nil {
		damage = *atk.Damage
	}
	reach := DefaultRange
	if atk.Range != nil {
		reach = *atk.Range
	}
	if !finite(damage) || !finite(reach) {
		return Outcome{}
	}

	distance := math.Abs(attacker.X - target.X)
	if distance > reach || !facingTarget(attacker, target) {
		return Outcome{}
	}

	// Bound before converting; floats past the int range do not convert.
	damage = math.Min(damage, float64(target.Health))
	dealt := int(math.Round(damage))
	if dealt < 0 {
		dealt = 0
	}
	before := target.Health
	target.Health = max(0, target.Health-dealt)
	if target.Health == 0 {
		target.IsDead = true
	}

	return Outcome{Hit: true, Damage: before - target.Health, Killed: target.IsDead}
}

func facingTarget(attacker, target *PlayerSlot) bool {
	if attacker.FacingRight {
		return target.X > attacker.X
	}
	return target.X < attacker.X
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
