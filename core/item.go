package core

import "time"

// ItemType classifies inventory items.
type ItemType string

const (
	ItemEquipment  ItemType = "equipment"
	ItemConsumable ItemType = "consumable"
	ItemTrophy     ItemType = "trophy"
)

// EffectType selects how an item effect is applied.
type EffectType string

const (
	EffectFixed      EffectType = "fixed"
	EffectPercentage EffectType = "percentage"
)

// ItemEffect grants experience to one attribute, either a fixed amount or a
// percentage of the attribute's current experience.
type ItemEffect struct {
	Attribute AttrKey    `json:"attribute"`
	Type      EffectType `json:"type"`
	Value     int        `json:"value"`
}

// Item is a collectible owned by the user. Consumables can be used once and
// undone within UndoItemWindow.
type Item struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Type        ItemType     `json:"type"`
	Effects     []ItemEffect `json:"effects,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Used        bool         `json:"used,omitempty"`
	UsedAt      *time.Time   `json:"used_at,omitempty"`
}

// UndoItemWindow bounds how long after use an item can still be undone.
const UndoItemWindow = 2 * time.Hour

// effectDelta resolves an effect against the attribute's current experience.
// Percentage effects floor toward zero.
func effectDelta(currentExp int, e ItemEffect) int {
	if e.Type == EffectPercentage {
		return currentExp * e.Value / 100
	}
	return e.Value
}

// ApplyItemEffects applies the effects to a copy of attrs and returns it
// together with the per-attribute gains that were granted. Percentage
// effects are resolved against the experience at time of use, so the gains
// map is what a reversal must subtract.
func ApplyItemEffects(attrs AttributeSet, effects []ItemEffect) (AttributeSet, map[AttrKey]int) {
	out := attrs.Clone()
	gains := make(map[AttrKey]int)
	for _, e := range effects {
		cur, ok := out[e.Attribute]
		if !ok {
			continue
		}
		delta := effectDelta(cur.Exp, e)
		if delta == 0 {
			continue
		}
		exp := cur.Exp + delta
		out[e.Attribute] = Attribute{Exp: exp, Level: LevelForExp(exp)}
		gains[e.Attribute] += delta
	}
	return out, gains
}

// RevertItemEffects subtracts previously granted gains from a copy of attrs,
// clamping experience at zero.
func RevertItemEffects(attrs AttributeSet, gains map[AttrKey]int) AttributeSet {
	out := attrs.Clone()
	for k, delta := range gains {
		cur, ok := out[k]
		if !ok {
			continue
		}
		exp := cur.Exp - delta
		if exp < 0 {
			exp = 0
		}
		out[k] = Attribute{Exp: exp, Level: LevelForExp(exp)}
	}
	return out
}
