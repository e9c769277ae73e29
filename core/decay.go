package core

import "time"

// DecayConfig describes how an attribute loses experience when it goes
// unexercised: after InactiveThreshold days without a positive-gain event,
// the attribute loses DecayRate of its experience per additional day.
type DecayConfig struct {
	InactiveThreshold int     `json:"inactive_threshold"`
	DecayRate         float64 `json:"decay_rate"`
}

// DecayTable holds the per-attribute decay configuration.
type DecayTable map[AttrKey]DecayConfig

// DefaultDecayTable returns the built-in decay schedule. Physical attributes
// fade quickly, knowledge and creativity linger.
func DefaultDecayTable() DecayTable {
	return DecayTable{
		AttrInt: {InactiveThreshold: 14, DecayRate: 0.005},
		AttrStr: {InactiveThreshold: 7, DecayRate: 0.01},
		AttrVit: {InactiveThreshold: 5, DecayRate: 0.008},
		AttrCha: {InactiveThreshold: 10, DecayRate: 0.007},
		AttrEQ:  {InactiveThreshold: 12, DecayRate: 0.006},
		AttrCre: {InactiveThreshold: 21, DecayRate: 0.004},
	}
}

// Clone returns a copy of the table.
func (t DecayTable) Clone() DecayTable {
	cp := make(DecayTable, len(t))
	for k, v := range t {
		cp[k] = v
	}
	return cp
}

// DecayWarning reports either applied decay (DaysSinceLastEvent/DecayAmount)
// or an attribute approaching its inactivity threshold (DaysUntilDecay).
type DecayWarning struct {
	Attribute          AttrKey `json:"attribute"`
	DaysSinceLastEvent int     `json:"days_since_last_event,omitempty"`
	DecayAmount        int     `json:"decay_amount,omitempty"`
	DaysUntilDecay     int     `json:"days_until_decay,omitempty"`
}

// DecayResult is the outcome of a decay pass.
type DecayResult struct {
	Updated  AttributeSet
	Warnings []DecayWarning
}

// lastPositiveTouch finds the most recent event granting positive experience
// to k. Event order is not assumed.
func lastPositiveTouch(events []Event, k AttrKey) (time.Time, bool) {
	var last time.Time
	found := false
	for _, e := range events {
		if e.ExpGains[k] <= 0 {
			continue
		}
		if !found || e.Timestamp.After(last) {
			last = e.Timestamp
			found = true
		}
	}
	return last, found
}

func daysBetween(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// ComputeDecay applies "use it or lose it" to every configured attribute and
// returns a fresh snapshot plus warnings describing what decayed. Attributes
// never exercised are left alone, and experience never drops below zero.
// The input set is not mutated; persisting the result is the caller's job.
func ComputeDecay(attrs AttributeSet, events []Event, table DecayTable, now time.Time) DecayResult {
	updated := attrs.Clone()
	var warnings []DecayWarning

	for _, k := range AttrKeys() {
		cfg, ok := table[k]
		if !ok {
			continue
		}
		last, touched := lastPositiveTouch(events, k)
		if !touched {
			continue
		}
		daysSince := daysBetween(last, now)
		if daysSince <= cfg.InactiveThreshold {
			continue
		}
		decayDays := daysSince - cfg.InactiveThreshold
		cur := attrs[k]
		amount := int(float64(cur.Exp) * cfg.DecayRate * float64(decayDays))
		if amount <= 0 {
			continue
		}
		exp := cur.Exp - amount
		if exp < 0 {
			exp = 0
		}
		updated[k] = Attribute{Exp: exp, Level: LevelForExp(exp)}
		warnings = append(warnings, DecayWarning{
			Attribute:          k,
			DaysSinceLastEvent: daysSince,
			DecayAmount:        amount,
		})
	}
	return DecayResult{Updated: updated, Warnings: warnings}
}

// ApproachingWarnings reports attributes within two days of crossing their
// inactivity threshold, so callers can warn users before decay kicks in.
// Nothing is mutated.
func ApproachingWarnings(attrs AttributeSet, events []Event, table DecayTable, now time.Time) []DecayWarning {
	var warnings []DecayWarning
	for _, k := range AttrKeys() {
		cfg, ok := table[k]
		if !ok {
			continue
		}
		if _, exists := attrs[k]; !exists {
			continue
		}
		last, touched := lastPositiveTouch(events, k)
		if !touched {
			continue
		}
		until := cfg.InactiveThreshold - daysBetween(last, now)
		if until > 0 && until <= 2 {
			warnings = append(warnings, DecayWarning{Attribute: k, DaysUntilDecay: until})
		}
	}
	return warnings
}
