package reset

import "time"

const spo2ChangeIntervalDays = 14

type spo2Change struct {
	At    time.Time
	Scale int
}

// spo2Schedule spreads SpO2 scale changes across a stay: one every fourteen
// days, or a single change half way through when the stay allows only one.
// Scales alternate 2, 1, 2, ...
func spo2Schedule(admitted, end time.Time) []spo2Change {
	days := int(end.Sub(admitted).Hours() / 24)
	n := days / spo2ChangeIntervalDays
	if n <= 0 {
		return nil
	}
	gap := spo2ChangeIntervalDays * 24 * time.Hour
	if n == 1 {
		gap = time.Duration(days) * 12 * time.Hour
	}

	out := make([]spo2Change, 0, n)
	at := admitted
	for i := 0; i < n; i++ {
		at = at.Add(gap)
		scale := 1
		if i%2 == 0 {
			scale = 2
		}
		out = append(out, spo2Change{At: at, Scale: scale})
	}
	return out
}
