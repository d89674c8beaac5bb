package appointment

// DecideStatus returns the initial status of a new appointment.
//
//	never       any    -> confirmed
//	on_redflag  false  -> confirmed
//	on_redflag  true   -> pending
//	always      any    -> pending
//
// An unrecognised mode is treated as always.
func DecideStatus(mode ReviewMode, flagged bool) Status {
	switch mode {
	case ReviewNever:
		return StatusConfirmed
	case ReviewOnRedflag:
		if flagged {
			return StatusPending
		}
		return StatusConfirmed
	default:
		return StatusPending
	}
}
