package booking

import "cliniq/models"

// SelectBestDoctor picks the doctor a patient should be auto-assigned to:
// the candidate with the fewest patients ahead among those that still have
// bookable slots. Ties keep the first-encountered candidate, so the result is
// deterministic for a fixed input order. Returns nil when no candidate has
// open slots.
//
// This is a pure ranking over possibly-stale client data; the commit
// coordinator re-validates availability server-side before booking.
func SelectBestDoctor(candidates []models.DoctorAvailability) *models.DoctorAvailability {
	var best *models.DoctorAvailability
	for i := range candidates {
		c := &candidates[i]
		if !c.HasAvailableSlots {
			continue
		}
		if best == nil || c.PatientsAhead < best.PatientsAhead {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	selected := *best
	return &selected
}
