package scheduling

import (
	"fmt"
	"time"
)

func gateClaimID(recordID string) ClaimID {
	return ClaimID(recordID + "/gate")
}

func checkinClaimID(recordID string, idx int) ClaimID {
	return ClaimID(fmt.Sprintf("%s/checkin/%d", recordID, idx))
}

// GateInterval pads the operative time with the buffer. ok is false when the
// flight has no operative time.
func GateInterval(f FlightOperation, buf GateBuffer) (Interval, bool) {
	if f.OperativeTime.IsZero() {
		return Interval{}, false
	}
	return Interval{
		Start: f.OperativeTime.Add(-time.Duration(buf.PreMinutes) * time.Minute),
		End:   f.OperativeTime.Add(time.Duration(buf.PostMinutes) * time.Minute),
	}, true
}

// DeriveClaims turns one flight into the resource claims it holds: at most one
// GATE claim plus one COUNTER claim per check-in window, in window order.
// It never fails; a flight without an operative time simply has no gate claim.
func DeriveClaims(f FlightOperation, buf GateBuffer) []ResourceClaim {
	claims := make([]ResourceClaim, 0, 1+len(f.Checkins))

	if f.HasGate() {
		if iv, ok := GateInterval(f, buf); ok {
			claims = append(claims, ResourceClaim{
				ID:            gateClaimID(f.RecordID),
				ResourceID:    f.Gate,
				Class:         ClassGate,
				Interval:      iv,
				OwnerRecordID: f.RecordID,
				OwnerFlightID: f.ID,
				CheckinIndex:  -1,
			})
		}
	}

	for i, ck := range f.Checkins {
		claims = append(claims, ResourceClaim{
			ID:            checkinClaimID(f.RecordID, i),
			ResourceID:    ck.CounterID,
			Class:         ClassCounter,
			Interval:      Interval{Start: ck.Start, End: ck.End},
			OwnerRecordID: f.RecordID,
			OwnerFlightID: f.ID,
			CheckinIndex:  i,
		})
	}

	return claims
}

// DeriveAllClaims derives claims for every flight in snapshot order.
func DeriveAllClaims(flights []FlightOperation, buf GateBuffer) []ResourceClaim {
	var claims []ResourceClaim
	for _, f := range flights {
		claims = append(claims, DeriveClaims(f, buf)...)
	}
	return claims
}

// GateDemandClaims derives a gate interval for every flight with an operative
// time, assigned or not. Used for planning how many gates a schedule needs
// before assignment is done.
func GateDemandClaims(flights []FlightOperation, buf GateBuffer) []ResourceClaim {
	claims := make([]ResourceClaim, 0, len(flights))
	for _, f := range flights {
		iv, ok := GateInterval(f, buf)
		if !ok {
			continue
		}
		claims = append(claims, ResourceClaim{
			ID:            gateClaimID(f.RecordID),
			ResourceID:    f.Gate,
			Class:         ClassGate,
			Interval:      iv,
			OwnerRecordID: f.RecordID,
			OwnerFlightID: f.ID,
			CheckinIndex:  -1,
		})
	}
	return claims
}

// FilterClass keeps the claims of one class, preserving order.
func FilterClass(claims []ResourceClaim, class ResourceClass) []ResourceClaim {
	out := make([]ResourceClaim, 0, len(claims))
	for _, c := range claims {
		if c.Class == class {
			out = append(out, c)
		}
	}
	return out
}
