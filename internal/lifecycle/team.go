package lifecycle

import (
	"github.com/google/uuid"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
)

// ActiveTeam filters bids down to accepted, non-removed ones.
func ActiveTeam(bids []model.Bid) []model.Bid {
	team := make([]model.Bid, 0, len(bids))
	for _, b := range bids {
		if b.Active() {
			team = append(team, b)
		}
	}
	return team
}

// TeamProgress counts finished members against the active team.
func TeamProgress(bids []model.Bid) (finished, active int) {
	for _, b := range ActiveTeam(bids) {
		active++
		if b.WorkFinished {
			finished++
		}
	}
	return finished, active
}

// TeamFinished is true when every active member declared the work done.
func TeamFinished(bids []model.Bid) bool {
	finished, active := TeamProgress(bids)
	return finished == active
}

func PendingBids(bids []model.Bid) []model.Bid {
	pending := make([]model.Bid, 0)
	for _, b := range bids {
		if b.Status == model.BidPending && !b.Removed {
			pending = append(pending, b)
		}
	}
	return pending
}

// HasLiveBid reports whether the member already holds a pending or active bid.
func HasLiveBid(bids []model.Bid, memberID uuid.UUID) bool {
	for _, b := range bids {
		if b.MemberID != memberID || b.Removed {
			continue
		}
		if b.Status == model.BidPending || b.Status == model.BidAccepted {
			return true
		}
	}
	return false
}
