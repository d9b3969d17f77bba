package lifecycle

import (
	"fmt"

	"marketplace-booking/internal/data/entity"
)

// authorize decides whether the actor may move the booking to target:
//   - confirm, start, complete: owning provider
//   - cancel: owning customer or owning provider
//   - no-show: nobody but admins and internal processes
//
// Admins and system actors may perform every legal transition.
func authorize(b *entity.Booking, target entity.BookingStatus, actor entity.Actor) error {
	if actor.IsPrivileged() {
		return nil
	}
	isProvider := actor.Role == entity.RoleProvider && actor.ID == b.ProviderID.String()
	isCustomer := actor.Role == entity.RoleCustomer && actor.ID == b.CustomerID.String()

	allowed := false
	switch target {
	case entity.BookingStatusConfirmed, entity.BookingStatusInProgress, entity.BookingStatusCompleted:
		allowed = isProvider
	case entity.BookingStatusCancelled:
		allowed = isProvider || isCustomer
	}
	if !allowed {
		return fmt.Errorf("%w: %s %s cannot set %s", ErrForbidden, actor.Role, actor.ID, target)
	}
	return nil
}

// CanView reports whether the actor is a party to the booking.
func CanView(b *entity.Booking, actor entity.Actor) bool {
	if actor.IsPrivileged() {
		return true
	}
	switch actor.Role {
	case entity.RoleProvider:
		return actor.ID == b.ProviderID.String()
	case entity.RoleCustomer:
		return actor.ID == b.CustomerID.String()
	}
	return false
}
