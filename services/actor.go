package services

import (
	"fmt"

	"brunopizza/entity"
)

type ActorKind string

const (
	ActorGuest      ActorKind = "guest"
	ActorCustomer   ActorKind = "customer"
	ActorAdmin      ActorKind = "admin"
	ActorReconciler ActorKind = "reconciler"
)

// Actor is whoever asks for a change. UserID is zero for guests and the reconciler.
type Actor struct {
	Kind   ActorKind
	UserID uint
}

var Reconciler = Actor{Kind: ActorReconciler}

// ActorFromRole maps a token role to an actor; an empty role is a guest.
func ActorFromRole(userID uint, role string) Actor {
	switch {
	case role == entity.RoleAdmin:
		return Actor{Kind: ActorAdmin, UserID: userID}
	case userID != 0:
		return Actor{Kind: ActorCustomer, UserID: userID}
	default:
		return Actor{Kind: ActorGuest}
	}
}

func (a Actor) String() string {
	if a.UserID != 0 {
		return fmt.Sprintf("%s:%d", a.Kind, a.UserID)
	}
	return string(a.Kind)
}
