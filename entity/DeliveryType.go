package entity

type DeliveryType string

const (
	DeliveryTakeAway DeliveryType = "TAKE_AWAY"
	DeliveryShip     DeliveryType = "SHIP"
)

func (d DeliveryType) Valid() bool { return d == DeliveryTakeAway || d == DeliveryShip }
