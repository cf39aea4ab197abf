package model

// Queue names for the durable broker queues this service declares.
const (
	QueueCouponToProcess    = "coupon_to_process"
	QueueBuyerDataProcessed = "buyer_data_processed"
)

// CouponAcceptedMessage is published on coupon_to_process once per
// successfully persisted coupon.
type CouponAcceptedMessage struct {
	CupomID string `json:"cupomId"`
	Code44  string `json:"code44"`
}

// BuyerDataMessage is consumed from buyer_data_processed. BirthDate
// arrives as an ISO-8601 string and is parsed by the handler.
type BuyerDataMessage struct {
	CupomID   string `json:"cupomId"`
	Name      string `json:"name"`
	Document  string `json:"document"`
	BirthDate string `json:"birthDate"`
}
