package event

// Type identifies the type of domain event
type Type string

const (
	TypePromotionCreated  Type = "promotion.created"
	TypePromotionApproved Type = "promotion.approved"
	TypePromotionRejected Type = "promotion.rejected"
	TypeChainUpdated      Type = "approval_chain.updated"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypePromotionCreated,
		TypePromotionApproved,
		TypePromotionRejected,
		TypeChainUpdated:
		return true
	default:
		return false
	}
}
