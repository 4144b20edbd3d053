package gate

// Action describes the kind of operation a subject wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionList   Action = "list"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionOffer is bidding on a product.
	ActionOffer Action = "offer"
	// ActionVerify is an administrator approving a listing or payment.
	ActionVerify Action = "verify"
)
