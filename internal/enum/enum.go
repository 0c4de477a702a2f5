package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending        = "PENDING"
	OrderStatusOutForDelivery = "OUT_FOR_DELIVERY"
	OrderStatusCompleted      = "COMPLETED"
	OrderStatusCancelled      = "CANCELLED"
)

// Lifecycle events accepted by POST /orders/{id}/transitions.
const (
	OrderEventComplete = "complete"
	OrderEventCancel   = "cancel"
	OrderEventAdvance  = "advance"
	OrderEventReturn   = "return"
)

// ── Group B: Catalog (CHECK constrained in DB) ──

const (
	ProductKindPrincipal = "principal"
	ProductKindAddon     = "addon"
)

// ── Group C: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash   = "Dinheiro"
	PaymentMethodPix    = "Pix"
	PaymentMethodCard   = "Cartao"
	PaymentMethodCredit = "Credito"
)

const (
	CategorySnacks = "Lanches"
	CategoryDrinks = "Bebidas"
)

// ── Group D: Broadcast / publish event types ──

const (
	EventOrderCreated        = "order.created"
	EventOrderUpdated        = "order.updated"
	EventOrderCompleted      = "order.completed"
	EventOrderCancelled      = "order.cancelled"
	EventOrderOutForDelivery = "order.out_for_delivery"
	EventOrderReturned       = "order.returned"
	EventStockChanged        = "stock.changed"
)
