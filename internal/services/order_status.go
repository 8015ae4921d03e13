package services

import (
	"slices"

	"shop_backend/internal/models"
)

// orderStateTransitions lists the statuses an order may move to from each status.
// Statuses with no entry are terminal.
var orderStateTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:    {models.OrderProcessing, models.OrderCompleted, models.OrderCancelled, models.OrderReturned},
	models.OrderProcessing: {models.OrderCompleted, models.OrderCancelled, models.OrderReturned},
	models.OrderCompleted:  {models.OrderReturned},
}

// CanTransition reports whether an order in status from may be moved to status to.
func CanTransition(from, to models.OrderStatus) bool {
	return slices.Contains(orderStateTransitions[from], to)
}

// IsTerminal reports whether no further status change is allowed.
func IsTerminal(status models.OrderStatus) bool {
	return len(orderStateTransitions[status]) == 0
}
