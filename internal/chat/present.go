package chat

import (
	"fmt"
	"math"
	"strings"

	"github.com/dkrylov/shoply/internal/domain"
)

// Actions rendered to the client alongside a chat response.
const (
	ActionOrderIntent         = "order_intent"
	ActionPendingConfirmation = "pending_confirmation"
	ActionOrderCreated        = "order_created"
	ActionOrderCancelled      = "order_cancelled"
)

// SuggestionView is a renderable suggestion button.
type SuggestionView struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Label     string  `json:"label"`
}

// RenderCommand is the presenter's output for one turn: the message
// text plus whatever controls the client should show.
type RenderCommand struct {
	Message     string
	Action      string
	Suggestions []SuggestionView
	ProductIDs  []int64
	Quantities  []int
}

// Presenter renders negotiation outcomes into user-facing messages.
// Pure formatting; it makes no business decisions.
type Presenter struct {
	Currency string
}

// NewPresenter creates a presenter using the given currency symbol.
func NewPresenter(currency string) *Presenter {
	return &Presenter{Currency: currency}
}

// PriceLabel renders a price as the currency symbol plus the rounded
// integer amount, the format used on suggestion buttons.
func (p *Presenter) PriceLabel(price float64) string {
	return fmt.Sprintf("%s%d", p.Currency, int(math.Round(price)))
}

func (p *Presenter) money(amount float64) string {
	return fmt.Sprintf("%s%.2f", p.Currency, amount)
}

// OrderIntent renders an assistant reply that carries product
// suggestions the user can pick from.
func (p *Presenter) OrderIntent(response string, suggestions []domain.Suggestion) RenderCommand {
	views := make([]SuggestionView, len(suggestions))
	for i, s := range suggestions {
		views[i] = SuggestionView{
			ProductID: s.ProductID,
			Name:      s.Name,
			Price:     s.Price,
			Label:     fmt.Sprintf("%s (%s)", s.Name, p.PriceLabel(s.Price)),
		}
	}
	return RenderCommand{
		Message:     response,
		Action:      ActionOrderIntent,
		Suggestions: views,
	}
}

// OrderSummary renders a proposal awaiting confirmation, echoing the
// normalized lines the client should send back on confirm.
func (p *Presenter) OrderSummary(products []*domain.Product, lines []domain.OrderLine) RenderCommand {
	var b strings.Builder
	b.WriteString("Here's your order summary:\n\n")

	var total float64
	ids := make([]int64, len(lines))
	quantities := make([]int, len(lines))
	for i, line := range lines {
		subtotal := products[i].Price * float64(line.Quantity)
		total += subtotal
		ids[i] = line.ProductID
		quantities[i] = line.Quantity
		fmt.Fprintf(&b, "• %s x%d = %s\n", products[i].Name, line.Quantity, p.money(subtotal))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n\nWould you like to confirm this order?", p.money(total))

	return RenderCommand{
		Message:    b.String(),
		Action:     ActionPendingConfirmation,
		ProductIDs: ids,
		Quantities: quantities,
	}
}

// Committed renders a successful order creation.
func (p *Presenter) Committed(order *domain.Order) RenderCommand {
	var b strings.Builder
	fmt.Fprintf(&b, "Your order #%d has been placed successfully!\n\n", order.ID)
	for i := range order.Items {
		item := &order.Items[i]
		fmt.Fprintf(&b, "• %s x%d = %s\n", item.ProductName, item.Quantity, p.money(item.Subtotal()))
	}
	fmt.Fprintf(&b, "\nTotal: %s\nStatus: %s\n\nThank you for shopping with us!",
		p.money(order.TotalAmount), titleCase(order.Status))

	return RenderCommand{Message: b.String(), Action: ActionOrderCreated}
}

// CommitFailed renders a backend rejection, surfacing its message
// verbatim.
func (p *Presenter) CommitFailed(err error) RenderCommand {
	return RenderCommand{
		Message: fmt.Sprintf("Sorry, I couldn't place that order: %s", err.Error()),
	}
}

// Cancelled renders the fixed cancellation acknowledgement.
func (p *Presenter) Cancelled() RenderCommand {
	return RenderCommand{
		Message: "No problem, I've cancelled that order request. Is there anything else I can help you with?",
		Action:  ActionOrderCancelled,
	}
}

// NothingPending renders the response to a confirmation with no
// proposal outstanding.
func (p *Presenter) NothingPending() RenderCommand {
	return RenderCommand{
		Message: "There's no order awaiting confirmation right now. Would you like to browse our products?",
	}
}

// Apology is the fixed message shown when a turn fails on a backend or
// transport error.
func (p *Presenter) Apology() RenderCommand {
	return RenderCommand{
		Message: "I apologize, I'm having trouble processing your request right now. Please try again in a moment.",
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
