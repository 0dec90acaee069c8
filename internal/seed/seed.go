package seed

import "github.com/spec-kit/supportpilot/internal/domain"

// TicketInput is the demo ticket injected into an empty workspace.
func TicketInput() domain.CreateTicketInput {
	return domain.CreateTicketInput{
		Title:    "Mobile checkout button not responding",
		Category: domain.TicketCategoryUI,
		Priority: domain.TicketPriorityHigh,
		Channel:  domain.TicketChannelMobile,
		Description: "When I tap the checkout button on my phone, nothing happens and the cart stays on the same screen. " +
			"I tried twice and the issue persists.",
		StepsToReproduce: "1. Open the mobile app\n2. Add any product to the cart\n3. Tap the Checkout button on the cart screen",
		ExpectedResult:   "The checkout flow opens and prompts for payment details.",
		ActualResult:     "The button shows a brief highlight but no navigation occurs.",
		Environment: &domain.Environment{
			Browser:    "Mobile Safari",
			OS:         "iOS 17.2",
			DeviceType: domain.DeviceTypeMobile,
			UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 " +
				"(KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
		},
	}
}
