package mailer

import (
	"fmt"
	"strings"
)

// VerificationEmail asks the user to confirm their address
func VerificationEmail(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Confirm your email for Haven",
		Tag:     "verify_email",
		Text: "Welcome to Haven.\n\n" +
			"Please confirm your email address by opening the link below. It expires in 24 hours.\n\n" +
			link + "\n\n" +
			"If you did not create an account you can ignore this message.\n",
	}
}

// ReceiptLine is one purchased item
type ReceiptLine struct {
	Name       string
	Quantity   int
	TotalCents int64
}

// OrderReceipt confirms a paid store order
func OrderReceipt(to, orderID, currency string, lines []ReceiptLine, totalCents int64) Message {
	var b strings.Builder
	b.WriteString("Thank you for your gift.\n\n")
	fmt.Fprintf(&b, "Order %s\n\n", orderID)
	for _, l := range lines {
		fmt.Fprintf(&b, "  %d x %s  %s\n", l.Quantity, l.Name, FormatAmount(l.TotalCents, currency))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", FormatAmount(totalCents, currency))

	return Message{To: to, Subject: "Your Haven receipt", Tag: "order_receipt", Text: b.String()}
}

// ApplicationDecision tells an applicant how their application was decided
func ApplicationDecision(to, applicationKind string, approved bool, note string) Message {
	outcome := "was not approved"
	if approved {
		outcome = "has been approved"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your %s application %s.\n", applicationKind, outcome)
	if note != "" {
		fmt.Fprintf(&b, "\nNote from the reviewer:\n%s\n", note)
	}

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your Haven %s application", applicationKind),
		Tag:     "application_decision",
		Text:    b.String(),
	}
}

// FormatAmount renders minor units as "12.50 USD"
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}
