package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// BookingConfirmation carries everything the two confirmation emails render:
// the booking id, both display names, the service title, the charged amount,
// and the optional scheduled date.
type BookingConfirmation struct {
	BookingID    string
	ClientName   string
	ProviderName string
	ServiceTitle string
	Amount       float64
	Currency     string
	BookingDate  *time.Time
}

const clientConfirmationHTML = `<html>
<body style="font-family: sans-serif; color: #1f2933;">
  <h2>Booking confirmed</h2>
  <p>Hi {{.ClientName}},</p>
  <p>Your payment went through and your booking is confirmed.</p>
  <table cellpadding="6">
    <tr><td><b>Booking</b></td><td>{{.BookingID}}</td></tr>
    <tr><td><b>Service</b></td><td>{{.ServiceTitle}}</td></tr>
    <tr><td><b>Provider</b></td><td>{{.ProviderName}}</td></tr>
    <tr><td><b>Amount</b></td><td>{{.AmountDisplay}}</td></tr>
    {{if .DateDisplay}}<tr><td><b>Date</b></td><td>{{.DateDisplay}}</td></tr>{{end}}
  </table>
  <p>{{.ProviderName}} has been notified and will be in touch.</p>
</body>
</html>`

const providerConfirmationHTML = `<html>
<body style="font-family: sans-serif; color: #1f2933;">
  <h2>You have a new confirmed booking</h2>
  <p>Hi {{.ProviderName}},</p>
  <p>{{.ClientName}} booked and paid for one of your services.</p>
  <table cellpadding="6">
    <tr><td><b>Booking</b></td><td>{{.BookingID}}</td></tr>
    <tr><td><b>Service</b></td><td>{{.ServiceTitle}}</td></tr>
    <tr><td><b>Client</b></td><td>{{.ClientName}}</td></tr>
    <tr><td><b>Amount</b></td><td>{{.AmountDisplay}}</td></tr>
    {{if .DateDisplay}}<tr><td><b>Date</b></td><td>{{.DateDisplay}}</td></tr>{{end}}
  </table>
  <p>Reach out to {{.ClientName}} through your messages to arrange the details.</p>
</body>
</html>`

var (
	clientConfirmationTmpl   = template.Must(template.New("client_confirmation").Parse(clientConfirmationHTML))
	providerConfirmationTmpl = template.Must(template.New("provider_confirmation").Parse(providerConfirmationHTML))
)

// confirmationView is the template model with pre-formatted display fields.
type confirmationView struct {
	BookingConfirmation
	AmountDisplay string
	DateDisplay   string
}

func newConfirmationView(d BookingConfirmation) confirmationView {
	v := confirmationView{
		BookingConfirmation: d,
		AmountDisplay:       fmt.Sprintf("%.2f %s", d.Amount, strings.ToUpper(d.Currency)),
	}
	if d.BookingDate != nil {
		v.DateDisplay = d.BookingDate.Format("Monday, 2 January 2006")
	}
	return v
}

// RenderClientConfirmation renders the email sent to the paying client.
func RenderClientConfirmation(d BookingConfirmation) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := clientConfirmationTmpl.Execute(&buf, newConfirmationView(d)); err != nil {
		return "", "", fmt.Errorf("render client confirmation: %w", err)
	}
	return fmt.Sprintf("Booking confirmed: %s", d.ServiceTitle), buf.String(), nil
}

// RenderProviderConfirmation renders the email sent to the booked provider.
func RenderProviderConfirmation(d BookingConfirmation) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := providerConfirmationTmpl.Execute(&buf, newConfirmationView(d)); err != nil {
		return "", "", fmt.Errorf("render provider confirmation: %w", err)
	}
	return fmt.Sprintf("New confirmed booking: %s", d.ServiceTitle), buf.String(), nil
}
