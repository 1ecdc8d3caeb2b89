package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
)

// Subject of every confirmation email.
const Subject = "Order Confirmation - Chef Jeff Cookies!"

// Options holds the shop-specific text of the email.
type Options struct {
	PickupDetails   string
	DeliveryDetails string
}

// Message is a rendered email ready for a Sink.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type line struct {
	Quantity int
	Name     string
	Amount   string
}

type view struct {
	Confirmation
	Lines           []line
	Total           string
	IsDelivery      bool
	PickupDetails   string
	DeliveryDetails string
}

var htmlTmpl = htmltemplate.Must(htmltemplate.New("confirmation").Parse(`<div style="font-family:Arial, Helvetica, sans-serif;max-width:600px;margin:40px auto 0 auto;padding:20px;background:#fbdd56;">
  <h2 style="color:#000000;font-weight:bold;padding:5px;background:#ffffff;width:max-content;">ORDER CONFIRMATION</h2>
  <div style="background-color:#ffffff;padding:20px;margin:20px 0">
    <p><b>Dear {{.CustomerName}},</b></p>
    <p>Thank you for your order! We've received your cookie order and will begin preparing your delicious treats.</p>
  </div>
  <div style="background-color:#ffffff;padding:20px;margin:20px 0">
    <h3 style="color:#000000;margin-top:0;">ORDER DETAILS</h3>
    <p><strong>Order ID:</strong> {{.OrderID}}</p>
    <ul style="margin:10px 0;">
{{- range .Lines}}
      <li>{{.Quantity}}x {{.Name}} - ${{.Amount}}</li>
{{- end}}
    </ul>
    <p><strong>Total:</strong> ${{.Total}}</p>
{{- if .IsDelivery}}
    <p><strong>Delivery Address:</strong> {{.DeliveryAddress}}</p>
{{- if .DeliveryDetails}}
    <p>{{.DeliveryDetails}}</p>
{{- end}}
{{- else}}
    <p><strong>Pickup:</strong> {{.PickupDetails}}</p>
{{- end}}
    <p style="margin-top:20px;">Payments are processed through Stripe. You will also receive a confirmation email from them.</p>
  </div>
</div>
`))

var textTmpl = texttemplate.Must(texttemplate.New("confirmation").Parse(`Dear {{.CustomerName}},

Thank you for your order! We've received your cookie order and will begin preparing your delicious treats.

Order ID: {{.OrderID}}
{{range .Lines}}
  {{.Quantity}}x {{.Name}} - ${{.Amount}}
{{- end}}

Total: ${{.Total}}
{{if .IsDelivery}}Delivery Address: {{.DeliveryAddress}}
{{if .DeliveryDetails}}{{.DeliveryDetails}}
{{end}}{{else}}Pickup: {{.PickupDetails}}
{{end}}`))

// Render produces the HTML and plain-text bodies for c. Customer-supplied fields are
// escaped in the HTML body.
func Render(c Confirmation, opts Options) (Message, error) {
	v := view{
		Confirmation:    c,
		Total:           decimal.NewFromFloat(c.TotalAmount).StringFixed(2),
		IsDelivery:      c.DeliveryType == orders.DeliveryDelivery,
		PickupDetails:   opts.PickupDetails,
		DeliveryDetails: opts.DeliveryDetails,
	}
	for _, it := range c.Items {
		amount := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		v.Lines = append(v.Lines, line{Quantity: it.Quantity, Name: it.Name, Amount: amount.StringFixed(2)})
	}

	var html, text bytes.Buffer
	if err := htmlTmpl.Execute(&html, v); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	if err := textTmpl.Execute(&text, v); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	return Message{
		To:      c.CustomerEmail,
		Subject: Subject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
