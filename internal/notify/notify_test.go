package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-bakery-orderflow/internal/errorx"
	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
)

func sampleConfirmation() Confirmation {
	return FromOrder(orders.Order{
		OrderID:       "order-1",
		CustomerName:  "Ada <script>",
		CustomerEmail: "ada@example.com",
		Items: []orders.Item{
			{Name: "The Nibbler", Price: 15, Quantity: 2},
			{Name: "The Pro", Price: 50, Quantity: 1},
		},
		TotalAmount:     90,
		DeliveryType:    orders.DeliveryDelivery,
		DeliveryAddress: "1 Main St",
		PaymentStatus:   orders.PaymentConfirmed,
	})
}

func TestRender_Delivery(t *testing.T) {
	msg, err := Render(sampleConfirmation(), Options{PickupDetails: "Saturday noon", DeliveryDetails: "Delivered Sunday"})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, Subject, msg.Subject)
	assert.Contains(t, msg.HTML, "2x The Nibbler - $30.00")
	assert.Contains(t, msg.HTML, "1x The Pro - $50.00")
	assert.Contains(t, msg.HTML, "$90.00")
	assert.Contains(t, msg.HTML, "1 Main St")
	assert.Contains(t, msg.HTML, "Delivered Sunday")
	assert.NotContains(t, msg.HTML, "Saturday noon")
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "Ada &lt;script&gt;")

	assert.Contains(t, msg.Text, "2x The Nibbler - $30.00")
	assert.Contains(t, msg.Text, "Delivery Address: 1 Main St")
}

func TestRender_Pickup(t *testing.T) {
	c := sampleConfirmation()
	c.DeliveryType = orders.DeliveryPickup
	c.DeliveryAddress = ""

	msg, err := Render(c, Options{PickupDetails: "Saturday noon"})
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "<strong>Pickup:</strong> Saturday noon")
	assert.NotContains(t, msg.HTML, "Delivery Address")
	assert.Contains(t, msg.Text, "Pickup: Saturday noon")
}

type fakePublisher struct {
	payload interface{}
	attrs   map[string]string
	err     error
}

func (f *fakePublisher) PublishJSON(ctx context.Context, payload interface{}, attributes map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.payload, f.attrs = payload, attributes
	return "msg-1", nil
}

func TestQueueDispatcher(t *testing.T) {
	p := &fakePublisher{}
	d := NewQueueDispatcher(p)

	c := sampleConfirmation()
	require.NoError(t, d.Dispatch(context.Background(), c))
	assert.Equal(t, c, p.payload)
	assert.Equal(t, "order-1", p.attrs["order_id"])

	p.err = errors.New("queue down")
	err := d.Dispatch(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order-1")
}

type recordingSink struct {
	sent []Message
	err  error
}

func (s *recordingSink) Send(ctx context.Context, msg Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestDirectDispatcher(t *testing.T) {
	sink := &recordingSink{}
	d := NewDirectDispatcher(sink, Options{PickupDetails: "Saturday"})

	require.NoError(t, d.Dispatch(context.Background(), sampleConfirmation()))
	require.Len(t, sink.sent, 1)
	assert.Equal(t, "ada@example.com", sink.sent[0].To)

	sink.err = errors.New("smtp down")
	assert.Error(t, d.Dispatch(context.Background(), sampleConfirmation()))
}

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sesv2.SendEmailOutput{MessageId: sdkaws.String("ses-1")}, nil
}

func TestMailer(t *testing.T) {
	_, err := NewMailer(&fakeSES{}, "")
	assert.True(t, errors.Is(err, errorx.ErrConfiguration))

	ses := &fakeSES{}
	m, err := NewMailer(ses, "Chef Jeff Cookies <noreply@example.com>")
	require.NoError(t, err)

	msg, err := Render(sampleConfirmation(), Options{})
	require.NoError(t, err)
	require.NoError(t, m.Send(context.Background(), msg))

	require.Len(t, ses.inputs, 1)
	in := ses.inputs[0]
	assert.Equal(t, "Chef Jeff Cookies <noreply@example.com>", *in.FromEmailAddress)
	assert.Equal(t, []string{"ada@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, Subject, *in.Content.Simple.Subject.Data)
	assert.True(t, strings.Contains(*in.Content.Simple.Body.Html.Data, "ORDER CONFIRMATION"))
	assert.NotNil(t, in.Content.Simple.Body.Text)

	assert.True(t, errors.Is(m.Send(context.Background(), Message{}), errorx.ErrValidation))

	ses.err = errors.New("throttled")
	assert.Error(t, m.Send(context.Background(), msg))
}
