package sms

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/novadent/novadent/internal/shared"
)

type memorySMSRepo struct {
	messages  map[string]Message
	templates map[string]Template
}

func newMemorySMSRepo() *memorySMSRepo {
	return &memorySMSRepo{messages: map[string]Message{}, templates: map[string]Template{}}
}

func (m *memorySMSRepo) ListMessages(_ context.Context, filters shared.ListFilters) ([]Message, int, error) {
	var matched []Message
	for _, msg := range m.messages {
		if filters.Status != "" && string(msg.Status) != filters.Status {
			continue
		}
		matched = append(matched, msg)
	}
	return matched, len(matched), nil
}

func (m *memorySMSRepo) GetMessage(_ context.Context, id string) (Message, error) {
	msg, ok := m.messages[id]
	if !ok {
		return Message{}, ErrMessageNotFound
	}
	return msg, nil
}

func (m *memorySMSRepo) CreateMessage(_ context.Context, msg Message) (Message, error) {
	m.messages[msg.ID] = msg
	return msg, nil
}

func (m *memorySMSRepo) MarkSent(_ context.Context, id, gatewayID string, cost float64, sentAt time.Time) error {
	msg, ok := m.messages[id]
	if !ok {
		return ErrMessageNotFound
	}
	msg.Status = StatusSent
	msg.GatewayID = gatewayID
	msg.Cost = cost
	msg.SentAt = &sentAt
	m.messages[id] = msg
	return nil
}

func (m *memorySMSRepo) MarkFailed(_ context.Context, id, note string) error {
	msg, ok := m.messages[id]
	if !ok {
		return ErrMessageNotFound
	}
	msg.Status = StatusFailed
	msg.FailureNote = note
	m.messages[id] = msg
	return nil
}

func (m *memorySMSRepo) MarkDelivered(_ context.Context, gatewayID string) error {
	for id, msg := range m.messages {
		if msg.GatewayID == gatewayID && msg.Status == StatusSent {
			msg.Status = StatusDelivered
			m.messages[id] = msg
		}
	}
	return nil
}

func (m *memorySMSRepo) ListTemplates(context.Context) ([]Template, error) {
	templates := make([]Template, 0, len(m.templates))
	for _, tpl := range m.templates {
		templates = append(templates, tpl)
	}
	return templates, nil
}

func (m *memorySMSRepo) GetTemplate(_ context.Context, id string) (Template, error) {
	tpl, ok := m.templates[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return tpl, nil
}

func (m *memorySMSRepo) CreateTemplate(_ context.Context, tpl Template) (Template, error) {
	m.templates[tpl.ID] = tpl
	return tpl, nil
}

func (m *memorySMSRepo) UpdateTemplate(_ context.Context, tpl Template) (Template, error) {
	if _, ok := m.templates[tpl.ID]; !ok {
		return Template{}, ErrTemplateNotFound
	}
	m.templates[tpl.ID] = tpl
	return tpl, nil
}

func (m *memorySMSRepo) DeleteTemplate(_ context.Context, id string) error {
	if _, ok := m.templates[id]; !ok {
		return ErrTemplateNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *memorySMSRepo) BumpTemplateUsage(_ context.Context, id string) error {
	tpl, ok := m.templates[id]
	if !ok {
		return nil
	}
	tpl.UsageCount++
	m.templates[id] = tpl
	return nil
}

type fakeGateway struct {
	sent    []string
	fail    map[string]error
	counter int
}

func (g *fakeGateway) Send(_ context.Context, recipient, _ string) (Receipt, error) {
	if err := g.fail[recipient]; err != nil {
		return Receipt{}, err
	}
	g.counter++
	g.sent = append(g.sent, recipient)
	return Receipt{GatewayID: fmt.Sprintf("ATXid_%04d", g.counter), Cost: 0.8}, nil
}

func TestTemplateRender(t *testing.T) {
	tpl := Template{Body: "Hello {name}, your balance is {amount}."}
	out := tpl.Render(map[string]string{"name": "Grace", "amount": "KES 2,500"})
	require.Equal(t, "Hello Grace, your balance is KES 2,500.", out)

	// Unknown placeholders stay visible so the operator can spot them.
	out = tpl.Render(map[string]string{"name": "Grace"})
	require.Equal(t, "Hello Grace, your balance is {amount}.", out)

	require.Equal(t, "no placeholders", Template{Body: "no placeholders"}.Render(nil))
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "KES 2,500", FormatAmount(2500))
	require.Equal(t, "KES 1,234,567.89", FormatAmount(1234567.89))
	require.Equal(t, "KES 0", FormatAmount(0))
}

func TestSendInlineDelivery(t *testing.T) {
	repo := newMemorySMSRepo()
	gateway := &fakeGateway{}
	svc := NewService(repo, gateway, nil, nil)

	_, err := svc.Send(context.Background(), " ", "hello", "", nil)
	require.ErrorIs(t, err, ErrNoRecipient)

	_, err = svc.Send(context.Background(), "+254700000001", "", "", nil)
	require.ErrorIs(t, err, ErrEmptyBody)

	msg, err := svc.Send(context.Background(), "+254700000001", "Your appointment is tomorrow.", "", nil)
	require.NoError(t, err)
	require.Equal(t, StatusSent, msg.Status)
	require.NotEmpty(t, msg.GatewayID)
	require.NotNil(t, msg.SentAt)
	require.Equal(t, []string{"+254700000001"}, gateway.sent)
	require.InDelta(t, 0.8, msg.Cost, 1e-9, "the provider cost lands on the message")

	stored := repo.messages[msg.ID]
	require.Equal(t, StatusSent, stored.Status)
	require.InDelta(t, 0.8, stored.Cost, 1e-9)
}

func TestSendWithTemplate(t *testing.T) {
	repo := newMemorySMSRepo()
	repo.templates["tpl1"] = Template{ID: "tpl1", Name: "reminder", Category: "appointments", Body: "Hi {name}, see you at {time}."}
	svc := NewService(repo, &fakeGateway{}, nil, nil)

	msg, err := svc.Send(context.Background(), "+254700000001", "", "tpl1", map[string]string{"name": "John", "time": "10:00"})
	require.NoError(t, err)
	require.Equal(t, "Hi John, see you at 10:00.", msg.Body)
	require.Equal(t, "tpl1", msg.TemplateID)
	require.Equal(t, 1, repo.templates["tpl1"].UsageCount, "a template send bumps the usage count")

	_, err = svc.Send(context.Background(), "+254700000002", "", "tpl1", map[string]string{"name": "Mary", "time": "11:00"})
	require.NoError(t, err)
	require.Equal(t, 2, repo.templates["tpl1"].UsageCount)

	_, err = svc.Send(context.Background(), "+254700000001", "", "missing", nil)
	require.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestDeliverGatewayFailure(t *testing.T) {
	repo := newMemorySMSRepo()
	gateway := &fakeGateway{fail: map[string]error{"+254700000002": errors.New("InvalidPhoneNumber")}}
	svc := NewService(repo, gateway, nil, nil)

	_, err := svc.Send(context.Background(), "+254700000002", "hello", "", nil)
	require.Error(t, err)

	// The outbox keeps the failed message with the gateway's note.
	require.Len(t, repo.messages, 1)
	for _, msg := range repo.messages {
		require.Equal(t, StatusFailed, msg.Status)
		require.Contains(t, msg.FailureNote, "InvalidPhoneNumber")
	}
}

func TestDeliverSkipsSettledMessages(t *testing.T) {
	repo := newMemorySMSRepo()
	gateway := &fakeGateway{}
	svc := NewService(repo, gateway, nil, nil)

	sentAt := time.Now()
	repo.messages["m1"] = Message{ID: "m1", Recipient: "+254700000001", Body: "x", Status: StatusSent, GatewayID: "ATXid_0001", SentAt: &sentAt}

	msg, err := svc.Deliver(context.Background(), "m1")
	require.NoError(t, err)
	require.Equal(t, StatusSent, msg.Status)
	require.Empty(t, gateway.sent, "already sent messages must not go through the gateway again")
}

func TestBulkSendPartialFailure(t *testing.T) {
	repo := newMemorySMSRepo()
	gateway := &fakeGateway{fail: map[string]error{"+254700000002": errors.New("DeliveryFailure")}}
	svc := NewService(repo, gateway, nil, nil)

	results := svc.BulkSend(context.Background(), []string{
		"+254700000001",
		"+254700000002",
		"+254700000003",
	}, "Clinic closed on Friday.", "", nil)
	require.Len(t, results, 3)

	require.True(t, results[0].Sent)
	require.NotEmpty(t, results[0].MessageID)

	require.False(t, results[1].Sent)
	require.Contains(t, results[1].Error, "DeliveryFailure")

	require.True(t, results[2].Sent)
	require.Equal(t, []string{"+254700000001", "+254700000003"}, gateway.sent)
}

func TestConfirmDelivery(t *testing.T) {
	repo := newMemorySMSRepo()
	svc := NewService(repo, &fakeGateway{}, nil, nil)

	msg, err := svc.Send(context.Background(), "+254700000001", "hello", "", nil)
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmDelivery(context.Background(), msg.GatewayID))
	require.Equal(t, StatusDelivered, repo.messages[msg.ID].Status)

	// Callbacks for unknown gateway ids are ignored.
	require.NoError(t, svc.ConfirmDelivery(context.Background(), "ATXid_9999"))
}

func TestTemplateCRUD(t *testing.T) {
	repo := newMemorySMSRepo()
	svc := NewService(repo, &fakeGateway{}, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateTemplate(ctx, "empty", "", "  ")
	require.ErrorIs(t, err, ErrEmptyBody)

	tpl, err := svc.CreateTemplate(ctx, "reminder", "appointments", "Hi {name}")
	require.NoError(t, err)
	require.NotEmpty(t, tpl.ID)
	require.Equal(t, "appointments", tpl.Category)

	updated, err := svc.UpdateTemplate(ctx, tpl.ID, "reminder", "billing", "Hello {name}")
	require.NoError(t, err)
	require.Equal(t, "Hello {name}", updated.Body)
	require.Equal(t, "billing", updated.Category)

	require.NoError(t, svc.DeleteTemplate(ctx, tpl.ID))
	_, err = svc.UpdateTemplate(ctx, tpl.ID, "reminder", "", "x")
	require.ErrorIs(t, err, ErrTemplateNotFound)
}
