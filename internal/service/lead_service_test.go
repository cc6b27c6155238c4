package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLeadService_Submit(t *testing.T) {
	leads := &fakeLeads{}
	notifier := &fakeNotifier{}
	svc := NewLeadService(leads, testUsers(), notifier, "", zap.NewNop())

	res, err := svc.Submit(context.Background(), LeadInput{
		Name:  " Noa ",
		Phone: "050-1234567",
		Email: "noa@example.com",
	})
	require.NoError(t, err)
	assert.True(t, res.Persisted)
	assert.True(t, res.Notified)
	require.Len(t, leads.leads, 1)
	assert.Equal(t, "Noa", leads.leads[0].Name)

	require.Len(t, notifier.sent, 1)
	msg := notifier.sent[0]
	assert.Equal(t, "anna@example.com", msg.To, "oldest teacher")
	assert.Equal(t, "noa@example.com", msg.ReplyTo)
	assert.Equal(t, "Новая заявка с сайта - Noa", msg.Subject)
	assert.Contains(t, msg.Body, "- Сообщение: -")
}

func TestLeadService_ConfiguredRecipient(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewLeadService(&fakeLeads{}, testUsers(), notifier, "office@example.com", zap.NewNop())

	_, err := svc.Submit(context.Background(), LeadInput{Name: "Noa", Phone: "1"})
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "office@example.com", notifier.sent[0].To)
	assert.Empty(t, notifier.sent[0].ReplyTo)
}

func TestLeadService_Honeypot(t *testing.T) {
	leads := &fakeLeads{}
	notifier := &fakeNotifier{}
	svc := NewLeadService(leads, testUsers(), notifier, "", zap.NewNop())

	res, err := svc.Submit(context.Background(), LeadInput{Name: "Bot", Phone: "1", Website: "http://spam"})
	require.NoError(t, err)
	assert.True(t, res.Spam)
	assert.Empty(t, leads.leads)
	assert.Empty(t, notifier.sent)
}

func TestLeadService_Validation(t *testing.T) {
	svc := NewLeadService(&fakeLeads{}, testUsers(), &fakeNotifier{}, "", zap.NewNop())

	tests := []struct {
		name  string
		in    LeadInput
		field string
	}{
		{"no name", LeadInput{Phone: "1"}, "name"},
		{"blank phone", LeadInput{Name: "Noa", Phone: "  "}, "phone"},
		{"bad email", LeadInput{Name: "Noa", Phone: "1", Email: "noa"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.in)
			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field())
		})
	}
}

func TestLeadService_NotifierFailureKeepsLead(t *testing.T) {
	leads := &fakeLeads{}
	notifier := &fakeNotifier{err: errors.New("sendgrid 500")}
	svc := NewLeadService(leads, testUsers(), notifier, "", zap.NewNop())

	res, err := svc.Submit(context.Background(), LeadInput{Name: "Noa", Phone: "1"})
	require.NoError(t, err)
	assert.True(t, res.Persisted)
	assert.False(t, res.Notified)
	assert.Len(t, leads.leads, 1)
}

func TestLeadService_PersistFailureStillNotifies(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewLeadService(&fakeLeads{err: errStoreDown}, testUsers(), notifier, "", zap.NewNop())

	res, err := svc.Submit(context.Background(), LeadInput{Name: "Noa", Phone: "1"})
	require.NoError(t, err)
	assert.False(t, res.Persisted)
	assert.Len(t, notifier.sent, 1)

	failing := NewLeadService(&fakeLeads{err: errStoreDown}, newFakeUsers(), &fakeNotifier{}, "", zap.NewNop())
	_, err = failing.Submit(context.Background(), LeadInput{Name: "Noa", Phone: "1"})
	assert.ErrorIs(t, err, errStoreDown, "no teacher email and no storage")
}
