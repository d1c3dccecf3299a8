package mailer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/copiqat-backend/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []*gomail.Message
	sendErr error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, m...)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelError, logging.FormatText)
}

func TestSendActivationOTP(t *testing.T) {
	sender := &fakeSender{}
	m := NewMailerWithSender(sender, "no-reply@copiqat.trade", testLogger())
	defer m.Close()

	require.NoError(t, m.SendActivationOTP(context.Background(), "jane@example.com", "Jane", "123456"))

	require.Equal(t, 1, sender.count())
	msg := sender.sent[0]
	assert.Equal(t, []string{"jane@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"no-reply@copiqat.trade"}, msg.GetHeader("From"))

	var body strings.Builder
	_, err := msg.WriteTo(&body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "123456")
	assert.Contains(t, body.String(), "Jane")
}

func TestSendActivationOTPSurfacesFailure(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("smtp down")}
	m := NewMailerWithSender(sender, "no-reply@copiqat.trade", testLogger())
	defer m.Close()

	err := m.SendActivationOTP(context.Background(), "jane@example.com", "Jane", "123456")
	assert.Error(t, err)
}

func TestEnqueueDeliversThroughWorker(t *testing.T) {
	sender := &fakeSender{}
	m := NewMailerWithSender(sender, "no-reply@copiqat.trade", testLogger())

	m.EnqueuePasswordResetOTP(context.Background(), "jane@example.com", "Jane", "654321")
	m.EnqueueActivationOTP(context.Background(), "jane@example.com", "Jane", "111222")

	// Close drains the queue before returning
	m.Close()

	assert.Equal(t, 2, sender.count())
}
