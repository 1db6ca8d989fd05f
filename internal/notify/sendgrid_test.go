package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSendGridMailerWithoutKey(t *testing.T) {
	m := NewSendGridMailer("", "noreply@example.com", "After-Sales")
	assert.Nil(t, m)

	err := m.Send(context.Background(), Message{To: "finance@example.com", Subject: "x"})
	require.ErrorIs(t, err, ErrMailerNotConfigured)
}

func TestNewSendGridMailerWithKey(t *testing.T) {
	m := NewSendGridMailer("SG.test", "noreply@example.com", "After-Sales")
	require.NotNil(t, m)
	assert.Equal(t, "noreply@example.com", m.fromEmail)
	assert.Equal(t, "After-Sales", m.fromName)
}
