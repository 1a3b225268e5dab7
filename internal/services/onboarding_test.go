package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbot/config"
	"ticketbot/models"
)

func TestBackOnceReturnsToPreviousStep(t *testing.T) {
	app := newTestApp(t)
	svc := NewOnboardingService(app, NewDirectoryService(app), &config.Config{SessionTTL: 30 * time.Minute})
	ctx := context.Background()

	sess, err := svc.Start("whatsapp:+2348099887766")
	require.NoError(t, err)
	require.Equal(t, models.StepOrganizerName, sess.Step)

	_, err = svc.HandleMessage(ctx, sess, "Lagos Jazz Fest")
	require.NoError(t, err)
	assert.Equal(t, models.StepEventName, sess.Step)

	reply, err := svc.HandleMessage(ctx, sess, "back")
	require.NoError(t, err)
	assert.Equal(t, models.StepOrganizerName, sess.Step)
	assert.Contains(t, reply.Text, models.StepOrganizerName.Prompt())
}

func TestBackTwiceRestartsWithCleanSlate(t *testing.T) {
	app := newTestApp(t)
	svc := NewOnboardingService(app, NewDirectoryService(app), &config.Config{SessionTTL: 30 * time.Minute})
	ctx := context.Background()
	sender := "whatsapp:+2348099887766"

	sess, err := svc.Start(sender)
	require.NoError(t, err)

	_, err = svc.HandleMessage(ctx, sess, "Lagos Jazz Fest")
	require.NoError(t, err)

	_, err = svc.HandleMessage(ctx, sess, "back")
	require.NoError(t, err)

	reply, err := svc.HandleMessage(ctx, sess, "back")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "start over")

	fresh, err := svc.Active(sender)
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, models.StepOrganizerName, fresh.Step)
	assert.Empty(t, fresh.Data, "restart discards every collected answer")
}

func TestCancelDeletesSession(t *testing.T) {
	app := newTestApp(t)
	svc := NewOnboardingService(app, NewDirectoryService(app), &config.Config{SessionTTL: 30 * time.Minute})
	ctx := context.Background()
	sender := "whatsapp:+2348099887766"

	sess, err := svc.Start(sender)
	require.NoError(t, err)

	reply, err := svc.HandleMessage(ctx, sess, "cancel")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "cancelled")

	fresh, err := svc.Active(sender)
	require.NoError(t, err)
	assert.Nil(t, fresh)
}
