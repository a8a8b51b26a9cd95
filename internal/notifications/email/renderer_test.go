package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safirnotify/internal/types"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	return r
}

func notification(transition types.Transition, instance *string) *types.EnrichedNotification {
	return &types.EnrichedNotification{
		AlarmID:           "alarm-1",
		Transition:        transition,
		Email:             "user@example.com",
		InstanceName:      instance,
		ResourceType:      "CPU",
		ComparisonLabel:   "Greater than",
		Threshold:         80.5,
		Period:            60 * time.Second,
		EvaluationPeriods: 3,
		Reason:            "Transition to alarm due to 3 samples outside threshold",
	}
}

func strPtr(s string) *string { return &s }

func TestRenderer_ComposeAlarm(t *testing.T) {
	r := newTestRenderer(t)

	msg, err := r.Compose(notification(types.TransitionEnterAlarm, strPtr("web-server-1")), "https://panel.example/monitor")
	require.NoError(t, err)

	assert.Equal(t, SubjectAlarm, msg.Subject)
	assert.Equal(t, types.TransitionEnterAlarm, msg.Transition)

	assert.Contains(t, msg.BodyText, "Dear Safir Cloud Platform User!")
	assert.Contains(t, msg.BodyText, "The instance web-server-1 of your account is giving alarm.")
	assert.Contains(t, msg.BodyText, "Alarm description is: Transition to alarm due to 3 samples outside threshold")
	assert.Contains(t, msg.BodyText, "B3LAB team")

	assert.Contains(t, msg.BodyHTML, "<strong>web-server-1</strong>")
	assert.Contains(t, msg.BodyHTML, "CPU")
	assert.Contains(t, msg.BodyHTML, "Greater than 80.5")
	assert.Contains(t, msg.BodyHTML, "60 seconds, 3 evaluation period(s)")
	assert.Contains(t, msg.BodyHTML, `href="https://panel.example/monitor"`)
	assert.Contains(t, msg.BodyHTML, "user@example.com")
}

func TestRenderer_ComposeOK(t *testing.T) {
	r := newTestRenderer(t)

	msg, err := r.Compose(notification(types.TransitionEnterOK, strPtr("web-server-1")), "")
	require.NoError(t, err)

	assert.Equal(t, SubjectOK, msg.Subject)
	assert.Equal(t, types.TransitionEnterOK, msg.Transition)
	assert.Contains(t, msg.BodyText, "Your instance web-server-1 of your account is back to normal.")
	assert.NotContains(t, msg.BodyText, "Alarm description")
	assert.NotContains(t, msg.BodyHTML, "Alarm description")
	assert.NotContains(t, msg.BodyHTML, "monitoring panel")
}

func TestRenderer_MissingInstanceName(t *testing.T) {
	r := newTestRenderer(t)

	for _, tr := range []types.Transition{types.TransitionEnterAlarm, types.TransitionEnterOK} {
		t.Run(string(tr), func(t *testing.T) {
			msg, err := r.Compose(notification(tr, nil), "")
			require.NoError(t, err)
			assert.Contains(t, msg.BodyText, "An instance of your account")
			assert.NotContains(t, msg.BodyHTML, "<strong>")
		})
	}
}

func TestRenderer_EscapesHTML(t *testing.T) {
	r := newTestRenderer(t)

	n := notification(types.TransitionEnterAlarm, strPtr("<script>x</script>"))
	msg, err := r.Compose(n, "")
	require.NoError(t, err)

	assert.NotContains(t, msg.BodyHTML, "<script>")
	assert.Contains(t, msg.BodyHTML, "&lt;script&gt;")
	// Plain text carries the name verbatim.
	assert.Contains(t, msg.BodyText, "<script>x</script>")
}

func TestRenderer_IntegralThresholdHasNoDecimals(t *testing.T) {
	r := newTestRenderer(t)

	n := notification(types.TransitionEnterAlarm, nil)
	n.Threshold = 80
	msg, err := r.Compose(n, "")
	require.NoError(t, err)
	assert.Contains(t, msg.BodyHTML, "Greater than 80<")
}

func TestRenderer_Errors(t *testing.T) {
	r := newTestRenderer(t)

	_, err := r.Compose(nil, "")
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrCodeInternalTemplate))

	_, err = r.Compose(notification(types.TransitionNone, nil), "")
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrCodeInternalTemplate))

	_, err = r.Compose(notification("bogus", nil), "")
	require.Error(t, err)
}
