package smtp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_EmployerEmail(t *testing.T) {
	msg, err := compose("noreply@app.io", "e@x.com", "Background Verification Request for Ann",
		employerTmpl, emailData{CandidateName: "Ann", ChatLink: "http://app.io/chat/room-1"})
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "From: noreply@app.io\r\n")
	assert.Contains(t, s, "To: e@x.com\r\n")
	assert.Contains(t, s, "Subject: Background Verification Request for Ann\r\n")
	assert.Contains(t, s, "Content-Type: text/html")
	assert.Contains(t, s, `href="http://app.io/chat/room-1"`)
	assert.Contains(t, s, "<strong>Ann</strong>")
}

func TestCompose_EscapesCandidateName(t *testing.T) {
	msg, err := compose("a@b.c", "ann@x.com", "subject", candidateTmpl,
		emailData{CandidateName: "<script>alert(1)</script>", ChatLink: "http://app.io/chat/r"})
	require.NoError(t, err)
	assert.NotContains(t, string(msg), "<script>")
	assert.Contains(t, string(msg), "&lt;script&gt;")
}

func TestDeliver_DialFailureRespectsContext(t *testing.T) {
	// Reserve a port and close it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, ln.Close())

	m := &mailer{host: host, port: port, from: "a@b.c"}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = m.SendVerificationEmail(ctx, "e@x.com", "Ann", "http://app.io/chat/r")
	assert.ErrorContains(t, err, "dial smtp")
}
