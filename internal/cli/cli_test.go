package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-as4-reliability/internal/config"
	"github.com/sirosfoundation/go-as4-reliability/pkg/message"
	"github.com/sirosfoundation/go-as4-reliability/pkg/msh"
	"github.com/sirosfoundation/go-as4-reliability/pkg/pmode"
	"github.com/sirosfoundation/go-as4-reliability/pkg/profile"
	"github.com/sirosfoundation/go-as4-reliability/pkg/transport"
)

const (
	testService = "urn:example:service"
	testAction  = "Deliver"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPMode(address string) *pmode.PMode {
	pm := profile.ESENS().NewPMode(
		pmode.Party{ID: "sender", Role: message.DefaultRole},
		pmode.Party{ID: "receiver", Role: message.DefaultRole},
		address,
	)
	pm.Leg1.BusinessInfo.Service = testService
	pm.Leg1.BusinessInfo.Action = testAction
	return pm
}

func writePModes(t *testing.T, pmodes ...*pmode.PMode) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, pmode.Encode(&buf, pmodes...))
	path := filepath.Join(t.TempDir(), "pmodes.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand_Conformant(t *testing.T) {
	path := writePModes(t, testPMode("https://receiver.example.com/as4"))

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "sender-receiver: OK")
}

func TestValidateCommand_Violation(t *testing.T) {
	pm := testPMode("https://receiver.example.com/as4")
	pm.Leg1.Security.X509SignatureAlgorithm = pmode.AlgoEd25519
	path := writePModes(t, pm)

	out, err := execute(t, "validate", "--profile", "esens", path)
	require.ErrorIs(t, err, ErrInvalidPModes)
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "X509SignatureAlgorithm")

	// conformant for e-SENS, not for BDEW
	pm.Leg1.Security.X509SignatureAlgorithm = pmode.AlgoRSASHA256
	_, err = execute(t, "validate", "--profile", "bdew", writePModes(t, pm))
	assert.ErrorIs(t, err, ErrInvalidPModes)
}

func TestValidateCommand_WarningsDoNotFail(t *testing.T) {
	pm := testPMode("https://receiver.example.com/as4")
	pm.ReceptionAwareness = nil
	path := writePModes(t, pm)

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "WARNING")
}

func TestValidateCommand_SignalModeSkipsEncryption(t *testing.T) {
	pm := testPMode("https://receiver.example.com/as4")
	pm.Leg1.Security.X509EncryptionAlgorithm = pmode.DataAlgoAES256CBC
	path := writePModes(t, pm)

	_, err := execute(t, "validate", path)
	require.ErrorIs(t, err, ErrInvalidPModes)

	_, err = execute(t, "validate", "--mode", "signal", path)
	assert.NoError(t, err)
}

func TestValidateCommand_Errors(t *testing.T) {
	path := writePModes(t, testPMode("https://receiver.example.com/as4"))

	_, err := execute(t, "validate")
	assert.Error(t, err, "files are required")

	_, err = execute(t, "validate", "--profile", "nope", path)
	assert.ErrorIs(t, err, profile.ErrUnknownProfile)

	_, err = execute(t, "validate", "--mode", "both", path)
	assert.Error(t, err)

	_, err = execute(t, "validate", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestProfilesCommand(t *testing.T) {
	out, err := execute(t, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, profile.ESENSID)
	assert.Contains(t, out, profile.BDEWID)
	assert.Contains(t, out, profile.EDelivery2ID)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "warn", "json")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = NewLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = NewLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestPick(t *testing.T) {
	assert.Equal(t, "debug", pick("debug", "info"))
	assert.Equal(t, "info", pick("", "info"))
}

func TestServeCommand_BadConfig(t *testing.T) {
	_, err := execute(t, "serve", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func daemonConfig(t *testing.T, pmodes ...*pmode.PMode) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.PModes.Files = []string{writePModes(t, pmodes...)}
	return cfg
}

func TestNewDaemon_RejectsNonConformantPModes(t *testing.T) {
	pm := testPMode("https://receiver.example.com/as4")
	pm.Leg1.Security.SendReceiptReplyPattern = pmode.ReplyCallback

	_, err := newDaemon(context.Background(), daemonConfig(t, pm), quietLogger())
	assert.ErrorIs(t, err, ErrInvalidPModes)
}

func TestNewDaemon_Errors(t *testing.T) {
	cfg := daemonConfig(t, testPMode("https://receiver.example.com/as4"))
	cfg.Profile = "nope"
	_, err := newDaemon(context.Background(), cfg, quietLogger())
	assert.ErrorIs(t, err, profile.ErrUnknownProfile)

	cfg = daemonConfig(t, testPMode("https://receiver.example.com/as4"))
	cfg.Server.TLS.Enabled = true
	cfg.Server.TLS.CertFile = filepath.Join(t.TempDir(), "missing.crt")
	cfg.Server.TLS.KeyFile = filepath.Join(t.TempDir(), "missing.key")
	_, err = newDaemon(context.Background(), cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading TLS key pair")

	cfg = config.Default()
	cfg.PModes.Files = []string{filepath.Join(t.TempDir(), "missing.yaml")}
	_, err = newDaemon(context.Background(), cfg, quietLogger())
	assert.Error(t, err)
}

func TestNewDaemon_LoadsPModes(t *testing.T) {
	first := testPMode("https://receiver.example.com/as4")
	second := testPMode("https://other.example.com/as4")
	second.ID = "second"
	second.Leg1.BusinessInfo.Action = "Other"

	cfg := daemonConfig(t, first, second)
	cfg.Reliability.DumpDir = filepath.Join(t.TempDir(), "dump")

	d, err := newDaemon(context.Background(), cfg, quietLogger())
	require.NoError(t, err)

	ids, err := d.pmodes.IDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "sender-receiver"}, ids)
	assert.Equal(t, config.DefaultDuplicateDisposal, d.msh.DuplicateStore().Window())
}

// newReceiver runs the daemon's endpoint behind a TLS test server and
// returns an MSH that sends to it
func newReceiver(t *testing.T, configure func(*config.Config)) (*daemon, *msh.MSH) {
	t.Helper()

	cfg := daemonConfig(t, testPMode("https://receiver.example.com/as4"))
	if configure != nil {
		configure(cfg)
	}
	d, err := newDaemon(context.Background(), cfg, quietLogger())
	require.NoError(t, err)

	srv := httptest.NewTLSServer(d.server.Handler())
	t.Cleanup(srv.Close)

	senderPModes := pmode.NewMemoryManager()
	require.NoError(t, senderPModes.Create(context.Background(), testPMode(srv.URL+cfg.Server.Path)))
	sender, err := msh.NewMSH(msh.MSHConfig{
		PModes:     senderPModes,
		Profile:    profile.ESENS(),
		HTTPClient: srv.Client(),
		Logger:     quietLogger(),
	})
	require.NoError(t, err)
	return d, sender
}

func testUserMessage(t *testing.T) *message.UserMessage {
	t.Helper()
	um, err := message.NewUserMessage(
		message.WithFrom("sender", ""),
		message.WithTo("receiver", ""),
		message.WithService(testService),
		message.WithAction(testAction),
	).AddPartInfo("cid:payload@example.com", "application/xml").Build()
	require.NoError(t, err)
	return um
}

func TestDaemon_ReceivesAndDeduplicates(t *testing.T) {
	d, sender := newReceiver(t, nil)
	um := testUserMessage(t)

	result, err := sender.Send(context.Background(), &msh.OutboundMessage{UserMessage: um})
	require.NoError(t, err)
	require.NotNil(t, result.Signal)
	require.NotNil(t, result.Signal.Receipt)
	assert.Equal(t, um.ID(), result.Signal.RefToMessageID())

	status, err := d.msh.GetMessageStatus(um.ID())
	require.NoError(t, err)
	assert.Equal(t, msh.MessageStatusReceived, status.Status)

	_, err = sender.Send(context.Background(), &msh.OutboundMessage{UserMessage: um})
	var serr *msh.SignalError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, []string{message.ErrorOther.Code}, serr.Codes())
}

func TestDaemon_ReplaysReceipts(t *testing.T) {
	_, sender := newReceiver(t, func(cfg *config.Config) {
		cfg.Reliability.ReplayReceipts = true
	})
	um := testUserMessage(t)

	first, err := sender.Send(context.Background(), &msh.OutboundMessage{UserMessage: um})
	require.NoError(t, err)
	second, err := sender.Send(context.Background(), &msh.OutboundMessage{UserMessage: um})
	require.NoError(t, err)
	assert.Equal(t, first.Signal.ID(), second.Signal.ID())
}

func TestDaemon_ServesOnDefaultPathOnly(t *testing.T) {
	d, _ := newReceiver(t, nil)
	srv := httptest.NewTLSServer(d.server.Handler())
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/elsewhere", transport.ContentTypeSOAP, bytes.NewReader([]byte("<x/>")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

func TestDaemon_RunStopsOnCancel(t *testing.T) {
	d, err := newDaemon(context.Background(), daemonConfig(t, testPMode("https://receiver.example.com/as4")), quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}
