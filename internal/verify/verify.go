package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	verifyv2 "github.com/twilio/twilio-go/rest/verify/v2"
	"go.uber.org/zap"

	"github.com/votipian/council/backend/internal/config"
)

// Sender delivers and checks one-time account verification codes.
type Sender interface {
	// Enabled is false when accounts are verified on registration without a code.
	Enabled() bool
	Send(ctx context.Context, email string) error
	Check(ctx context.Context, email, code string) (bool, error)
}

// New returns a Twilio Verify sender when configured, otherwise a no-op sender.
func New(cfg config.Config, log *zap.Logger) Sender {
	if !cfg.TwilioEnabled() {
		log.Warn("twilio verify not configured, accounts are verified on registration")
		return NoopSender{}
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	return &TwilioSender{
		api:        client.VerifyV2,
		serviceSID: cfg.TwilioVerifyServiceSID,
		log:        log.Named("verify"),
	}
}

// verifyAPI is the subset of the Twilio Verify v2 client used here.
type verifyAPI interface {
	CreateVerification(serviceSid string, params *verifyv2.CreateVerificationParams) (*verifyv2.VerifyV2Verification, error)
	CreateVerificationCheck(serviceSid string, params *verifyv2.CreateVerificationCheckParams) (*verifyv2.VerifyV2VerificationCheck, error)
}

type TwilioSender struct {
	api        verifyAPI
	serviceSID string
	log        *zap.Logger
}

func (s *TwilioSender) Enabled() bool { return true }

func (s *TwilioSender) Send(ctx context.Context, email string) error {
	params := &verifyv2.CreateVerificationParams{}
	params.SetTo(normalize(email))
	params.SetChannel("email")

	resp, err := s.api.CreateVerification(s.serviceSID, params)
	if err != nil {
		s.log.Error("send verification failed", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("send verification: %w", err)
	}

	status := ""
	if resp.Status != nil {
		status = *resp.Status
	}
	s.log.Info("verification sent", zap.String("email", email), zap.String("status", status))
	return nil
}

func (s *TwilioSender) Check(ctx context.Context, email, code string) (bool, error) {
	params := &verifyv2.CreateVerificationCheckParams{}
	params.SetTo(normalize(email))
	params.SetCode(strings.TrimSpace(code))

	resp, err := s.api.CreateVerificationCheck(s.serviceSID, params)
	if err != nil {
		s.log.Error("check verification failed", zap.String("email", email), zap.Error(err))
		return false, fmt.Errorf("check verification: %w", err)
	}
	return resp.Status != nil && *resp.Status == "approved", nil
}

// NoopSender never sends anything and rejects every code.
type NoopSender struct{}

func (NoopSender) Enabled() bool { return false }

func (NoopSender) Send(context.Context, string) error { return nil }

func (NoopSender) Check(context.Context, string, string) (bool, error) { return false, nil }

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
