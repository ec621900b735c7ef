//go:build !integration

package payment_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"stripe-installments/internal/domain"
	"stripe-installments/internal/infra/payment"
)

const testSecret = "whsec_test_secret"

// sign produces a Stripe-Signature header for a payload: HMAC-SHA256 over
// "<timestamp>.<body>" with the shared secret.
func sign(t *testing.T, payload []byte, secret string, ts time.Time) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts.Unix())))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func invoicePayload(eventID string) []byte {
	return []byte(`{
		"id": "` + eventID + `",
		"type": "invoice.payment_succeeded",
		"created": 1735731000,
		"data": {
			"object": {
				"id": "in_123",
				"object": "invoice",
				"subscription": "sub_123",
				"amount_paid": 3333,
				"currency": "eur"
			}
		}
	}`)
}

func TestStripeGateway_VerifyNotification(t *testing.T) {
	gw := payment.NewStripeGateway("sk_test_dummy")

	t.Run("accepts a correctly signed payload", func(t *testing.T) {
		body := invoicePayload("evt_1")
		header := sign(t, body, testSecret, time.Now())

		n, err := gw.VerifyNotification(body, header, testSecret)
		if err != nil {
			t.Fatalf("expected verification to pass, got %v", err)
		}
		if n.ID != "evt_1" || n.Type != "invoice.payment_succeeded" {
			t.Errorf("unexpected notification: %+v", n)
		}
		if n.PlanID != "sub_123" {
			t.Errorf("subscription id not extracted: %q", n.PlanID)
		}
		if n.AmountMinor != 3333 || n.Currency != "eur" {
			t.Errorf("amount/currency not extracted: %d %s", n.AmountMinor, n.Currency)
		}
	})

	t.Run("rejects a payload signed with the wrong secret", func(t *testing.T) {
		body := invoicePayload("evt_2")
		header := sign(t, body, "whsec_wrong", time.Now())

		_, err := gw.VerifyNotification(body, header, testSecret)
		if !errors.Is(err, domain.ErrSignature) {
			t.Fatalf("expected ErrSignature, got %v", err)
		}
	})

	t.Run("rejects a tampered body", func(t *testing.T) {
		body := invoicePayload("evt_3")
		header := sign(t, body, testSecret, time.Now())
		tampered := append([]byte{}, body...)
		tampered[len(tampered)-2] = ' '

		_, err := gw.VerifyNotification(tampered, header, testSecret)
		if !errors.Is(err, domain.ErrSignature) {
			t.Fatalf("expected ErrSignature, got %v", err)
		}
	})

	t.Run("rejects a missing signature header", func(t *testing.T) {
		_, err := gw.VerifyNotification(invoicePayload("evt_4"), "", testSecret)
		if !errors.Is(err, domain.ErrSignature) {
			t.Fatalf("expected ErrSignature, got %v", err)
		}
	})

	t.Run("rejects a stale timestamp", func(t *testing.T) {
		body := invoicePayload("evt_5")
		header := sign(t, body, testSecret, time.Now().Add(-time.Hour))

		_, err := gw.VerifyNotification(body, header, testSecret)
		if !errors.Is(err, domain.ErrSignature) {
			t.Fatalf("expected ErrSignature, got %v", err)
		}
	})

	t.Run("signed but malformed body is a parse error", func(t *testing.T) {
		body := []byte(`{"this is": not json`)
		header := sign(t, body, testSecret, time.Now())

		_, err := gw.VerifyNotification(body, header, testSecret)
		if !errors.Is(err, domain.ErrParse) {
			t.Fatalf("expected ErrParse, got %v", err)
		}
	})

	t.Run("missing secret is a configuration error", func(t *testing.T) {
		body := invoicePayload("evt_6")
		_, err := gw.VerifyNotification(body, sign(t, body, testSecret, time.Now()), "")
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Fatalf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("extracts the subscription id from checkout completion", func(t *testing.T) {
		body := []byte(`{
			"id": "evt_cs",
			"type": "checkout.session.completed",
			"created": 1735731000,
			"data": {
				"object": {
					"id": "cs_1",
					"object": "checkout.session",
					"subscription": "sub_777",
					"metadata": {"cancel_at_unix": "1767225600", "cycles": "3"}
				}
			}
		}`)
		header := sign(t, body, testSecret, time.Now())

		n, err := gw.VerifyNotification(body, header, testSecret)
		if err != nil {
			t.Fatalf("expected verification to pass, got %v", err)
		}
		if n.PlanID != "sub_777" {
			t.Errorf("plan id not resolved from session: %q", n.PlanID)
		}
		if n.Metadata["cancel_at_unix"] != "1767225600" {
			t.Errorf("metadata not extracted: %v", n.Metadata)
		}
	})
}

func TestStripeGateway_MissingKey(t *testing.T) {
	gw := payment.NewStripeGateway("")

	if _, err := gw.CreateRecurringPrice(ctxBg(), 1000, "eur", 1, "x"); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
	if _, err := gw.UpdateCancellation(ctxBg(), "sub_1", true); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func ctxBg() context.Context { return context.Background() }
