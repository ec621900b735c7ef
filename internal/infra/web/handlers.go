package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"stripe-installments/internal/domain"
	"stripe-installments/internal/usecase"
)

const maxBodyBytes = 1 << 20

// writeJSON and writeError are the single response path for all handlers:
// every failure carries a machine-readable error message.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidCycleCount),
		errors.Is(err, domain.ErrSignature),
		errors.Is(err, domain.ErrParse):
		return http.StatusBadRequest
	default:
		// configuration and provider failures
		return http.StatusInternalServerError
	}
}

// decodeLoose reads the request body as JSON or a form post into a flat map.
// Callers historically sent both, with several alias field names, so the
// subscribe endpoint accepts either.
func decodeLoose(r *http.Request) (map[string]interface{}, error) {
	body := map[string]interface{}{}
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		for k, vs := range r.PostForm {
			if len(vs) > 0 {
				body[k] = vs[0]
			}
		}
		return body, nil
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return nil, err
	}
	return body, nil
}

// firstField returns the first present, non-empty alias as a trimmed string.
func firstField(body map[string]interface{}, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := body[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s, true
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(t), true
		}
	}
	return "", false
}

// parseAmountMinor resolves the requested total in minor units. An explicit
// minor-unit field wins; otherwise a decimal amount (dot or comma separator)
// is converted at 100 minor units per major unit.
func parseAmountMinor(body map[string]interface{}) (int64, error) {
	if s, ok := firstField(body, "amountMinorUnits", "amount_minor"); ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("amountMinorUnits must be a positive integer: %w", domain.ErrInvalidAmount)
		}
		return n, nil
	}
	s, ok := firstField(body, "totalAmount", "amountEuro", "amount", "total", "totalEuro")
	if !ok {
		return 0, fmt.Errorf("amount is required: %w", domain.ErrInvalidAmount)
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, fmt.Errorf("amount must be > 0: %w", domain.ErrInvalidAmount)
	}
	return int64(math.Round(f * 100)), nil
}

func parseCycleCount(body map[string]interface{}) (int, error) {
	s, ok := firstField(body, "cycleCount", "months", "installments", "count", "cycles")
	if !ok {
		return 0, fmt.Errorf("cycle count is required: %w", domain.ErrInvalidCycleCount)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("cycle count must be an integer: %w", domain.ErrInvalidCycleCount)
	}
	return n, nil
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	body, err := decodeLoose(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	totalMinor, err := parseAmountMinor(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cycles, err := parseCycleCount(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	currency, _ := firstField(body, "currency")
	description, _ := firstField(body, "description")

	successURL, cancelURL := s.redirectURLs(r)
	handle, err := s.planUC.Provision(r.Context(), usecase.ProvisionRequest{
		TotalMinor:  totalMinor,
		CycleCount:  cycles,
		Currency:    currency,
		Description: description,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": handle.CheckoutURL})
}

// redirectURLs prefers configured URLs, falling back to provider-hosted pages
// on the request host like the checkout flow always did.
func (s *Server) redirectURLs(r *http.Request) (successURL, cancelURL string) {
	successURL = s.plan.SuccessURL
	cancelURL = s.plan.CancelURL
	origin := "https://" + r.Host
	if successURL == "" {
		successURL = origin + "/success.html?sid={CHECKOUT_SESSION_ID}"
	}
	if cancelURL == "" {
		cancelURL = origin + "/cancel.html"
	}
	return successURL, cancelURL
}

type cancelRequest struct {
	PlanID         string `json:"planId"`
	SubscriptionID string `json:"subscriptionId"`
	AtPeriodEnd    *bool  `json:"atPeriodEnd"`
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	planID := req.PlanID
	if planID == "" {
		planID = req.SubscriptionID
	}
	atPeriodEnd := true
	if req.AtPeriodEnd != nil {
		atPeriodEnd = *req.AtPeriodEnd
	}

	state, err := s.planUC.Cancel(r.Context(), planID, atPeriodEnd)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := map[string]interface{}{
		"canceled":             state.Canceled,
		"cancel_at_period_end": state.CancelAtPeriodEnd,
		"id":                   state.PlanID,
	}
	if !state.EffectiveAt.IsZero() {
		resp["effective_at"] = state.EffectiveAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	if _, err := s.webhookUC.Ingest(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

type opsLoginRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleOpsLogin(w http.ResponseWriter, r *http.Request) {
	var req opsLoginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !KeyMatches(req.Key, s.opsKey) {
		writeError(w, http.StatusUnauthorized, "invalid key")
		return
	}
	if _, err := s.auth.Mint(w); err != nil {
		writeError(w, http.StatusInternalServerError, "session mint failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleOpsEnv reports which provider environment the deployed key belongs to
// without revealing the key itself.
func (s *Server) handleOpsEnv(w http.ResponseWriter, r *http.Request) {
	env := "missing"
	switch {
	case strings.HasPrefix(s.stripeKey, "sk_live_"):
		env = "live"
	case strings.HasPrefix(s.stripeKey, "sk_test_"):
		env = "test"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stripeKeyEnv":     env,
		"hasKey":           s.stripeKey != "",
		"hasWebhookSecret": s.hasWebhookSecret,
	})
}
