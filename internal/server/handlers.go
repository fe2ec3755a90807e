package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vanshika/txflag/internal/alerts"
	"github.com/vanshika/txflag/internal/artifacts"
	"github.com/vanshika/txflag/internal/domain"
	"github.com/vanshika/txflag/internal/rules"
	"github.com/vanshika/txflag/internal/training"
)

// Predictor scores a single transaction with a trained bundle.
type Predictor interface {
	Predict(tx domain.Transaction) (training.Prediction, error)
	Bundle() *artifacts.Bundle
}

// SuspiciousLister returns recently flagged transactions.
type SuspiciousLister interface {
	ListSuspicious(ctx context.Context, limit int) ([]domain.Transaction, error)
}

// APIDependencies are the collaborators of APIHandlers. Nil fields disable the
// endpoints that need them.
type APIDependencies struct {
	Predictor  Predictor
	Rules      *rules.Set
	Alerts     alerts.Publisher
	Suspicious SuspiciousLister
}

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger     *slog.Logger
	predictor  Predictor
	rules      *rules.Set
	alerts     alerts.Publisher
	suspicious SuspiciousLister
	nowFn      func() time.Time
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, deps APIDependencies) *APIHandlers {
	if deps.Rules == nil {
		deps.Rules = rules.NewSet(rules.DefaultThresholds())
	}
	if deps.Alerts == nil {
		deps.Alerts = alerts.NopPublisher{}
	}
	return &APIHandlers{
		logger:     logger,
		predictor:  deps.Predictor,
		rules:      deps.Rules,
		alerts:     deps.Alerts,
		suspicious: deps.Suspicious,
		nowFn:      time.Now,
	}
}

// WithClock overrides the time provider used for records without a timestamp.
func (h *APIHandlers) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		h.nowFn = nowFn
	}
}

func (h *APIHandlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *APIHandlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if h.predictor == nil {
		writeError(w, http.StatusServiceUnavailable, "no trained model loaded")
		return
	}

	var req predictRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	tx, err := req.toTransaction(h.nowFn)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pred, err := h.predictor.Predict(tx)
	if err != nil {
		h.logger.Error("prediction failed", "error", err, "transactionId", tx.ID)
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}
	reasons := h.rules.Evaluate(tx, rules.NoHistory)
	if reasons == nil {
		reasons = []string{}
	}

	if pred.Suspicious {
		tx.Reasons = reasons
		alert := alerts.FromTransaction(tx, alerts.SourceClassifier)
		prob := pred.Probability
		alert.Probability = &prob
		if err := h.alerts.Publish(r.Context(), alert); err != nil {
			h.logger.Warn("failed to publish alert", "error", err, "transactionId", tx.ID)
		}
	}

	respondJSON(w, http.StatusOK, predictResponse{
		TransactionID: tx.ID,
		Suspicious:    pred.Suspicious,
		Probability:   pred.Probability,
		Reasons:       reasons,
	})
}

func (h *APIHandlers) handleModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if h.predictor == nil {
		writeError(w, http.StatusNotFound, "no trained model loaded")
		return
	}

	b := h.predictor.Bundle()
	resp := modelResponse{
		ID:          b.ID,
		CreatedAt:   formatTime(b.CreatedAt),
		Features:    b.FeatureNames,
		Trees:       len(b.Forest.Trees),
		TrainRows:   b.TrainRows,
		TestRows:    b.TestRows,
		Accuracy:    b.Report.Accuracy,
		Confusion:   b.Report.Confusion,
		Importances: make([]importanceResponse, 0, len(b.Importances)),
	}
	for i, label := range []string{"legitimate", "suspicious"} {
		m := b.Report.Classes[i]
		resp.Classes = append(resp.Classes, classResponse{
			Label:     label,
			Precision: m.Precision,
			Recall:    m.Recall,
			F1:        m.F1,
			Support:   m.Support,
		})
	}
	for _, imp := range b.Importances {
		resp.Importances = append(resp.Importances, importanceResponse{Feature: imp.Feature, Importance: imp.Importance})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleSuspicious(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if h.suspicious == nil {
		writeError(w, http.StatusNotFound, "graph store not configured")
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 0)
	txs, err := h.suspicious.ListSuspicious(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list suspicious transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list suspicious transactions")
		return
	}

	items := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		reasons := tx.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		items = append(items, transactionResponse{
			ID:            tx.ID,
			From:          tx.SenderID,
			To:            tx.ReceiverID,
			Type:          string(tx.Type),
			Amount:        tx.Amount.String(),
			ContactNumber: tx.ContactNumber,
			Timestamp:     formatTime(tx.Timestamp),
			Reasons:       reasons,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

type predictRequest struct {
	ID            string          `json:"id"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	CardNumber    string          `json:"card_number"`
	ExpiryDate    string          `json:"expiry_date"`
	CVV           string          `json:"cvv"`
	AccountNumber string          `json:"account_number"`
	IFSCCode      string          `json:"ifsc_code"`
	ContactNumber string          `json:"contact_number"`
	Timestamp     string          `json:"timestamp"`
}

func (req predictRequest) toTransaction(now func() time.Time) (domain.Transaction, error) {
	txType := domain.TransactionType(strings.ToLower(strings.TrimSpace(req.Type)))
	if !txType.Valid() {
		return domain.Transaction{}, fmtError("type must be one of card, neft, contact")
	}
	if req.From == "" || req.To == "" {
		return domain.Transaction{}, fmtError("from and to are required")
	}
	if req.From == req.To {
		return domain.Transaction{}, fmtError("from and to must differ")
	}
	if !req.Amount.IsPositive() {
		return domain.Transaction{}, fmtError("amount must be positive")
	}

	ts := now().UTC()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return domain.Transaction{}, fmtError("invalid timestamp")
		}
		ts = parsed
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	return domain.Transaction{
		ID:            id,
		SenderID:      req.From,
		ReceiverID:    req.To,
		Type:          txType,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		CardNumber:    req.CardNumber,
		ExpiryDate:    req.ExpiryDate,
		CVV:           req.CVV,
		AccountNumber: req.AccountNumber,
		IFSCCode:      req.IFSCCode,
		ContactNumber: req.ContactNumber,
		Timestamp:     ts,
	}, nil
}

type predictResponse struct {
	TransactionID string   `json:"transactionId"`
	Suspicious    bool     `json:"suspicious"`
	Probability   float64  `json:"probability"`
	Reasons       []string `json:"reasons"`
}

type modelResponse struct {
	ID          string               `json:"id"`
	CreatedAt   string               `json:"createdAt"`
	Features    []string             `json:"features"`
	Trees       int                  `json:"trees"`
	TrainRows   int                  `json:"trainRows"`
	TestRows    int                  `json:"testRows"`
	Accuracy    float64              `json:"accuracy"`
	Classes     []classResponse      `json:"classes"`
	Confusion   [2][2]int            `json:"confusion"`
	Importances []importanceResponse `json:"importances"`
}

type classResponse struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

type importanceResponse struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

type transactionResponse struct {
	ID            string   `json:"id"`
	From          string   `json:"from"`
	To            string   `json:"to"`
	Type          string   `json:"type"`
	Amount        string   `json:"amount"`
	ContactNumber string   `json:"contactNumber,omitempty"`
	Timestamp     string   `json:"timestamp"`
	Reasons       []string `json:"reasons"`
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func fmtError(msg string) error {
	return errors.New(msg)
}
