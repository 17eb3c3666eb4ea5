package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/tether007/GreenChainAdvisory/internal/application/analysis"
	domai "github.com/tether007/GreenChainAdvisory/internal/domain/ai"
	domain "github.com/tether007/GreenChainAdvisory/internal/domain/analysis"
	"github.com/tether007/GreenChainAdvisory/internal/domain/ledger"
	"github.com/tether007/GreenChainAdvisory/internal/middleware"
)

type Router struct {
	svc *appanalysis.Service
}

// NewRouter wires the analysis endpoints. health is mounted as-is so the
// checker set stays a concern of main.
func NewRouter(svc *appanalysis.Service, health http.HandlerFunc, allowedOrigins []string) http.Handler {
	r := &Router{svc: svc}
	mux := chi.NewRouter()

	if len(allowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		}))
	}

	mux.Get("/health", health)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/price", r.wrap(r.handlePrice))
		rt.Post("/payments", r.wrap(r.handlePay))
		rt.Post("/analyses", r.wrap(r.handleAnalyze))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
		rt.Get("/owners/{address}/analyses", r.wrap(r.handleHistory))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap maps the error taxonomy onto HTTP statuses. Every error body is
// {"error": "..."}; a caller either gets a well-typed result or an explicit
// error, never a partially filled one.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, domain.ErrInvalidInput),
			errors.Is(err, ledger.ErrInvalidAddress),
			errors.Is(err, ledger.ErrRejectedSignature):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, ledger.ErrInsufficientFunds):
			writeError(w, http.StatusPaymentRequired, err)
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, domain.ErrDuplicateID):
			writeError(w, http.StatusConflict, err)
		case errors.Is(err, ledger.ErrNotImplemented):
			writeError(w, http.StatusNotImplemented, err)
		case errors.Is(err, ledger.ErrEventNotFound):
			// money was spent with no usable correlation id; the message
			// stays distinct from a plain transport failure
			writeError(w, http.StatusBadGateway, err)
		case errors.Is(err, ledger.ErrUnavailable):
			writeError(w, http.StatusBadGateway, err)
		case errors.Is(err, domai.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// GET /v1/price
// Current analysis fee in wei, read from the contract. Informational: the
// amount actually paid is reported by the payment response.
func (r *Router) handlePrice(w http.ResponseWriter, req *http.Request) error {
	price, err := r.svc.Price(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]*big.Int{"price_wei": price})
}

// POST /v1/payments
// Body: {"owner": "0x...", "fingerprint": "<sha256 hex>"}
// The relayer pays the fee on-chain and the pending record is created under
// the event-assigned correlation id.
func (r *Router) handlePay(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Owner       string `json:"owner"`
		Fingerprint string `json:"fingerprint"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: invalid JSON body", domain.ErrInvalidInput)
	}

	res, err := r.svc.RequestPayment(req.Context(), body.Owner, body.Fingerprint)
	if err != nil {
		return err
	}
	return writeJSON(w, res)
}

// maxUploadBytes caps the whole multipart body; the image itself is
// re-checked against the 10 MiB limit after decoding.
const maxUploadBytes = appanalysis.MaxImageBytes + 1<<20

// POST /v1/analyses
// Multipart form: image (file), correlation_id, owner.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		return fmt.Errorf("%w: multipart form too large or malformed", domain.ErrInvalidInput)
	}

	file, header, err := req.FormFile("image")
	if err != nil {
		return fmt.Errorf("%w: image file is required", domain.ErrInvalidInput)
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	rec, err := r.svc.Analyze(req.Context(), appanalysis.AnalyzeCommand{
		CorrelationID: req.FormValue("correlation_id"),
		Owner:         req.FormValue("owner"),
		Image:         image,
		MimeType:      header.Header.Get("Content-Type"),
	})
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	middleware.IncrementAnalyses()
	return writeJSON(w, rec)
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	rec, err := r.svc.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, rec)
}

// GET /v1/owners/{address}/analyses
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	list, err := r.svc.History(req.Context(), chi.URLParam(req, "address"))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Record{}
	}
	return writeJSON(w, list)
}
