package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appanalysis "github.com/tether007/GreenChainAdvisory/internal/application/analysis"
	domain "github.com/tether007/GreenChainAdvisory/internal/domain/analysis"
	"github.com/tether007/GreenChainAdvisory/internal/domain/diagnosis"
	"github.com/tether007/GreenChainAdvisory/internal/domain/ledger"
)

const testOwner = "0xabc0000000000000000000000000000000000001"

// ---- fakes ----

type memRepo struct {
	mu      sync.Mutex
	records map[domain.CorrelationID]*domain.Record
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[domain.CorrelationID]*domain.Record)}
}

func (r *memRepo) CreatePending(_ context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.CorrelationID]; ok {
		return domain.ErrDuplicateID
	}
	cp := *rec
	r.records[rec.CorrelationID] = &cp
	return nil
}

func (r *memRepo) Complete(_ context.Context, id domain.CorrelationID, res diagnosis.Result, imageURL string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.CompletedAt != nil {
		return domain.ErrNotFound
	}
	rec.Diagnosis, rec.Advice, rec.Severity = res.Diagnosis, res.Advice, res.Severity
	c := res.Confidence
	rec.Confidence = &c
	rec.ImageURL = imageURL
	t := at
	rec.CompletedAt = &t
	return nil
}

func (r *memRepo) Get(_ context.Context, id domain.CorrelationID) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *memRepo) ListByOwner(_ context.Context, owner string) ([]*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Record
	for _, rec := range r.records {
		if rec.Owner == owner {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type stubLedger struct {
	id  string
	err error
}

func (l *stubLedger) Price(context.Context) (*big.Int, error) { return big.NewInt(1000), nil }
func (l *stubLedger) RequestAnalysis(context.Context, string, string) (string, *big.Int, error) {
	if l.err != nil {
		return "", nil, l.err
	}
	return l.id, big.NewInt(1000), nil
}

type stubAI struct{ raw string }

func (a *stubAI) Diagnose(context.Context, []byte, string) (string, error) { return a.raw, nil }

type memImages struct{}

func (memImages) Upload(_ context.Context, _, key string) (string, error) {
	return "http://images.local/" + key, nil
}
func (m memImages) UploadAndCleanup(ctx context.Context, localPath, key string) (string, error) {
	url, err := m.Upload(ctx, localPath, key)
	os.Remove(localPath)
	return url, err
}

func newTestHandler(l *stubLedger, rawModelOutput string) http.Handler {
	svc := &appanalysis.Service{
		Records: newMemRepo(),
		Ledger:  l,
		AI:      &stubAI{raw: rawModelOutput},
		Images:  memImages{},
		Clock:   appanalysis.SystemClock{},
	}
	health := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	return NewRouter(svc, health, nil)
}

func multipartUpload(t *testing.T, correlationID, owner, mime string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="leaf.jpg"`)
	hdr.Set("Content-Type", mime)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(image)
	require.NoError(t, err)

	require.NoError(t, w.WriteField("correlation_id", correlationID))
	require.NoError(t, w.WriteField("owner", owner))
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// ---- tests ----

const goodModelOutput = `{"diagnosis":"leaf rust","advice":"apply fungicide","severity":"high","confidence":0.9}`

func TestAnalyzeEndpoint(t *testing.T) {
	h := newTestHandler(&stubLedger{id: "42"}, goodModelOutput)

	body, contentType := multipartUpload(t, "42", testOwner, "image/jpeg", []byte("image bytes"))
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var rec domain.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	require.Equal(t, "leaf rust", rec.Diagnosis)
	require.Equal(t, diagnosis.SeverityHigh, rec.Severity)
	require.NotNil(t, rec.CompletedAt)
	require.Equal(t, domain.Fingerprint([]byte("image bytes")), rec.Fingerprint)
}

func TestAnalyzeEndpointRejectsNonImage(t *testing.T) {
	h := newTestHandler(&stubLedger{id: "42"}, goodModelOutput)

	body, contentType := multipartUpload(t, "42", testOwner, "application/pdf", []byte("%PDF"))
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Contains(t, resp["error"], "unsupported content type")
}

func TestAnalyzeEndpointMissingFile(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("correlation_id", "42"))
	require.NoError(t, w.WriteField("owner", testOwner))
	require.NoError(t, w.Close())

	h := newTestHandler(&stubLedger{id: "42"}, goodModelOutput)
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPriceEndpoint(t *testing.T) {
	h := newTestHandler(&stubLedger{id: "42"}, goodModelOutput)

	req := httptest.NewRequest(http.MethodGet, "/v1/price", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"price_wei":1000}`, rr.Body.String())
}

func TestPaymentsEndpoint(t *testing.T) {
	h := newTestHandler(&stubLedger{id: "42"}, goodModelOutput)

	req := httptest.NewRequest(http.MethodPost, "/v1/payments",
		bytes.NewBufferString(`{"owner":"`+testOwner+`","fingerprint":"deadbeef"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		CorrelationID string `json:"correlation_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "42", resp.CorrelationID)
}

func TestPaymentsEndpointErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ledger.ErrInvalidAddress, http.StatusBadRequest},
		{ledger.ErrInsufficientFunds, http.StatusPaymentRequired},
		{ledger.ErrEventNotFound, http.StatusBadGateway},
		{ledger.ErrUnavailable, http.StatusBadGateway},
		{ledger.ErrNotImplemented, http.StatusNotImplemented},
	}
	for _, tc := range cases {
		h := newTestHandler(&stubLedger{err: tc.err}, goodModelOutput)
		req := httptest.NewRequest(http.MethodPost, "/v1/payments",
			bytes.NewBufferString(`{"owner":"`+testOwner+`","fingerprint":"deadbeef"}`))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, tc.status, rr.Code, tc.err)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	h := newTestHandler(&stubLedger{id: "42"}, goodModelOutput)

	// empty history is an empty array, not null
	req := httptest.NewRequest(http.MethodGet, "/v1/owners/"+testOwner+"/analyses", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, "[]", rr.Body.String())

	body, contentType := multipartUpload(t, "42", testOwner, "image/jpeg", []byte("image"))
	up := httptest.NewRequest(http.MethodPost, "/v1/analyses", body)
	up.Header.Set("Content-Type", contentType)
	h.ServeHTTP(httptest.NewRecorder(), up)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []domain.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.NotNil(t, list[0].CompletedAt)
}

func TestGetEndpointNotFound(t *testing.T) {
	h := newTestHandler(&stubLedger{id: "42"}, goodModelOutput)

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/nope", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
