package http_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/comanda/internal/calculation"
	apihttp "github.com/MrJamesThe3rd/comanda/internal/http"
	"github.com/MrJamesThe3rd/comanda/internal/http/auth"
	"github.com/MrJamesThe3rd/comanda/internal/http/export"
	"github.com/MrJamesThe3rd/comanda/internal/http/importcsv"
	httpreport "github.com/MrJamesThe3rd/comanda/internal/http/report"
	httptx "github.com/MrJamesThe3rd/comanda/internal/http/transaction"
	"github.com/MrJamesThe3rd/comanda/internal/report"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
	"github.com/MrJamesThe3rd/comanda/internal/transaction/memstore"
)

func newServer(t *testing.T, opts apihttp.Options) *httptest.Server {
	t.Helper()

	txSvc := transaction.NewService(memstore.New(), calculation.DefaultRates())
	reportSvc := report.NewService(txSvc, nil)

	srv := httptest.NewServer(apihttp.New(
		opts,
		httptx.NewHandler(txSvc),
		importcsv.NewHandler(txSvc),
		export.NewHandler(txSvc, reportSvc),
		httpreport.NewHandler(reportSvc),
	))
	t.Cleanup(srv.Close)

	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	var req *http.Request

	var err error

	if body == "" {
		req, err = http.NewRequest(method, url, nil)
	} else {
		req, err = http.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))

	return v
}

type txResponse struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Month        string `json:"month"`
	Credito      string `json:"credito"`
	TotalBruto   string `json:"totalBruto"`
	TaxaCredito  string `json:"taxaCredito"`
	TotalLiquido string `json:"totalLiquido"`
	KamShare     string `json:"kamShare"`
}

func TestTransactionsLifecycle(t *testing.T) {
	srv := newServer(t, apihttp.Options{})
	base := srv.URL + "/api/v1/transactions"

	resp := do(t, http.MethodPost, base, `{"date":"2024-01-15","dinheiro":100,"pix":"200","debito":"300,00","credito":"R$ 400"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decode[txResponse](t, resp)
	assert.Equal(t, "2024-01-15", created.Date)
	assert.Equal(t, "2024-01", created.Month)
	assert.Equal(t, "1000", created.TotalBruto)
	assert.Equal(t, "981.13", created.TotalLiquido)
	assert.Equal(t, "39.2452", created.KamShare)

	resp = do(t, http.MethodGet, base+"/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, decode[txResponse](t, resp).ID)

	resp = do(t, http.MethodPatch, base+"/"+created.ID, `{"credito":"1000"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decode[txResponse](t, resp)
	assert.Equal(t, "35.1", updated.TaxaCredito)
	assert.Equal(t, "1600", updated.TotalBruto)

	resp = do(t, http.MethodGet, base+"?month=2024-01&method=credito", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]txResponse](t, resp), 1)

	resp = do(t, http.MethodDelete, base+"/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodDelete, base+"/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, base+"/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTransactions_BadRequests(t *testing.T) {
	srv := newServer(t, apihttp.Options{})
	base := srv.URL + "/api/v1/transactions"

	type testCase struct {
		name   string
		method string
		url    string
		body   string
	}

	tests := []testCase{
		{name: "ZeroSum", method: http.MethodPost, url: base, body: `{"date":"2024-01-01","dinheiro":0}`},
		{name: "MissingDate", method: http.MethodPost, url: base, body: `{"dinheiro":10}`},
		{name: "BadDate", method: http.MethodPost, url: base, body: `{"date":"01/02/2024","dinheiro":10}`},
		{name: "UnknownField", method: http.MethodPost, url: base, body: `{"date":"2024-01-01","dinheiro":10,"troco":1}`},
		{name: "BadID", method: http.MethodGet, url: base + "/not-a-uuid"},
		{name: "BadMethodFilter", method: http.MethodGet, url: base + "?method=boleto"},
		{name: "BadMonthFilter", method: http.MethodGet, url: base + "?month=2024-13"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, tt.url, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestPreview(t *testing.T) {
	srv := newServer(t, apihttp.Options{})

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/transactions/preview",
		`{"dinheiro":"100","pix":"200","debito":"300","credito":"400","split":{"kamRate":"20"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[map[string]any](t, resp)
	assert.Equal(t, "392.452", got["eduShare"])
	assert.Equal(t, "78.4904", got["kamShare"])

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/transactions/preview", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", decode[map[string]any](t, resp)["totalBruto"])
}

func upload(t *testing.T, url, content string) *http.Response {
	t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "comandas.csv")
	require.NoError(t, err)

	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func TestImportExport(t *testing.T) {
	srv := newServer(t, apihttp.Options{})
	api := srv.URL + "/api/v1"

	csv := "data,dinheiro,pix,debito,credito\n2024-03-01,100,,,\n2024-03-02,,,,250\nbad,1,,,\n"

	resp := upload(t, api+"/import", csv)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	imported := decode[struct {
		Imported int `json:"imported"`
		Skipped  []struct {
			Line int `json:"line"`
		} `json:"skipped"`
	}](t, resp)
	assert.Equal(t, 2, imported.Imported)
	require.Len(t, imported.Skipped, 1)
	assert.Equal(t, 4, imported.Skipped[0].Line)

	resp = upload(t, api+"/import", csv)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	conflicts := decode[struct {
		Conflicts []json.RawMessage `json:"conflicts"`
	}](t, resp)
	assert.Len(t, conflicts.Conflicts, 2)

	resp = do(t, http.MethodPost, api+"/import/confirm", `{"rows":[{"date":"2024-03-01","dinheiro":"100"}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = upload(t, api+"/import", "data,dinheiro\n")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, api+"/export/csv?month=2024-03", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".csv")

	var out bytes.Buffer
	_, err := out.ReadFrom(resp.Body)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 4)

	resp = do(t, http.MethodGet, api+"/export/xlsx?month=2024-03", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")

	resp = do(t, http.MethodGet, api+"/reports/monthly?month=2024-03", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	monthly := decode[struct {
		Count      int    `json:"count"`
		TotalBruto string `json:"totalBruto"`
	}](t, resp)
	assert.Equal(t, 3, monthly.Count)
	assert.Equal(t, "450", monthly.TotalBruto)

	resp = do(t, http.MethodGet, api+"/reports/trend?ref=2024-03&periods=3", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]json.RawMessage](t, resp), 3)

	resp = do(t, http.MethodGet, api+"/reports/forecast?ref=2024-03", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	forecast := decode[struct {
		Trend    []json.RawMessage `json:"trend"`
		Estimate struct {
			Recommendation string `json:"recommendation"`
		} `json:"estimate"`
	}](t, resp)
	assert.Len(t, forecast.Trend, report.DefaultPeriods)
	assert.NotEmpty(t, forecast.Estimate.Recommendation)

	resp = do(t, http.MethodGet, api+"/reports/monthly?month=2024-3x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	srv := newServer(t, apihttp.Options{Auth: auth.New("secret", []string{"dona@salao.com"})})

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/transactions", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Email:            "dona@salao.com",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/transactions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer authed.Body.Close()

	assert.Equal(t, http.StatusOK, authed.StatusCode)
}
