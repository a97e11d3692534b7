package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recordsmaster/internal/domain"
	"recordsmaster/internal/notify"
	"recordsmaster/internal/repository"
	"recordsmaster/internal/service"
	"recordsmaster/internal/store"
)

func newUploadServer(t *testing.T) (*httptest.Server, *repository.MemoryRecordsRepository) {
	t.Helper()
	repo := repository.NewMemoryRecordsRepository()
	logger := zap.NewNop()
	ingest := service.NewIngestService(repo, store.NopKV{}, notify.Nop{}, logger, nil)
	update := service.NewUpdateService(repo, logger)
	export := service.NewExportService(repo, logger)

	router := NewRouter(logger)
	router.RegisterUploadRoutes(NewUploadHandler(ingest, update, export, logger))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, repo
}

func uploadCSV(t *testing.T, url, csv string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "records.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

const uploadHeader = "CIS,BarCode,RecordType,BoxNumber,Location,Digitized,ClosingDate,DestroyDate\n"

func TestUploadAPI_IngestSuccess(t *testing.T) {
	srv, repo := newUploadServer(t)

	csv := uploadHeader +
		"1001,,PS,1,Shelf A,YES,2020-01-31,\n" +
		"1002,,FC,,,,,\n"

	resp := uploadCSV(t, srv.URL+"/api/v1/records/upload", csv)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeResult(t, resp)
	assert.Equal(t, ResultSuccess, result.Code)

	var payload struct {
		Count        int    `json:"count"`
		FirstBarcode string `json:"first_barcode"`
		LastBarcode  string `json:"last_barcode"`
	}
	require.NoError(t, json.Unmarshal(result.Result, &payload))
	assert.Equal(t, 2, payload.Count)
	assert.NotEmpty(t, payload.FirstBarcode)

	_, total, err := repo.ListRecords(context.Background(), repository.RecordFilters{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestUploadAPI_IngestValidationErrors(t *testing.T) {
	srv, repo := newUploadServer(t)

	csv := uploadHeader + "notanumber,,ZZ,,,,,\n"

	resp := uploadCSV(t, srv.URL+"/api/v1/records/upload", csv)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	result := decodeResult(t, resp)

	var rowErrs []struct {
		Row     int    `json:"row"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(result.Result, &rowErrs))
	require.NotEmpty(t, rowErrs)
	assert.Equal(t, 2, rowErrs[0].Row)

	_, total, err := repo.ListRecords(context.Background(), repository.RecordFilters{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestUploadAPI_MissingFileField(t *testing.T) {
	srv, _ := newUploadServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/v1/records/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadAPI_UpdateFlow(t *testing.T) {
	srv, repo := newUploadServer(t)
	require.NoError(t, repo.SaveBatch(context.Background(), []*domain.RecordItem{{
		ID: "rec-1", CIS: 1001, Barcode: "25-00001", RecordType: "PS", CreatedOn: time.Now().UTC(),
	}}))

	csv := uploadHeader + "1001,25-00001,FC,3,Vault,YES,,\n"

	resp := uploadCSV(t, srv.URL+"/api/v1/records/upload-update", csv)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	r, err := repo.GetRecord(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "FC", r.RecordType)
	assert.Equal(t, "Vault", r.Location.String)
}

func TestUploadAPI_ExportCSV(t *testing.T) {
	srv, repo := newUploadServer(t)
	require.NoError(t, repo.SaveBatch(context.Background(), []*domain.RecordItem{{
		ID: "rec-1", CIS: 1001, Barcode: "25-00001", RecordType: "PS", CreatedOn: time.Now().UTC(),
	}}))

	resp, err := http.Get(srv.URL + "/api/v1/records/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "records.csv")

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "25-00001")
}

func TestUploadAPI_ExportExcel(t *testing.T) {
	srv, repo := newUploadServer(t)
	require.NoError(t, repo.SaveBatch(context.Background(), []*domain.RecordItem{{
		ID: "rec-1", CIS: 1001, Barcode: "25-00001", RecordType: "PS", CreatedOn: time.Now().UTC(),
	}}))

	resp, err := http.Get(srv.URL + "/api/v1/records/export-excel")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "records.xlsx")
}
