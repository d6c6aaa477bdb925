package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistente-api/internal/models"
	"assistente-api/internal/schedule"
	"assistente-api/internal/service"
	"assistente-api/internal/token"
)

type fakeExtractor struct {
	entries []schedule.Entry
	err     error
	gotPDF  []byte
}

func (f *fakeExtractor) Extract(_ context.Context, pdf []byte) ([]schedule.Entry, error) {
	f.gotPDF = pdf
	return f.entries, f.err
}

type fakeIdentityReader struct {
	user *models.User
}

func (f *fakeIdentityReader) GetUser(_ context.Context, phone string) (*models.User, error) {
	if f.user == nil {
		return nil, service.ErrUserNotFound
	}
	return f.user, nil
}

func pdfUpload(t *testing.T, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cronograma.pdf")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func scheduleRequest(t *testing.T, withClaims bool, body *bytes.Buffer, contentType string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/schedule", body)
	req.Header.Set("Content-Type", contentType)
	if withClaims {
		req = req.WithContext(token.SetAuth(req.Context(), token.Claims{Phone: "11999990000"}))
	}
	return req
}

func TestScheduleExtract(t *testing.T) {
	extractor := &fakeExtractor{entries: []schedule.Entry{
		{Day: "Segunda", Subject: "Matemática", Description: "Frações", Skills: []string{"EF06MA01"}},
	}}
	h := NewScheduleHandler(extractor, &fakeIdentityReader{
		user: &models.User{Phone: "11999990000", IsPaid: true},
	})

	body, contentType := pdfUpload(t, []byte("%PDF-1.4 fake"))
	rec := httptest.NewRecorder()
	h.Extract(rec, scheduleRequest(t, true, body, contentType))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte("%PDF-1.4 fake"), extractor.gotPDF)
	assert.Contains(t, rec.Body.String(), "Matemática")
}

func TestScheduleExtractRequiresSession(t *testing.T) {
	h := NewScheduleHandler(&fakeExtractor{}, &fakeIdentityReader{})

	body, contentType := pdfUpload(t, []byte("pdf"))
	rec := httptest.NewRecorder()
	h.Extract(rec, scheduleRequest(t, false, body, contentType))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScheduleExtractRequiresPaidTier(t *testing.T) {
	h := NewScheduleHandler(&fakeExtractor{}, &fakeIdentityReader{
		user: &models.User{Phone: "11999990000", IsPaid: false},
	})

	body, contentType := pdfUpload(t, []byte("pdf"))
	rec := httptest.NewRecorder()
	h.Extract(rec, scheduleRequest(t, true, body, contentType))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestScheduleExtractMissingFile(t *testing.T) {
	h := NewScheduleHandler(&fakeExtractor{}, &fakeIdentityReader{
		user: &models.User{Phone: "11999990000", IsPaid: true},
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	rec := httptest.NewRecorder()
	h.Extract(rec, scheduleRequest(t, true, &buf, mw.FormDataContentType()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleExtractProviderFailure(t *testing.T) {
	h := NewScheduleHandler(&fakeExtractor{err: assert.AnError}, &fakeIdentityReader{
		user: &models.User{Phone: "11999990000", IsPaid: true},
	})

	body, contentType := pdfUpload(t, []byte("pdf"))
	rec := httptest.NewRecorder()
	h.Extract(rec, scheduleRequest(t, true, body, contentType))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
