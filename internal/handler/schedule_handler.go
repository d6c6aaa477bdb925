package handler

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"assistente-api/internal/models"
	"assistente-api/internal/schedule"
	"assistente-api/internal/token"
	"assistente-api/internal/util"
)

const maxPDFSize = 10 << 20 // 10 MiB

// IdentityReader resolves the authenticated identity for paid-tier checks.
type IdentityReader interface {
	GetUser(ctx context.Context, phone string) (*models.User, error)
}

// ScheduleHandler extracts study schedules from uploaded PDFs. It sits
// behind the session guard and is restricted to paying users.
type ScheduleHandler struct {
	extractor schedule.Extractor
	users     IdentityReader
}

func NewScheduleHandler(extractor schedule.Extractor, users IdentityReader) *ScheduleHandler {
	return &ScheduleHandler{extractor: extractor, users: users}
}

// Extract reads the uploaded PDF and returns the extracted schedule entries.
func (h *ScheduleHandler) Extract(w http.ResponseWriter, r *http.Request) {
	claims := token.GetAuth(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "missing session"})
		return
	}

	user, err := h.users.GetUser(r.Context(), claims.Phone)
	if err != nil {
		writeError(w, err)
		return
	}
	if !user.IsPaid {
		writeJSON(w, http.StatusForbidden, Response{Success: false, Error: "subscription required"})
		return
	}

	if err := r.ParseMultipartForm(maxPDFSize); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "invalid upload"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "file is required"})
		return
	}
	defer file.Close()

	pdf, err := io.ReadAll(io.LimitReader(file, maxPDFSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: "failed to read upload"})
		return
	}

	entries, err := h.extractor.Extract(r.Context(), pdf)
	if err != nil {
		util.Error("Schedule extraction failed",
			zap.String("filename", header.Filename),
			zap.Error(err))
		writeJSON(w, http.StatusBadGateway, Response{Success: false, Error: "failed to extract schedule"})
		return
	}

	writeSuccess(w, http.StatusOK, entries, "")
}
