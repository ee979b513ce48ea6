package handler

import (
	"log/slog"
	"net/http"

	"github.com/reyschwartz19/OpTracker/internal/ctxkeys"
	"github.com/reyschwartz19/OpTracker/internal/service"
	"github.com/reyschwartz19/OpTracker/internal/validation"
)

// multipart overhead on top of the file itself
const uploadSlack = 1 << 20

type DocumentHandler struct {
	documentService *service.DocumentService
}

func NewDocumentHandler(documentService *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
	}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	docs, err := h.documentService.Documents(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	maxSize := validation.DocumentConstraints.MaxSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+uploadSlack)

	err := r.ParseMultipartForm(maxSize)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "File too large or malformed upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer func() {
		closeErr := file.Close()
		if closeErr != nil {
			slog.Error("failed to close file", "error", closeErr)
		}
	}()

	doc, err := h.documentService.Upload(r.Context(), user.ID, file, header, service.UploadDocumentInput{
		Category:      r.FormValue("category"),
		OpportunityID: r.FormValue("opportunityId"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.documentService.Delete(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
