package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/docledger/docledger-go/internal/domain"
	"github.com/docledger/docledger-go/internal/service"
)

// maxUploadBytes caps a single document upload. Statements from some
// banks run to a few MB of scanned pages; 32MB leaves ample headroom.
const maxUploadBytes = 32 << 20

// ============================================================
// POST /v1/documents — multipart upload
// ============================================================

func uploadDocumentHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/documents")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "expected multipart form with a 'file' field")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing 'file' field")
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		if len(content) == 0 {
			writeError(w, http.StatusBadRequest, "uploaded file is empty")
			return
		}
		span.SetAttributes(
			attribute.String("document.filename", header.Filename),
			attribute.Int("document.size_bytes", len(content)),
		)

		result, err := svc.ProcessDocument(ctx, header.Filename, content)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// ============================================================
// POST /v1/documents/reconcile — pre-extracted metadata
// ============================================================

func reconcileExtractionHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/documents/reconcile")
		defer span.End()

		var meta domain.DocumentMetadata
		if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.String("document.id", meta.ID))

		result, err := svc.ProcessExtraction(ctx, &meta)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// ============================================================
// DELETE /v1/documents/{documentId}
// ============================================================

func deleteDocumentHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/documents/{documentId}")
		defer span.End()

		documentID := chi.URLParam(r, "documentId")
		if documentID == "" {
			writeError(w, http.StatusBadRequest, "document_id is required")
			return
		}
		span.SetAttributes(attribute.String("document.id", documentID))

		if err := svc.DeleteDocument(ctx, documentID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "document_id": documentID})
	}
}
