package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/receiptvault/internal/common"
	"github.com/dmitrijs2005/receiptvault/internal/server/services"
	"github.com/dmitrijs2005/receiptvault/internal/wire"
	"github.com/gorilla/mux"
)

const (
	pdfContentType  = "application/pdf"
	multipartMemory = 8 << 20
	// room for the text fields and multipart framing around the file
	multipartSlack = 1 << 20
)

// optionalFields are the known metadata fields a form may leave blank. Any
// other field is stored exactly as sent.
var optionalFields = map[string]bool{
	common.MetaPaymentID:     true,
	common.MetaBankName:      true,
	common.MetaAccountNumber: true,
}

func (s *HTTPServer) uploadReceipt(w http.ResponseWriter, r *http.Request) {
	maxSize := s.opts.MaxUploadSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartSlack)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondTooLarge(w, maxSize)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: expected a multipart/form-data body", common.ErrorValidation))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(wire.FieldReceipt)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %q file is required", common.ErrorValidation, wire.FieldReceipt))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: reading upload: %v", common.ErrorValidation, err))
		return
	}
	if int64(len(content)) > maxSize {
		s.respondTooLarge(w, maxSize)
		return
	}
	if len(content) > 0 && http.DetectContentType(content) != pdfContentType {
		s.respondError(w, r, fmt.Errorf("%w: receipt must be a PDF document", common.ErrorValidation))
		return
	}

	meta := make(map[string]string, len(r.MultipartForm.Value))
	for k, vs := range r.MultipartForm.Value {
		if len(vs) == 0 {
			continue
		}
		if optionalFields[k] && strings.TrimSpace(vs[0]) == "" {
			continue
		}
		meta[k] = vs[0]
	}

	id, err := s.receipts.Put(r.Context(), services.PutRequest{
		Content:     content,
		Filename:    filepath.Base(header.Filename),
		ContentType: pdfContentType,
		Metadata:    meta,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, wire.UploadResponse{ReceiptID: id})
}

func (s *HTTPServer) respondTooLarge(w http.ResponseWriter, maxSize int64) {
	respondJSON(w, http.StatusRequestEntityTooLarge, wire.ErrorResponse{
		Message: fmt.Sprintf("receipt exceeds the %d byte limit", maxSize),
		Code:    wire.CodeValidation,
	})
}

func (s *HTTPServer) getReceipt(w http.ResponseWriter, r *http.Request) {
	info, err := s.receipts.GetMetadata(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toWire(info))
}

func (s *HTTPServer) downloadReceipt(w http.ResponseWriter, r *http.Request) {
	rc, info, err := s.receipts.GetBinary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer rc.Close()

	// The reader checks size and digest only at EOF, so the whole receipt is
	// read before the status line goes out. Receipts are bounded by
	// MaxUploadSize.
	body, err := io.ReadAll(rc)
	if err == nil && int64(len(body)) != info.Length {
		err = fmt.Errorf("got %d bytes, want %d", len(body), info.Length)
	}
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: read blob %s: %w", common.ErrorStorage, info.ID, err))
		return
	}

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Length, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Filename}))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(body); err != nil {
		s.logger.Warn(r.Context(), "receipt download interrupted", "id", info.ID, "error", err)
	}
}

func (s *HTTPServer) receiptLink(w http.ResponseWriter, r *http.Request) {
	link, err := s.receipts.GetDownloadURL(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wire.DownloadLink{URL: link.URL, ExpiresAt: link.ExpiresAt})
}

func toWire(info *services.ReceiptInfo) wire.ReceiptMetadata {
	return wire.ReceiptMetadata{
		ID:          info.ID,
		Filename:    info.Filename,
		ContentType: info.ContentType,
		UploadDate:  info.UploadDate.UTC(),
		Length:      info.Length,
		Metadata:    info.Metadata,
	}
}
