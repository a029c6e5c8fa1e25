package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"pyinsight/internal/core/errors"
	"pyinsight/internal/core/ports"
	"pyinsight/internal/ui/report"
)

const statusMessage = "Code Insight API is running 🚀"

type analyzeFileRequest struct {
	FilePath string `json:"file_path"`
}

type analyzeDirectoryRequest struct {
	DirectoryPath string `json:"directory_path"`
}

type requestOptions struct {
	opts     ports.AnalyzeOptions
	markdown bool
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": statusMessage})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "up"})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.doc)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	ro, ok := s.parseQuery(w, r)
	if !ok {
		return
	}
	var req analyzeFileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.FilePath) == "" {
		writeDetail(w, http.StatusBadRequest, "file_path is required")
		return
	}

	result, err := s.service.AnalyzeFile(r.Context(), req.FilePath, ro.opts)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeResult(w, result, ro, filepath.Base(req.FilePath))
}

func (s *Server) handleDirectory(w http.ResponseWriter, r *http.Request) {
	ro, ok := s.parseQuery(w, r)
	if !ok {
		return
	}
	var req analyzeDirectoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.DirectoryPath) == "" {
		writeDetail(w, http.StatusBadRequest, "directory_path is required")
		return
	}

	result, err := s.service.AnalyzeDirectory(r.Context(), req.DirectoryPath, ro.opts)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeResult(w, result, ro, req.DirectoryPath)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ro, ok := s.parseQuery(w, r)
	if !ok {
		return
	}

	// Multipart framing needs headroom above the file limit.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+maxJSONBodyBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
			return
		}
		writeDetail(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	if header.Size > s.maxUploadBytes {
		writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	result, err := s.service.AnalyzeUpload(r.Context(), header.Filename, content, ro.opts)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeResult(w, result, ro, filepath.Base(header.Filename))
}

func (s *Server) parseQuery(w http.ResponseWriter, r *http.Request) (requestOptions, bool) {
	ro := requestOptions{opts: ports.AnalyzeOptions{TopN: s.defaultTopN}}
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("top_n")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeDetail(w, http.StatusBadRequest, "top_n must be a non-negative integer")
			return ro, false
		}
		ro.opts.TopN = n
	}
	switch strings.ToLower(strings.TrimSpace(q.Get("format"))) {
	case "", "json":
	case "markdown":
		ro.markdown = true
	default:
		writeDetail(w, http.StatusBadRequest, "format must be json or markdown")
		return ro, false
	}
	return ro, true
}

func (s *Server) writeResult(w http.ResponseWriter, result ports.AnalysisResult, ro requestOptions, title string) {
	status := http.StatusOK
	if result.Status == ports.StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	if !ro.markdown {
		writeJSON(w, status, result)
		return
	}

	body, err := report.Render(result, report.FormatDocs, report.Options{Target: title})
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps domain error codes onto HTTP statuses.
func statusFor(err error) int {
	switch errors.CodeOf(err) {
	case errors.CodeNotFound, errors.CodeEmptyInput:
		return http.StatusNotFound
	case errors.CodeNotSupported, errors.CodeValidationError:
		return http.StatusBadRequest
	case errors.CodeParseError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// detailFor renders the client facing message: the domain message and the
// offending path, without internal wrapping.
func detailFor(err error) string {
	var de *errors.DomainError
	if !stderrors.As(err, &de) {
		return err.Error()
	}
	msg := de.Message
	if path, ok := de.Context[errors.CtxPath]; ok {
		msg = fmt.Sprintf("%s: %v", msg, path)
	}
	return msg
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("analysis request failed", "error", err)
	}
	writeDetail(w, status, detailFor(err))
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "error", err)
	}
}
