package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/nhle/fms-tracker/internal/model"
	"github.com/nhle/fms-tracker/internal/report"
	"github.com/nhle/fms-tracker/internal/store"
	"github.com/nhle/fms-tracker/internal/tracker"
)

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.ResetAll(r.Context()); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"message": "FMS Initialized Successfully"})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req model.NewTask
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: decoding request body: %v", tracker.ErrInvalid, err))
		return
	}

	id, err := s.tracker.CreateTask(r.Context(), req)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]int64{"id": id})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tracker.ListTasks(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, tasks)
}

func (s *Server) handleCompleteStep(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskId")
	if err != nil {
		s.respondError(w, err)
		return
	}
	stepName := r.PathValue("stepName")

	res, err := s.tracker.CompleteStep(r.Context(), taskID, stepName)
	if err != nil {
		s.respondError(w, err)
		return
	}

	msg := fmt.Sprintf("Step %s marked as Done", stepName)
	if res.AlreadyDone {
		msg = fmt.Sprintf("Step %s was already Done", stepName)
	}
	s.respond(w, http.StatusOK, map[string]any{
		"message":     msg,
		"step":        res.Step,
		"alreadyDone": res.AlreadyDone,
	})
}

func (s *Server) handleCheckDelays(w http.ResponseWriter, r *http.Request) {
	sent, err := s.scanner.Scan(r.Context())
	if err != nil {
		s.logger.Error("delay check failed", zap.Int("alerts_sent", sent), zap.Error(err))
		s.respond(w, http.StatusInternalServerError, map[string]any{
			"error":      err.Error(),
			"alertsSent": sent,
		})
		return
	}
	s.respond(w, http.StatusOK, map[string]int{"alertsSent": sent})
}

func (s *Server) handleEmailLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.tracker.EmailLog(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, entries)
}

func (s *Server) handleDatabase(w http.ResponseWriter, r *http.Request) {
	dump, err := s.tracker.Dump(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, dump)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskId")
	if err != nil {
		s.respondError(w, err)
		return
	}
	stepName := r.PathValue("stepName")

	if r.ContentLength > s.maxUploadBytes {
		s.respondError(w, &http.MaxBytesError{Limit: s.maxUploadBytes})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.respondError(w, uploadError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, fmt.Errorf("%w: reading form field \"file\": %v", tracker.ErrInvalid, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, fmt.Errorf("reading upload: %w", err))
		return
	}

	if _, err := s.tracker.UploadFile(r.Context(), taskID, stepName, header.Filename, data); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("File %s uploaded for %s", header.Filename, stepName),
	})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := pathID(r, "fileId")
	if err != nil {
		s.respondError(w, err)
		return
	}

	f, err := s.tracker.GetFile(r.Context(), fileID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", attachment(f.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := report.Export(r.Context(), s.tracker, &buf); err != nil {
		s.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(report.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleSteps(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, model.StepNames)
}

// pathID parses a positive integer path wildcard. A malformed id cannot name
// an existing row, so it is reported as not found.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s %q: %w", name, raw, store.ErrNotFound)
	}
	return id, nil
}

// attachment builds a Content-Disposition value. Plain ASCII names are
// always quoted; anything else falls back to RFC 2231 encoding.
func attachment(name string) string {
	if quotable(name) {
		return `attachment; filename="` + name + `"`
	}
	v := mime.FormatMediaType("attachment", map[string]string{"filename": name})
	if v == "" {
		return `attachment; filename="download"`
	}
	return v
}

func quotable(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x20 || c > 0x7e || c == '"' || c == '\\' {
			return false
		}
	}
	return true
}

func uploadError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return fmt.Errorf("%w: parsing multipart form: %v", tracker.ErrInvalid, err)
}
