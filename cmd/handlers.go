package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jsphweid/chordscribe/analysis"
	"github.com/jsphweid/chordscribe/chord"
	"github.com/jsphweid/chordscribe/constants"
	"github.com/jsphweid/chordscribe/file"
	"github.com/jsphweid/chordscribe/midi"
	"github.com/jsphweid/chordscribe/model"
	"github.com/jsphweid/chordscribe/observe"
	"github.com/mdobak/go-xerrors"
	"github.com/rs/cors"
)

// multipart parts beyond this are spooled to disk by net/http
const maxMemory = 8 << 20

// Server holds the HTTP handlers. Construct it with NewServer.
type Server struct {
	analyzer       *analysis.Analyzer
	uploadDir      string
	maxUploadBytes int64
}

func NewServer(analyzer *analysis.Analyzer, uploadDir string, maxUploadBytes int64) *Server {
	return &Server{analyzer: analyzer, uploadDir: uploadDir, maxUploadBytes: maxUploadBytes}
}

// Router mounts the API. metricsHandler may be nil.
func (s *Server) Router(metrics *observe.Metrics, metricsHandler http.Handler, allowedOrigins []string) http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	api := router.PathPrefix("/api").Subrouter()
	api.Use(observe.Middleware(metrics))
	api.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)
	api.HandleFunc("/detect-chords", s.HandleDetectChords).Methods(http.MethodPost)
	api.HandleFunc("/classify", s.HandleClassify).Methods(http.MethodPost)
	api.HandleFunc("/templates", s.HandleTemplates).Methods(http.MethodGet)
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(router)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorResponse{Error: message})
}

func writeAnalysisError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if analysis.KindOf(err) == analysis.KindInvalidArgument {
		status = http.StatusUnprocessableEntity
	}
	writeJSONError(w, status, err.Error())
}

// isTooLarge reports whether err came from the MaxBytesReader. Some
// multipart paths flatten the error to text.
func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{Status: "ok"})
}

func (s *Server) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, templateResults(s.analyzer.Bank()))
}

// saveUpload copies src to a fresh uuid-named file in the upload dir. Only
// the extension of the client's filename is kept.
func (s *Server) saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.uploadDir, uuid.NewString()+file.SafeExtension(filename, constants.AudioExtensions))
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func (s *Server) HandleDetectChords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observe.Logger(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		if isTooLarge(err) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		logger.WarnContext(ctx, "failed to parse multipart form", slog.Any("error", err))
		writeJSONError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	src, header, err := r.FormFile(constants.AudioFormField)
	if err != nil {
		// a part with an empty filename is parsed as a plain value
		if _, ok := r.MultipartForm.Value[constants.AudioFormField]; ok {
			writeJSONError(w, http.StatusBadRequest, "No file selected")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer src.Close()

	path, err := s.saveUpload(src, header.Filename)
	if err != nil {
		logger.ErrorContext(ctx, "failed to persist upload", slog.Any("error", xerrors.New(err)))
		writeJSONError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.ErrorContext(ctx, "failed to remove upload", slog.String("path", path), slog.Any("error", err))
		}
	}()

	// one bank for both the labels and the MIDI notes, even across a reload
	bank := s.analyzer.Bank()
	res, err := s.analyzer.AnalyzeFileWithBank(ctx, bank, path)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	logger.InfoContext(ctx, "detected chords",
		slog.String("filename", header.Filename),
		slog.Int("segments", len(res.Timeline)),
		slog.Float64("duration", res.Duration),
	)

	if r.URL.Query().Get("format") == "midi" {
		w.Header().Set("Content-Type", "audio/midi")
		w.Header().Set("Content-Disposition", `attachment; filename="chords.mid"`)
		if err := midi.Write(w, res.Timeline, res.Duration, bank); err != nil {
			logger.ErrorContext(ctx, "failed to write midi", slog.Any("error", err))
		}
		return
	}
	writeJSON(w, http.StatusOK, model.NewDetectResponse(res))
}

// checkChromaValues rejects negative magnitudes. A client matrix can sum a
// frame to zero with them, which the classifier would score far above 1.
func checkChromaValues(m [][]float64) error {
	for pc, row := range m {
		for i, x := range row {
			if x < 0 {
				return fmt.Errorf("%w: chroma[%d][%d] is negative (%v)", chord.ErrInvalidArgument, pc, i, x)
			}
		}
	}
	return nil
}

func (s *Server) HandleClassify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	var body model.ClassifyRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if isTooLarge(err) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "Request too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	if err := checkChromaValues(body.Chroma); err != nil {
		writeAnalysisError(w, err)
		return
	}

	gram := model.Chromagram{Matrix: body.Chroma, Times: body.Times}
	res, err := s.analyzer.AnalyzeChroma(r.Context(), gram, body.Duration)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewDetectResponse(res))
}
