// Package server handles the HTTP front end: static files for GET and form
// relay for POST.
package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/ASHISH26940/formrelay/internal/config"
	"github.com/ASHISH26940/formrelay/internal/metrics"
	"github.com/ASHISH26940/formrelay/internal/relay"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// maxRelayPayload is the largest body that fits in one UDP datagram.
const maxRelayPayload = 65507

// Server is the HTTP front end. GET requests never touch the relay.
type Server struct {
	docRoot       string
	indexDocument string
	errorDocument string
	confirmPath   string

	sender  relay.Sender
	metrics *metrics.Recorder
	logger  hclog.Logger
}

// New creates a new Server instance.
func New(cfg *config.Config, sender relay.Sender, rec *metrics.Recorder, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Server{
		docRoot:       cfg.DocRoot,
		indexDocument: cfg.IndexDocument,
		errorDocument: cfg.ErrorDocument,
		confirmPath:   cfg.ConfirmPath,
		sender:        sender,
		metrics:       rec,
		logger:        logger,
	}
}

// ServeHTTP makes our Server a standard http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleGet(sw, r)
	case http.MethodPost:
		s.handlePost(sw, r)
	default:
		http.Error(sw, "Unsupported method", http.StatusNotImplemented)
	}

	s.metrics.HTTPRequest(r.Method, sw.code)
	s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", sw.code, "remote", r.RemoteAddr)
}

// handleGet serves a file from the document root, or the error document
// with 404 when there is no such file.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	code := http.StatusOK
	f, name, err := s.open(s.resolve(r.URL.Path))
	if err != nil {
		code = http.StatusNotFound
		f, name, err = s.open(s.errorDocument)
		if err != nil {
			s.logger.Warn("error document unavailable", "path", s.errorDocument, "error", err)
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType(name))
	w.WriteHeader(code)
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Debug("client went away", "path", r.URL.Path, "error", err)
	}
}

// resolve maps a URL path to a slash-separated path below the document
// root. "/" maps to the index document. Dot segments cannot climb above
// the root.
func (s *Server) resolve(urlPath string) string {
	if urlPath == "/" || urlPath == "" {
		return s.indexDocument
	}
	return path.Clean("/" + urlPath)[1:]
}

// open opens a regular file below the document root.
func (s *Server) open(rel string) (*os.File, string, error) {
	name := filepath.Join(s.docRoot, filepath.FromSlash(rel))
	f, err := os.Open(name)
	if err != nil {
		return nil, "", err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, "", err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, "", errors.New("not a regular file")
	}
	return f, name, nil
}

// contentType guesses the media type from the file extension.
func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "text/plain"
}

// handlePost relays the raw body to the listener and redirects to the
// confirmation page. Relay failures never reach the browser.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	logger := s.logger.With("request_id", reqID)

	switch size := r.ContentLength; {
	case size <= 0:
		logger.Debug("no body to relay", "content_length", size)
	case size > maxRelayPayload:
		logger.Warn("body too large to relay", "content_length", size)
	default:
		body := make([]byte, size)
		if _, err := io.ReadFull(r.Body, body); err != nil {
			logger.Warn("failed to read body", "error", err)
			break
		}
		err := s.sender.Send(r.Context(), body)
		s.metrics.RelaySend(err)
		if err != nil {
			logger.Warn("relay send failed", "error", err)
			break
		}
		logger.Info("relayed submission", "bytes", size)
	}

	w.Header().Set("Location", s.confirmPath)
	w.WriteHeader(http.StatusFound)
}

// statusWriter remembers the status code written to the client.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
