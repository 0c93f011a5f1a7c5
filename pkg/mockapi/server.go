// Package mockapi is an in-memory implementation of the flashcard battle
// REST backend. It backs the mock-server command and the end-to-end tests.
package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/logging"
)

// maxUpload limits bulk import documents
const maxUpload = 8 << 20

// fault is a one-shot failure injected into the next matching request
type fault struct {
	method string
	suffix string
	status int
	detail string
}

// Server serves the REST contract on top of a Store
type Server struct {
	store *Store
	log   *zap.Logger

	mu            sync.Mutex
	faults        []fault
	latency       time.Duration
	legacyResults bool
}

// Option customizes a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = logging.OrNop(l).Named("mockapi") }
}

// WithStore serves an existing store
func WithStore(st *Store) Option {
	return func(s *Server) { s.store = st }
}

// WithLegacyResults makes the results endpoint return a bare rankings list,
// the shape older backends produce
func WithLegacyResults() Option {
	return func(s *Server) { s.legacyResults = true }
}

// NewServer creates a server with an empty store unless WithStore is given
func NewServer(opts ...Option) *Server {
	s := &Server{store: NewStore(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the backing store
func (s *Server) Store() *Store {
	return s.store
}

// FailNext makes the next request whose method matches and whose path ends
// with suffix fail with the given status and detail
func (s *Server) FailNext(method, suffix string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, fault{method: method, suffix: suffix, status: status, detail: detail})
}

// SetLatency delays every response, honouring request cancellation
func (s *Server) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Handler builds the router. All routes live under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.chaos)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/api", func(r chi.Router) {
		r.Route("/students", func(r chi.Router) {
			r.Get("/", s.listStudents)
			r.Post("/", s.createStudent)
			r.Route("/{studentID}", func(r chi.Router) {
				r.Get("/", s.getStudent)
				r.Put("/", s.updateStudent)
				r.Delete("/", s.deleteStudent)
				r.Get("/history", s.studentHistory)
				r.Post("/reset", s.resetStudent)
				r.Get("/achievements", s.studentAchievements)
			})
		})

		r.Route("/flashcards", func(r chi.Router) {
			r.Get("/packs", s.listPacks)
			r.Post("/packs", s.createPack)
			r.Get("/packs/{packID}", s.getPack)
			r.Put("/packs/{packID}", s.updatePack)
			r.Delete("/packs/{packID}", s.deletePack)

			r.Get("/all", s.listFlashcards)
			r.Get("/pack/{packID}", s.packFlashcards)
			r.Post("/", s.createFlashcard)
			r.Post("/bulk-import", s.bulkImport)
			r.Post("/template", s.template)
			r.Get("/export/{packID}", s.exportPack)
			r.Get("/{cardID}", s.getFlashcard)
			r.Put("/{cardID}", s.updateFlashcard)
			r.Delete("/{cardID}", s.deleteFlashcard)
		})

		r.Route("/arena", func(r chi.Router) {
			r.Post("/", s.createArena)
			r.Get("/{arenaID}/next-match", s.nextMatch)
			r.Patch("/matches/{matchID}/winner", s.setWinner)
			r.Get("/{arenaID}/results", s.results)
		})
	})
	return r
}

// requestLogger logs every request with its correlation id
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", r.Header.Get("X-Request-ID")))
	})
}

// chaos applies configured latency and injected faults
func (s *Server) chaos(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		latency := s.latency
		var hit *fault
		for i, f := range s.faults {
			if f.method == r.Method && strings.HasSuffix(strings.TrimRight(r.URL.Path, "/"), f.suffix) {
				hit = &f
				s.faults = append(s.faults[:i], s.faults[i+1:]...)
				break
			}
		}
		s.mu.Unlock()

		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
		}
		if hit != nil {
			writeDetail(w, hit.status, hit.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeData wraps v in the standard {data: ...} envelope
func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, map[string]any{"data": v})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeErr(w http.ResponseWriter, err error) {
	writeDetail(w, statusOf(err), err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// respond writes v as data or the error as detail
func respond(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, status, v)
}

func (s *Server) listStudents(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, s.store.ListStudents())
}

func (s *Server) getStudent(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetStudent(chi.URLParam(r, "studentID"))
	respond(w, http.StatusOK, st, err)
}

func (s *Server) createStudent(w http.ResponseWriter, r *http.Request) {
	var in data.StudentInput
	if !decode(w, r, &in) {
		return
	}
	st, err := s.store.CreateStudent(in)
	respond(w, http.StatusCreated, st, err)
}

func (s *Server) updateStudent(w http.ResponseWriter, r *http.Request) {
	var in data.StudentInput
	if !decode(w, r, &in) {
		return
	}
	st, err := s.store.UpdateStudent(chi.URLParam(r, "studentID"), in)
	respond(w, http.StatusOK, st, err)
}

func (s *Server) deleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteStudent(chi.URLParam(r, "studentID")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) studentHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.store.History(chi.URLParam(r, "studentID"))
	respond(w, http.StatusOK, h, err)
}

func (s *Server) resetStudent(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.ResetStudent(chi.URLParam(r, "studentID"))
	respond(w, http.StatusOK, st, err)
}

// studentAchievements is served without the data envelope
func (s *Server) studentAchievements(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.Achievements(chi.URLParam(r, "studentID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) listPacks(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, s.store.ListPacks())
}

func (s *Server) getPack(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPack(chi.URLParam(r, "packID"))
	respond(w, http.StatusOK, p, err)
}

func (s *Server) createPack(w http.ResponseWriter, r *http.Request) {
	var in data.PackInput
	if !decode(w, r, &in) {
		return
	}
	p, err := s.store.CreatePack(in)
	respond(w, http.StatusCreated, p, err)
}

func (s *Server) updatePack(w http.ResponseWriter, r *http.Request) {
	var in data.PackInput
	if !decode(w, r, &in) {
		return
	}
	p, err := s.store.UpdatePack(chi.URLParam(r, "packID"), in)
	respond(w, http.StatusOK, p, err)
}

func (s *Server) deletePack(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePack(chi.URLParam(r, "packID")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listFlashcards(w http.ResponseWriter, _ *http.Request) {
	cards, err := s.store.ListFlashcards("")
	respond(w, http.StatusOK, cards, err)
}

func (s *Server) packFlashcards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.store.ListFlashcards(chi.URLParam(r, "packID"))
	respond(w, http.StatusOK, cards, err)
}

func (s *Server) getFlashcard(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetFlashcard(chi.URLParam(r, "cardID"))
	respond(w, http.StatusOK, c, err)
}

func (s *Server) createFlashcard(w http.ResponseWriter, r *http.Request) {
	var in data.FlashcardInput
	if !decode(w, r, &in) {
		return
	}
	c, err := s.store.CreateFlashcard(in)
	respond(w, http.StatusCreated, c, err)
}

func (s *Server) updateFlashcard(w http.ResponseWriter, r *http.Request) {
	var in data.FlashcardInput
	if !decode(w, r, &in) {
		return
	}
	c, err := s.store.UpdateFlashcard(chi.URLParam(r, "cardID"), in)
	respond(w, http.StatusOK, c, err)
}

func (s *Server) deleteFlashcard(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteFlashcard(chi.URLParam(r, "cardID")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bulkImport answers with a bare BulkImportResult, not wrapped in data
func (s *Server) bulkImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		writeDetail(w, http.StatusBadRequest, "File must be a CSV")
		return
	}

	parsed, err := data.ParseFlashcardCSV(file, "")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.store.ImportFlashcards(parsed))
}

func (s *Server) template(w http.ResponseWriter, _ *http.Request) {
	var sb strings.Builder
	if err := data.WriteTemplateCSV(&sb, ""); err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, data.FileContent{Content: sb.String(), Filename: data.TemplateFilename, MediaType: "text/csv"})
}

func (s *Server) exportPack(w http.ResponseWriter, r *http.Request) {
	packID := chi.URLParam(r, "packID")
	cards, err := s.store.ListFlashcards(packID)
	if err != nil {
		writeErr(w, err)
		return
	}
	var sb strings.Builder
	if err := data.WriteFlashcardCSV(&sb, cards); err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, data.FileContent{
		Content:   sb.String(),
		Filename:  fmt.Sprintf("flashcards_pack_%s.csv", packID),
		MediaType: "text/csv",
	})
}

func (s *Server) createArena(w http.ResponseWriter, r *http.Request) {
	var req data.CreateArenaRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := s.store.CreateArena(req)
	respond(w, http.StatusOK, session, err)
}

func (s *Server) nextMatch(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.NextMatch(chi.URLParam(r, "arenaID"))
	respond(w, http.StatusOK, m, err)
}

func (s *Server) setWinner(w http.ResponseWriter, r *http.Request) {
	var req data.SetWinnerRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.store.SetMatchWinner(chi.URLParam(r, "matchID"), req.WinnerIDs)
	respond(w, http.StatusOK, res, err)
}

func (s *Server) results(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.Results(chi.URLParam(r, "arenaID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if s.legacyResults {
		writeData(w, http.StatusOK, res.Rankings)
		return
	}
	writeData(w, http.StatusOK, res)
}
