package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pashagolub/flasharena/pkg/data"
	"github.com/pashagolub/flasharena/pkg/elo"
	"github.com/pashagolub/flasharena/pkg/standings"
)

// defaultEngine scores every match with K=32, two decimal places
var defaultEngine = func() *elo.Engine {
	e, err := elo.NewEngine(elo.DefaultConfig())
	if err != nil {
		panic(err)
	}
	return e
}()

// apiError carries an HTTP status and the detail message returned to clients
type apiError struct {
	status int
	detail string
}

func (e *apiError) Error() string {
	return e.detail
}

func notFound(what string) error {
	return &apiError{status: http.StatusNotFound, detail: what + " not found"}
}

func badRequest(format string, args ...any) error {
	return &apiError{status: http.StatusBadRequest, detail: fmt.Sprintf(format, args...)}
}

// statusOf maps store errors to HTTP status codes
func statusOf(err error) int {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.status
	}
	return http.StatusBadRequest
}

type arenaRecord struct {
	session  data.ArenaSession
	matchIDs []string
}

// Store is the in-memory state of the mock backend. It is safe for
// concurrent use.
type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	rating *elo.Engine

	students     map[string]*data.Student
	studentOrder []string
	history      map[string][]data.MatchHistoryItem
	awarded      map[string][]data.StudentAchievement

	packs     map[string]*data.FlashcardPack
	packOrder []string
	cards     map[string]*data.Flashcard
	cardOrder []string

	arenas  map[string]*arenaRecord
	matches map[string]*data.RawMatch
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		rating:   defaultEngine,
		students: make(map[string]*data.Student),
		history:  make(map[string][]data.MatchHistoryItem),
		awarded:  make(map[string][]data.StudentAchievement),
		packs:    make(map[string]*data.FlashcardPack),
		cards:    make(map[string]*data.Flashcard),
		arenas:   make(map[string]*arenaRecord),
		matches:  make(map[string]*data.RawMatch),
	}
}

// SetClock replaces the time source, mainly for tests
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) stamp() data.Timestamp {
	return data.NewTimestamp(s.now())
}

// Students

// ListStudents returns students in creation order
func (s *Store) ListStudents() []data.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]data.Student, 0, len(s.studentOrder))
	for _, id := range s.studentOrder {
		out = append(out, *s.students[id])
	}
	return out
}

// GetStudent returns one student
func (s *Store) GetStudent(id string) (data.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return data.Student{}, notFound("Student")
	}
	return *st, nil
}

// CreateStudent adds a student with the default rating
func (s *Store) CreateStudent(in data.StudentInput) (data.Student, error) {
	if err := in.Validate(); err != nil {
		return data.Student{}, badRequest("%v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.stamp()
	st := &data.Student{
		ID:        uuid.NewString(),
		Name:      in.Name,
		AvatarURL: in.AvatarURL,
		EloRating: data.DefaultEloRating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.students[st.ID] = st
	s.studentOrder = append(s.studentOrder, st.ID)
	return *st, nil
}

// UpdateStudent changes name and avatar
func (s *Store) UpdateStudent(id string, in data.StudentInput) (data.Student, error) {
	if err := in.Validate(); err != nil {
		return data.Student{}, badRequest("%v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return data.Student{}, notFound("Student")
	}
	st.Name = in.Name
	st.AvatarURL = in.AvatarURL
	st.UpdatedAt = s.stamp()
	return *st, nil
}

// DeleteStudent removes a student and their history
func (s *Store) DeleteStudent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[id]; !ok {
		return notFound("Student")
	}
	delete(s.students, id)
	delete(s.history, id)
	delete(s.awarded, id)
	s.studentOrder = without(s.studentOrder, id)
	return nil
}

// ResetStudent restores default rating and clears the record
func (s *Store) ResetStudent(id string) (data.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return data.Student{}, notFound("Student")
	}
	st.EloRating = data.DefaultEloRating
	st.Wins, st.Losses, st.TotalMatches, st.WinRate = 0, 0, 0, 0
	st.UpdatedAt = s.stamp()
	delete(s.history, id)
	return *st, nil
}

// History returns a student's matches, oldest first
func (s *Store) History(id string) ([]data.MatchHistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[id]; !ok {
		return nil, notFound("Student")
	}
	out := make([]data.MatchHistoryItem, len(s.history[id]))
	copy(out, s.history[id])
	return out, nil
}

// Achievements returns what the student has been awarded so far
func (s *Store) Achievements(id string) ([]data.StudentAchievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[id]; !ok {
		return nil, notFound("Student")
	}
	out := make([]data.StudentAchievement, len(s.awarded[id]))
	copy(out, s.awarded[id])
	return out, nil
}

// Packs and flashcards

// ListPacks returns packs in creation order
func (s *Store) ListPacks() []data.FlashcardPack {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]data.FlashcardPack, 0, len(s.packOrder))
	for _, id := range s.packOrder {
		out = append(out, *s.packs[id])
	}
	return out
}

// GetPack returns one pack
func (s *Store) GetPack(id string) (data.FlashcardPack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packs[id]
	if !ok {
		return data.FlashcardPack{}, notFound("Pack")
	}
	return *p, nil
}

// CreatePack adds a pack
func (s *Store) CreatePack(in data.PackInput) (data.FlashcardPack, error) {
	if err := in.Validate(); err != nil {
		return data.FlashcardPack{}, badRequest("%v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.stamp()
	p := &data.FlashcardPack{ID: uuid.NewString(), Name: in.Name, Description: in.Description, CreatedAt: now, UpdatedAt: now}
	s.packs[p.ID] = p
	s.packOrder = append(s.packOrder, p.ID)
	return *p, nil
}

// UpdatePack changes a pack's name and description
func (s *Store) UpdatePack(id string, in data.PackInput) (data.FlashcardPack, error) {
	if err := in.Validate(); err != nil {
		return data.FlashcardPack{}, badRequest("%v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packs[id]
	if !ok {
		return data.FlashcardPack{}, notFound("Pack")
	}
	p.Name, p.Description, p.UpdatedAt = in.Name, in.Description, s.stamp()
	return *p, nil
}

// DeletePack removes a pack together with its cards
func (s *Store) DeletePack(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.packs[id]; !ok {
		return notFound("Pack")
	}
	delete(s.packs, id)
	s.packOrder = without(s.packOrder, id)
	kept := s.cardOrder[:0]
	for _, cid := range s.cardOrder {
		if s.cards[cid].PackID == id {
			delete(s.cards, cid)
			continue
		}
		kept = append(kept, cid)
	}
	s.cardOrder = kept
	return nil
}

// ListFlashcards returns cards, optionally limited to one pack
func (s *Store) ListFlashcards(packID string) ([]data.Flashcard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if packID != "" {
		if _, ok := s.packs[packID]; !ok {
			return nil, notFound("Pack")
		}
	}
	out := make([]data.Flashcard, 0)
	for _, id := range s.cardOrder {
		c := s.cards[id]
		if packID == "" || c.PackID == packID {
			out = append(out, *c)
		}
	}
	return out, nil
}

// GetFlashcard returns one card
func (s *Store) GetFlashcard(id string) (data.Flashcard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return data.Flashcard{}, notFound("Flashcard")
	}
	return *c, nil
}

// CreateFlashcard adds a card to an existing pack
func (s *Store) CreateFlashcard(in data.FlashcardInput) (data.Flashcard, error) {
	if err := sanitizeCard(&in); err != nil {
		return data.Flashcard{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createFlashcardLocked(in)
}

func (s *Store) createFlashcardLocked(in data.FlashcardInput) (data.Flashcard, error) {
	if _, ok := s.packs[in.PackID]; !ok {
		return data.Flashcard{}, badRequest("Pack with ID %s not found", in.PackID)
	}
	now := s.stamp()
	c := &data.Flashcard{
		ID:         uuid.NewString(),
		PackID:     in.PackID,
		Question:   in.Question,
		Answer:     in.Answer,
		Difficulty: in.Difficulty,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.cards[c.ID] = c
	s.cardOrder = append(s.cardOrder, c.ID)
	return *c, nil
}

// UpdateFlashcard replaces a card's content
func (s *Store) UpdateFlashcard(id string, in data.FlashcardInput) (data.Flashcard, error) {
	if err := sanitizeCard(&in); err != nil {
		return data.Flashcard{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return data.Flashcard{}, notFound("Flashcard")
	}
	if _, ok := s.packs[in.PackID]; !ok {
		return data.Flashcard{}, badRequest("Pack with ID %s not found", in.PackID)
	}
	c.PackID, c.Question, c.Answer, c.Difficulty = in.PackID, in.Question, in.Answer, in.Difficulty
	c.UpdatedAt = s.stamp()
	return *c, nil
}

// DeleteFlashcard removes a card
func (s *Store) DeleteFlashcard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[id]; !ok {
		return notFound("Flashcard")
	}
	delete(s.cards, id)
	s.cardOrder = without(s.cardOrder, id)
	return nil
}

// ImportFlashcards stores every parsed card whose pack exists and reports
// the outcome per row
func (s *Store) ImportFlashcards(parsed *data.CSVParseResult) data.BulkImportResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := parsed.ImportResult()
	for i, in := range parsed.Cards {
		err := sanitizeCard(&in)
		if err == nil {
			_, err = s.createFlashcardLocked(in)
		}
		if err == nil {
			continue
		}
		result.Errors = append(result.Errors, fmt.Sprintf("Card %d: %v", i+1, err))
		result.Successful--
		result.Failed++
	}
	return result
}

// Arena

// CreateArena opens a session for existing students
func (s *Store) CreateArena(req data.CreateArenaRequest) (data.ArenaSession, error) {
	if len(req.StudentIDs) < 2 {
		return data.ArenaSession{}, badRequest("At least 2 students are required")
	}
	if req.NumRounds < data.MinRounds || req.NumRounds > data.MaxRounds {
		return data.ArenaSession{}, badRequest("num_rounds must be between %d and %d", data.MinRounds, data.MaxRounds)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	participants := make([]data.ArenaStudentStats, 0, len(req.StudentIDs))
	for _, id := range req.StudentIDs {
		st, ok := s.students[id]
		if !ok {
			return data.ArenaSession{}, badRequest("One or more students not found")
		}
		if seen[id] {
			return data.ArenaSession{}, badRequest("Duplicate student %s", id)
		}
		seen[id] = true
		participants = append(participants, data.ArenaStudentStats{
			StudentID: st.ID,
			Name:      st.Name,
			EloRating: st.EloRating,
		})
	}

	now := s.stamp()
	rec := &arenaRecord{session: data.ArenaSession{
		ID:           uuid.NewString(),
		Status:       data.SessionInProgress,
		NumRounds:    req.NumRounds,
		Participants: participants,
		CreatedAt:    now,
		UpdatedAt:    now,
	}}
	s.arenas[rec.session.ID] = rec
	return copySession(rec.session), nil
}

// NextMatch pairs the two participants with the fewest fights played
func (s *Store) NextMatch(arenaID string) (data.RawMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.arenas[arenaID]
	if !ok {
		return data.RawMatch{}, notFound("Arena session")
	}
	if rec.session.Status != data.SessionInProgress {
		return data.RawMatch{}, badRequest("Arena session is not in progress")
	}
	if rec.session.RoundsCompleted >= rec.session.NumRounds {
		return data.RawMatch{}, badRequest("All rounds completed")
	}

	// An unfinished match is handed out again rather than duplicated
	if n := len(rec.matchIDs); n > 0 {
		if last := s.matches[rec.matchIDs[n-1]]; last.Status == data.MatchInProgress {
			return copyMatch(*last), nil
		}
	}

	contenders := make([]elo.Contender, 0, len(rec.session.Participants))
	for _, p := range rec.session.Participants {
		contenders = append(contenders, elo.Contender{ID: p.StudentID, Rating: p.EloRating, Fights: p.FightsPlayed})
	}
	first, second, err := elo.Pair(contenders)
	if err != nil {
		return data.RawMatch{}, badRequest("Arena session needs at least two participants")
	}

	now := s.stamp()
	m := &data.RawMatch{
		ID:              uuid.NewString(),
		ArenaID:         arenaID,
		Status:          data.MatchInProgress,
		NumRounds:       rec.session.NumRounds,
		RoundsCompleted: rec.session.RoundsCompleted,
		WinnerIDs:       []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, id := range []string{first.ID, second.ID} {
		m.Participants = append(m.Participants, data.MatchParticipant{
			StudentID: id,
			EloBefore: s.students[id].EloRating,
		})
	}
	s.matches[m.ID] = m
	rec.matchIDs = append(rec.matchIDs, m.ID)
	return copyMatch(*m), nil
}

// SetMatchWinner scores a match and advances the session
func (s *Store) SetMatchWinner(matchID string, winnerIDs []string) (data.MatchWinnerResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[matchID]
	if !ok {
		return data.MatchWinnerResponse{}, notFound("Match")
	}
	if m.Status != data.MatchInProgress {
		return data.MatchWinnerResponse{}, badRequest("Match is not in progress")
	}
	if len(m.Participants) != 2 {
		return data.MatchWinnerResponse{}, badRequest("Match must have exactly 2 participants")
	}
	if len(winnerIDs) == 0 {
		return data.MatchWinnerResponse{}, badRequest("At least one winner is required")
	}
	won := make(map[string]bool)
	for _, id := range winnerIDs {
		if id != m.Participants[0].StudentID && id != m.Participants[1].StudentID {
			return data.MatchWinnerResponse{}, badRequest("Winner must be a player in this match")
		}
		won[id] = true
	}
	rec, ok := s.arenas[m.ArenaID]
	if !ok {
		return data.MatchWinnerResponse{}, notFound("Arena session")
	}

	p1, p2 := &m.Participants[0], &m.Participants[1]
	u1, u2, err := s.rating.Rate(p1.EloBefore, p2.EloBefore, elo.Score(won[p1.StudentID], won[p2.StudentID]))
	if err != nil {
		return data.MatchWinnerResponse{}, badRequest("%v", err)
	}
	p1.EloAfter, p2.EloAfter = &u1.New, &u2.New

	now := s.stamp()
	m.Status = data.MatchCompleted
	m.WinnerIDs = append([]string(nil), winnerIDs...)
	m.UpdatedAt = now

	for i, p := range []*data.MatchParticipant{p1, p2} {
		opponent := m.Participants[1-i].StudentID
		s.applyResult(rec, m, p, opponent, won[p.StudentID], won[opponent], now)
	}

	rec.session.RoundsCompleted++
	m.RoundsCompleted = rec.session.RoundsCompleted
	if rec.session.RoundsCompleted >= rec.session.NumRounds {
		rec.session.Status = data.SessionCompleted
	}
	rec.session.UpdatedAt = now

	return data.MatchWinnerResponse{Match: copyMatch(*m), ArenaSession: copySession(rec.session)}, nil
}

// applyResult updates one participant's roster entry, arena stats, history and awards
func (s *Store) applyResult(rec *arenaRecord, m *data.RawMatch, p *data.MatchParticipant, opponentID string, won, opponentWon bool, now data.Timestamp) {
	st := s.students[p.StudentID]
	if st == nil {
		return
	}
	change := *p.EloAfter - p.EloBefore

	result := data.ResultUnknown
	switch {
	case won && !opponentWon:
		result = data.ResultWin
		st.Wins++
	case !won && opponentWon:
		result = data.ResultLoss
		st.Losses++
	}
	st.EloRating = *p.EloAfter
	st.TotalMatches++
	st.WinRate = float64(st.Wins) / float64(st.TotalMatches)
	st.UpdatedAt = now

	for i := range rec.session.Participants {
		ps := &rec.session.Participants[i]
		if ps.StudentID != p.StudentID {
			continue
		}
		ps.FightsPlayed++
		ps.EloRating = st.EloRating
		ps.EloChange += change
		switch result {
		case data.ResultWin:
			ps.Wins++
		case data.ResultLoss:
			ps.Losses++
		}
	}

	opponentName := ""
	if o := s.students[opponentID]; o != nil {
		opponentName = o.Name
	}
	s.history[st.ID] = append(s.history[st.ID], data.MatchHistoryItem{
		MatchID:      m.ID,
		Date:         now,
		OpponentName: opponentName,
		OldElo:       p.EloBefore,
		NewElo:       st.EloRating,
		EloChange:    change,
		Result:       result,
	})

	have := make(map[string]bool)
	for _, a := range s.awarded[st.ID] {
		have[a.Achievement.Code] = true
	}
	for _, a := range standings.Evaluate(*st, s.history[st.ID]) {
		if have[a.ID] {
			continue
		}
		s.awarded[st.ID] = append(s.awarded[st.ID], data.StudentAchievement{
			ID:        uuid.NewString(),
			StudentID: st.ID,
			Achievement: data.AchievementInfo{
				ID:          a.ID,
				Code:        a.ID,
				Title:       a.Title,
				Description: a.Description,
			},
			AchievedAt: now,
		})
	}
}

// Results returns the session rankings and its matches
func (s *Store) Results(arenaID string) (data.ArenaResults, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.arenas[arenaID]
	if !ok {
		return data.ArenaResults{}, notFound("Arena session")
	}
	res := data.ArenaResults{
		Rankings: standings.RankArena(rec.session.Participants),
		Matches:  make([]data.RawMatch, 0, len(rec.matchIDs)),
	}
	for _, id := range rec.matchIDs {
		res.Matches = append(res.Matches, copyMatch(*s.matches[id]))
	}
	return res, nil
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func copySession(in data.ArenaSession) data.ArenaSession {
	in.Participants = append([]data.ArenaStudentStats(nil), in.Participants...)
	return in
}

func copyMatch(in data.RawMatch) data.RawMatch {
	parts := make([]data.MatchParticipant, len(in.Participants))
	for i, p := range in.Participants {
		parts[i] = p
		if p.EloAfter != nil {
			v := *p.EloAfter
			parts[i].EloAfter = &v
		}
	}
	in.Participants = parts
	in.WinnerIDs = append([]string{}, in.WinnerIDs...)
	return in
}
