// Package journal keeps an append-only record of arena battles. Entries are
// JSON Lines chained by SHA-256 hashes so edits to a finished journal are
// detected on the next open or verify.
package journal

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pashagolub/flasharena/pkg/data"
)

// Error types for journal operations
var (
	ErrCorrupted     = errors.New("journal corrupted or tampered")
	ErrClosed        = errors.New("journal is closed")
	ErrMissingArena  = errors.New("arena id cannot be empty")
	ErrJournalAbsent = errors.New("journal file not found")
)

// EventType is the kind of battle event recorded
type EventType string

const (
	EventBattleStarted   EventType = "battle_started"
	EventRoundScored     EventType = "round_scored"
	EventBattleFinished  EventType = "battle_finished"
	EventBattleAbandoned EventType = "battle_abandoned"
)

// Entry is one line of a journal
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	EventType EventType      `json:"event_type"`
	ArenaID   string         `json:"arena_id"`
	Data      map[string]any `json:"data"`

	PreviousHash string `json:"previous_hash"`
	EntryHash    string `json:"entry_hash"`
	Sequence     uint64 `json:"sequence"`
}

// Journal appends battle events for one arena session. It is safe for
// concurrent use.
type Journal struct {
	arenaID string
	path    string

	mu       sync.Mutex
	file     *os.File
	lastHash string
	sequence uint64
	now      func() time.Time
}

// Filename is the journal file name for an arena session
func Filename(arenaID string) string {
	return fmt.Sprintf("battle_%s.jsonl", arenaID)
}

// Open creates or continues the journal of arenaID inside dir. An existing
// file is verified before anything is appended.
func Open(dir, arenaID string) (*Journal, error) {
	if arenaID == "" {
		return nil, ErrMissingArena
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	j := &Journal{
		arenaID: arenaID,
		path:    filepath.Join(dir, Filename(arenaID)),
		now:     func() time.Time { return time.Now().UTC() },
	}

	if _, err := os.Stat(j.path); err == nil {
		last, n, err := scan(j.path, nil)
		if err != nil {
			return nil, err
		}
		j.lastHash, j.sequence = last, n
	}

	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	j.file = file
	return j, nil
}

// Path returns the journal file path
func (j *Journal) Path() string {
	return j.path
}

// Sequence returns the number of entries written so far
func (j *Journal) Sequence() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sequence
}

// BattleStarted records the session as created by the backend
func (j *Journal) BattleStarted(session data.ArenaSession, packID string) error {
	players := make([]map[string]any, 0, len(session.Participants))
	for _, p := range session.Participants {
		players = append(players, map[string]any{
			"student_id": p.StudentID,
			"name":       p.Name,
			"elo":        p.EloRating,
		})
	}
	return j.append(EventBattleStarted, map[string]any{
		"pack_id":    packID,
		"num_rounds": session.NumRounds,
		"players":    players,
	})
}

// RoundScored records one submitted round and the rating changes it caused
func (j *Journal) RoundScored(match data.ArenaMatch, session data.ArenaSession) error {
	payload := map[string]any{
		"match_id":    match.ID,
		"round":       session.RoundsCompleted,
		"student_ids": []string{match.Player1ID, match.Player2ID},
		"winner_ids":  match.WinnerIDs,
	}
	sides := []struct {
		id     string
		before float64
		after  *float64
	}{
		{id: match.Player1ID, before: match.Player1EloBefore, after: match.Player1EloAfter},
		{id: match.Player2ID, before: match.Player2EloBefore, after: match.Player2EloAfter},
	}
	changes := make(map[string]any, 2)
	for _, s := range sides {
		c := map[string]any{"old_elo": s.before}
		if s.after != nil {
			c["new_elo"] = *s.after
			c["elo_change"] = *s.after - s.before
		}
		changes[s.id] = c
	}
	payload["ratings"] = changes
	return j.append(EventRoundScored, payload)
}

// BattleFinished records the final standings
func (j *Journal) BattleFinished(results data.ArenaResults) error {
	rankings := make([]map[string]any, 0, len(results.Rankings))
	for i, r := range results.Rankings {
		rankings = append(rankings, map[string]any{
			"rank":       i + 1,
			"student_id": r.StudentID,
			"name":       r.Name,
			"elo":        r.EloRating,
			"elo_change": r.EloChange,
			"wins":       r.Wins,
			"losses":     r.Losses,
		})
	}
	return j.append(EventBattleFinished, map[string]any{
		"student_ids": studentIDs(results.Rankings),
		"rankings":    rankings,
	})
}

// Abandoned records a battle left before its last round
func (j *Journal) Abandoned(roundsCompleted int, reason string) error {
	return j.append(EventBattleAbandoned, map[string]any{
		"rounds_completed": roundsCompleted,
		"reason":           reason,
	})
}

func studentIDs(stats []data.ArenaStudentStats) []string {
	ids := make([]string, 0, len(stats))
	for _, s := range stats {
		ids = append(ids, s.StudentID)
	}
	return ids
}

// append writes a new entry and syncs it to disk
func (j *Journal) append(eventType EventType, payload map[string]any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return ErrClosed
	}

	entry := Entry{
		ID:           uuid.NewString(),
		Timestamp:    j.now(),
		EventType:    eventType,
		ArenaID:      j.arenaID,
		PreviousHash: j.lastHash,
		Sequence:     j.sequence,
	}
	// Hash the payload as it will be read back, not the Go values
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	if err := json.Unmarshal(raw, &entry.Data); err != nil {
		return fmt.Errorf("failed to normalize journal entry: %w", err)
	}
	entry.EntryHash = hashEntry(&entry)

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal: %w", err)
	}

	j.lastHash = entry.EntryHash
	j.sequence++
	return nil
}

// Close releases the file. Further appends fail with ErrClosed.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// hashEntry computes the SHA-256 of everything but the entry hash itself
func hashEntry(e *Entry) string {
	payload, _ := json.Marshal(e.Data)
	sum := sha256.Sum256(payload)
	content := fmt.Sprintf("%s|%s|%s|%s|%s|%d|%s",
		e.ID,
		e.Timestamp.Format(time.RFC3339Nano),
		e.EventType,
		e.ArenaID,
		e.PreviousHash,
		e.Sequence,
		hex.EncodeToString(sum[:]))
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// scan walks a journal checking the hash chain and hands every entry to fn.
// It returns the last hash and the entry count.
func scan(path string, fn func(Entry)) (string, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0, fmt.Errorf("%w: %s", ErrJournalAbsent, path)
		}
		return "", 0, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()
	return scanReader(f, fn)
}

func scanReader(r io.Reader, fn func(Entry)) (string, uint64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var previous string
	var sequence uint64
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return "", 0, fmt.Errorf("%w: invalid JSON at sequence %d: %v", ErrCorrupted, sequence, err)
		}
		if entry.Sequence != sequence {
			return "", 0, fmt.Errorf("%w: expected sequence %d, got %d", ErrCorrupted, sequence, entry.Sequence)
		}
		if entry.PreviousHash != previous {
			return "", 0, fmt.Errorf("%w: hash chain broken at sequence %d", ErrCorrupted, sequence)
		}
		if entry.EntryHash != hashEntry(&entry) {
			return "", 0, fmt.Errorf("%w: entry hash mismatch at sequence %d", ErrCorrupted, sequence)
		}
		if fn != nil {
			fn(entry)
		}
		previous = entry.EntryHash
		sequence++
	}
	if err := scanner.Err(); err != nil {
		return "", 0, fmt.Errorf("error reading journal: %w", err)
	}
	return previous, sequence, nil
}

// Verify checks the whole hash chain of a journal file
func Verify(path string) error {
	_, _, err := scan(path, nil)
	return err
}
