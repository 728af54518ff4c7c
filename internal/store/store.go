package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/user/mana-voicebot/internal/session"
)

const (
	logFileName      = "session_log.txt"
	snapshotFileName = "last_session.json"
	metaFileName     = "session_meta.json"
)

// FileStore persists the turn log, the last-session snapshot and the session
// metadata under baseDir. It has a single writer: the orchestrator.
type FileStore struct {
	baseDir     string
	sessionName string
	now         func() time.Time
}

type sessionMeta struct {
	SessionName string `json:"session_name"`
	StartedAt   string `json:"started_at"`
}

func NewFileStore(baseDir string) (*FileStore, error) {
	// Create directories if they don't exist
	logsDir := filepath.Join(baseDir, "logs")
	sessionsDir := filepath.Join(baseDir, "sessions")

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FileStore{
		baseDir: baseDir,
		now:     time.Now,
	}, nil
}

func (s *FileStore) LogFile() string { return filepath.Join(s.baseDir, "logs", logFileName) }
func (s *FileStore) SnapshotFile() string {
	return filepath.Join(s.baseDir, "sessions", snapshotFileName)
}
func (s *FileStore) MetaFile() string { return filepath.Join(s.baseDir, "sessions", metaFileName) }

// SessionName is empty until StartSession runs.
func (s *FileStore) SessionName() string {
	return s.sessionName
}

// LoadLastSnapshot returns the previous snapshot as a generic JSON object, or
// nil when none exists.
func (s *FileStore) LoadLastSnapshot() (map[string]any, error) {
	data, err := os.ReadFile(s.SnapshotFile())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot map[string]any
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snapshot, nil
}

// StartSession opens a new session identity: it appends the log header, writes
// the metadata file and saves the initial snapshot of st.
func (s *FileStore) StartSession(st *session.State) (string, error) {
	started := s.now()
	s.sessionName = GenerateSessionID(started)

	header := fmt.Sprintf("[%s] session: started at %s\n", s.sessionName, started.Format(time.ANSIC))
	if err := s.appendLog(header); err != nil {
		return "", err
	}

	meta, err := json.MarshalIndent(sessionMeta{
		SessionName: s.sessionName,
		StartedAt:   started.Format("2006-01-02T15:04:05"),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode session meta: %w", err)
	}
	if err := writeFileAtomic(s.MetaFile(), meta); err != nil {
		return "", fmt.Errorf("failed to write session meta: %w", err)
	}

	if err := s.SaveSnapshot(st); err != nil {
		return "", err
	}

	log.Info().
		Str("session", s.sessionName).
		Str("dir", s.baseDir).
		Msg("Started session")

	return s.sessionName, nil
}

// LogTurn appends "[session] role: text", tagging the role as
// role(domain:intent) or role(domain) when those are known. Line breaks and
// backslashes in text are escaped so each turn stays on one line.
func (s *FileStore) LogTurn(role, text, domain, intent string) error {
	if s.sessionName == "" {
		return fmt.Errorf("session not started")
	}

	tag := role
	switch {
	case domain != "" && intent != "":
		tag = fmt.Sprintf("%s(%s:%s)", role, domain, intent)
	case domain != "":
		tag = fmt.Sprintf("%s(%s)", role, domain)
	}

	return s.appendLog(fmt.Sprintf("[%s] %s: %s\n", s.sessionName, tag, escapeLogText(text)))
}

// SaveSnapshot replaces the snapshot file atomically so a crash never leaves a
// partially written state on disk.
func (s *FileStore) SaveSnapshot(st *session.State) error {
	data, err := st.Snapshot(s.sessionName).Marshal()
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.SnapshotFile(), data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	log.Debug().
		Str("session", s.sessionName).
		Str("file", s.SnapshotFile()).
		Int("size", len(data)).
		Msg("Saved snapshot")
	return nil
}

func (s *FileStore) appendLog(line string) error {
	f, err := os.OpenFile(s.LogFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to append session log: %w", err)
	}
	return nil
}

// GenerateSessionID builds a sortable, collision-free session name.
func GenerateSessionID(t time.Time) string {
	return fmt.Sprintf("session_%s_%s", t.Format("20060102_150405"), uuid.NewString()[:8])
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
