package store

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/user/mana-voicebot/internal/session"
)

type logEntry struct {
	session string
	role    string
	text    string
}

var (
	logEscaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
	logUnescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\r`, "\r")
)

// escapeLogText keeps a turn on one physical line of the log.
func escapeLogText(text string) string {
	return logEscaper.Replace(text)
}

func unescapeLogText(text string) string {
	return logUnescaper.Replace(text)
}

// ReadHistory returns the last limit user and assistant records from the turn
// log, across all sessions. Turn text is unescaped. Lines that do not start a
// new entry continue the previous one, which covers logs written before
// escaping.
func (s *FileStore) ReadHistory(limit int) ([]session.Record, error) {
	f, err := os.Open(s.LogFile())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	var records []session.Record
	var current *logEntry
	flush := func() {
		if current == nil {
			return
		}
		if current.role == session.RoleUser || current.role == session.RoleAssistant {
			records = append(records, session.Record{
				Role: current.role,
				Text: strings.TrimSpace(unescapeLogText(current.text)),
			})
		}
		current = nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if entry, ok := parseLogLine(line); ok {
			flush()
			current = &entry
			continue
		}
		if current != nil {
			current.text += "\n" + line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}
	flush()

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

// parseLogLine splits "[session] role(domain:intent): text". The tag suffix is
// dropped from the role and the text is left escaped.
func parseLogLine(line string) (logEntry, bool) {
	if line == "" {
		return logEntry{}, false
	}

	// Every entry starts with the session prefix.
	if !strings.HasPrefix(line, "[") {
		return logEntry{}, false
	}
	end := strings.Index(line, "]")
	if end == -1 {
		return logEntry{}, false
	}

	var entry logEntry
	entry.session = line[1:end]
	rest := strings.TrimLeft(line[end+1:], " ")

	tag, text, ok := strings.Cut(rest, ": ")
	if !ok {
		return logEntry{}, false
	}
	if i := strings.Index(tag, "("); i != -1 {
		tag = tag[:i]
	}
	// A continuation line can contain ": " too; real tags never contain spaces.
	if tag == "" || strings.ContainsAny(tag, " \t") {
		return logEntry{}, false
	}

	entry.role = tag
	entry.text = text
	return entry, true
}
