package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Entry is one parsed log line.
type Entry struct {
	Time      time.Time
	Level     string // debug, info, warn, error or "" when unknown
	Component string
	Message   string
	Fields    []Field
	Raw       string
}

// Field is a key/value pair attached to an entry.
type Field struct {
	Key   string
	Value string
}

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file reads as empty.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Tail reads and parses the last maxLines non-blank lines of path.
func Tail(path string, maxLines int) ([]Entry, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, Parse(line))
	}
	return entries, nil
}

// Parse understands both the JSON and the console output of the session
// logger. Anything else comes back as a message-only entry.
func Parse(line string) Entry {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		if e, ok := parseJSON(trimmed); ok {
			e.Raw = line
			return e
		}
	}
	e := parseConsole(trimmed)
	e.Raw = line
	return e
}

var reserved = map[string]bool{
	"level":      true,
	"time":       true,
	"message":    true,
	"component":  true,
	"go_version": true,
}

func parseJSON(line string) (Entry, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}
	e := Entry{
		Level:     normalizeLevel(str(raw["level"])),
		Component: str(raw["component"]),
		Message:   str(raw["message"]),
	}
	if ts, ok := raw["time"].(string); ok {
		e.Time, _ = time.Parse(time.RFC3339, ts)
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Fields = append(e.Fields, Field{Key: k, Value: str(raw[k])})
	}
	return e, true
}

// parseConsole reads "<time> <LVL> <message> key=value ...".
func parseConsole(line string) Entry {
	var e Entry
	rest := line

	if head, tail, ok := strings.Cut(rest, " "); ok {
		if ts, err := time.Parse(time.RFC3339, head); err == nil {
			e.Time = ts
			rest = tail
		}
	}
	if head, tail, ok := strings.Cut(rest, " "); ok {
		if lvl := normalizeLevel(head); lvl != "" {
			e.Level = lvl
			rest = tail
		}
	}

	words := strings.Fields(rest)
	msgEnd := len(words)
	for msgEnd > 0 && strings.Contains(words[msgEnd-1], "=") {
		msgEnd--
	}
	e.Message = strings.Join(words[:msgEnd], " ")
	for _, w := range words[msgEnd:] {
		k, v, _ := strings.Cut(w, "=")
		if k == "component" {
			e.Component = v
			continue
		}
		if reserved[k] {
			continue
		}
		e.Fields = append(e.Fields, Field{Key: k, Value: v})
	}
	return e
}

func normalizeLevel(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "trc", "debug", "dbg":
		return "debug"
	case "info", "inf":
		return "info"
	case "warn", "warning", "wrn":
		return "warn"
	case "error", "err", "fatal", "ftl", "panic", "pnc":
		return "error"
	default:
		return ""
	}
}

func str(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
	default:
		return fmt.Sprint(v)
	}
}
