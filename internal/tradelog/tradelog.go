package tradelog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"quantai-bot/internal/types"
)

// Log is an append-only JSONL journal, one file per UTC day per stream.
type Log struct {
	mu  sync.Mutex
	dir string
}

func New(dir string) *Log {
	return &Log{dir: dir}
}

func (l *Log) tradesPath(t time.Time) string {
	return filepath.Join(l.dir, "trades", t.UTC().Format("2006-01-02")+".jsonl")
}

func (l *Log) failedPath(t time.Time) string {
	return filepath.Join(l.dir, "failed", t.UTC().Format("2006-01-02")+".jsonl")
}

func (l *Log) cyclesPath(t time.Time) string {
	return filepath.Join(l.dir, "cycles", t.UTC().Format("2006-01-02")+".jsonl")
}

func (l *Log) appendLine(path string, v any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

func (l *Log) AppendTrade(t types.TradeRecord) error {
	return l.appendLine(l.tradesPath(t.Timestamp), t)
}

func (l *Log) AppendFailedTrade(t types.FailedTradeRecord) error {
	return l.appendLine(l.failedPath(t.Timestamp), t)
}

func (l *Log) AppendCycle(r types.CycleReport) error {
	return l.appendLine(l.cyclesPath(r.StartedAt), r)
}

// TradesForDay reads back the completed-trade journal for one UTC day.
// A missing file is an empty day, not an error.
func (l *Log) TradesForDay(day time.Time) ([]types.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.tradesPath(day))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []types.TradeRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var t types.TradeRecord
		if err := json.Unmarshal(sc.Bytes(), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, sc.Err()
}

// CompressOlder gzips journal files older than the retention window and
// removes the originals. retentionDays <= 0 disables compression.
func (l *Log) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(l.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		if _, e2 := os.Stat(gz); e2 == nil {
			_ = os.Remove(p)
			return nil
		}

		in, e3 := os.Open(p)
		if e3 != nil {
			return nil
		}
		defer in.Close()

		out, e4 := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if e4 != nil {
			return nil
		}
		gw := gzip.NewWriter(out)
		if _, e5 := io.Copy(gw, in); e5 == nil {
			_ = gw.Close()
			_ = out.Close()
			_ = os.Remove(p)
		} else {
			_ = gw.Close()
			_ = out.Close()
		}
		return nil
	})
}
