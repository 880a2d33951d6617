package journal

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"regime-signal-bot/internal/types"
)

// Journal appends JSON lines to one file per UTC day.
type Journal struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

func New(dir string) *Journal {
	if dir == "" {
		dir = "logs"
	}
	return &Journal{dir: dir, now: time.Now}
}

type SignalEntry struct {
	Time       string  `json:"time"`
	Kind       string  `json:"kind"`
	CycleID    string  `json:"cycle_id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Strategy   string  `json:"strategy"`
	Entry      string  `json:"entry"`
	StopLoss   string  `json:"stop_loss"`
	TakeProfit string  `json:"take_profit"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`
}

type CycleEntry struct {
	Time       string         `json:"time"`
	Kind       string         `json:"kind"`
	CycleID    string         `json:"cycle_id"`
	Mode       string         `json:"mode"`
	StatusCode int            `json:"status_code"`
	Assets     int            `json:"assets"`
	Signals    int            `json:"signals"`
	Sent       int            `json:"sent"`
	ReportSent bool           `json:"report_sent"`
	Buckets    map[string]int `json:"buckets"`
	Hysteresis string         `json:"hysteresis,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
}

func (j *Journal) dailyFilepath(t time.Time) string {
	return filepath.Join(j.dir, t.UTC().Format("2006-01-02")+".txt")
}

func (j *Journal) AppendSignal(cycleID string, s types.Signal) error {
	return j.append(func(now string) any {
		return SignalEntry{
			Time:       now,
			Kind:       "signal",
			CycleID:    cycleID,
			Symbol:     s.Symbol,
			Side:       string(s.Side),
			Strategy:   s.Strategy,
			Entry:      s.EntryString(),
			StopLoss:   s.StopLossString(),
			TakeProfit: s.TakeProfitString(),
			Confidence: s.Confidence,
			Score:      s.Score,
		}
	})
}

func (j *Journal) AppendCycle(e CycleEntry) error {
	return j.append(func(now string) any {
		e.Time = now
		e.Kind = "cycle"
		return e
	})
}

func (j *Journal) append(build func(now string) any) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now().UTC()
	p := j.dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(build(now.Format(time.RFC3339)))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips day files last modified more than retentionDays ago
// and removes the originals.
func (j *Journal) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := j.now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(j.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, d := range entries {
		if d.IsDir() || filepath.Ext(d.Name()) != ".txt" {
			continue
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		p := filepath.Join(j.dir, d.Name())
		if err := compress(p); err != nil {
			return fmt.Errorf("compress %s: %w", d.Name(), err)
		}
	}
	return nil
}

func compress(p string) error {
	gz := p + ".gz"
	// already compressed by an earlier run
	if _, err := os.Stat(gz); err == nil {
		return os.Remove(p)
	}

	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		os.Remove(gz)
		return err
	}
	if err := gw.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(p)
}
