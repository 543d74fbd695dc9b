// Package journal appends every published market event to a
// segment-rotating, CRC-framed audit file. The journal is write-only
// output: nothing in the venue ever reads it back at startup.
package journal

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Config struct {
	Dir             string
	SegmentSize     int64
	SegmentDuration time.Duration
	FlushInterval   time.Duration
}

type Journal struct {
	cfg  Config
	mu   sync.Mutex
	file *os.File

	bytes int64
	start time.Time
	done  chan struct{}
}

const activeSegment = "events.log"

func Open(cfg Config) (*Journal, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(cfg.Dir, activeSegment), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	j := &Journal{
		cfg:   cfg,
		file:  f,
		start: time.Now(),
		done:  make(chan struct{}),
	}
	if cfg.FlushInterval > 0 {
		go j.autoFlush()
	}
	return j, nil
}

// Append writes one event line as a framed record, rotating the
// segment when it exceeds the configured size or age.
func (j *Journal) Append(line string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data := encodeRecord(time.Now().UnixNano(), line)
	n, err := j.file.Write(data)
	if err != nil {
		return err
	}
	j.bytes += int64(n)
	if (j.cfg.SegmentSize > 0 && j.bytes > j.cfg.SegmentSize) ||
		(j.cfg.SegmentDuration > 0 && time.Since(j.start) > j.cfg.SegmentDuration) {
		return j.rotate()
	}
	return nil
}

func (j *Journal) rotate() error {
	if err := j.file.Close(); err != nil {
		return err
	}
	active := filepath.Join(j.cfg.Dir, activeSegment)
	sealed := filepath.Join(j.cfg.Dir, time.Now().Format("20060102_150405")+".log")
	if err := os.Rename(active, sealed); err != nil {
		return err
	}
	f, err := os.OpenFile(active, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	j.file = f
	j.bytes = 0
	j.start = time.Now()
	return nil
}

func (j *Journal) autoFlush() {
	ticker := time.NewTicker(j.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.mu.Lock()
			_ = j.file.Sync()
			j.mu.Unlock()
		}
	}
}

func (j *Journal) Close() error {
	close(j.done)
	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.file.Sync()
	return j.file.Close()
}

// SendEvent lets the journal sit on the broadcaster as a passive sink.
func (j *Journal) SendEvent(line string) error {
	return j.Append(line)
}
