package recorder

import (
	"time"

	"github.com/yanun0323/errors"
)

const (
	defaultFilePrefix = "frames"
	segmentSuffix     = ".rec"
)

// Config controls frame recording. Zero values take the defaults of DefaultConfig,
// a zero SegmentMaxDuration disables time-based rotation.
type Config struct {
	Dir                string
	FilePrefix         string
	SegmentMaxBytes    int64
	SegmentMaxDuration time.Duration
	QueueSize          int
	BufferSize         int
	FlushInterval      time.Duration
	SyncInterval       time.Duration
}

func DefaultConfig(dir string) Config {
	return Config{
		Dir:                dir,
		FilePrefix:         defaultFilePrefix,
		SegmentMaxBytes:    256 << 20,
		SegmentMaxDuration: 15 * time.Minute,
		QueueSize:          4096,
		BufferSize:         256 << 10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig(c.Dir)
	if c.FilePrefix == "" {
		c.FilePrefix = d.FilePrefix
	}
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = d.SegmentMaxBytes
	}
	if c.QueueSize == 0 {
		c.QueueSize = d.QueueSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = d.BufferSize
	}
	return c
}

func (c Config) Validate() error {
	switch {
	case c.Dir == "":
		return errors.New("recorder dir is empty")
	case c.FilePrefix == "":
		return errors.New("recorder file prefix is empty")
	case c.SegmentMaxBytes <= 0:
		return errors.Errorf("recorder segment max bytes must be > 0, got %d", c.SegmentMaxBytes)
	case c.SegmentMaxDuration < 0:
		return errors.Errorf("recorder segment max duration must be >= 0, got %s", c.SegmentMaxDuration)
	case c.QueueSize <= 0:
		return errors.Errorf("recorder queue size must be > 0, got %d", c.QueueSize)
	case c.BufferSize <= 0:
		return errors.Errorf("recorder buffer size must be > 0, got %d", c.BufferSize)
	case c.FlushInterval < 0 || c.SyncInterval < 0:
		return errors.New("recorder flush and sync intervals must be >= 0")
	}
	return nil
}
