package snapshot

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Magic bytes identify rotated snapshot files.
var magicBytes = []byte("SSETSNAP")

const (
	filePrefix    = "snapshot-"
	fileExtension = ".snap"
	checksumSize  = 32
	headerVersion = 1

	DefaultRetentionCount = 5
	DefaultRetentionDays  = 7

	// MaxCompressionTier is the strongest compression tier.
	// Tier 0 disables compression; tiers 1-4 trade speed for ratio.
	MaxCompressionTier = 4
)

var (
	ErrInvalidMagic     = errors.New("snapshot: invalid magic bytes")
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
	ErrNoSnapshots      = errors.New("snapshot: no snapshots available")
)

type snapshotHeader struct {
	Version     int   `json:"version"`
	CreatedAt   int64 `json:"created_at"`
	Elements    int64 `json:"elements"`
	Compression int   `json:"compression"`
	Encrypted   bool  `json:"encrypted"`
}

// Config configures the snapshot manager.
type Config struct {
	Dir string

	RetentionCount int
	RetentionDays  int

	// Compression is the zstd tier (0 = off, 1-4 = fastest to best).
	Compression int

	Cipher Cipher
	Logger *slog.Logger
}

// DefaultConfig returns a manager configuration with the default
// retention policy and no compression or encryption.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		RetentionCount: DefaultRetentionCount,
		RetentionDays:  DefaultRetentionDays,
	}
}

// Manager writes and reads rotated snapshots of one set.
type Manager struct {
	cfg    Config
	cipher Cipher
	logger *slog.Logger

	// Prometheus metrics
	metricLastSize prometheus.Gauge
	metricElements prometheus.Gauge
	metricCreates  prometheus.Counter
	metricLoads    prometheus.Counter
	metricSkipped  prometheus.Counter
}

// NewManager creates a manager rooted at cfg.Dir, creating the
// directory if needed.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("snapshot: dir is required")
	}
	if cfg.Compression < 0 || cfg.Compression > MaxCompressionTier {
		return nil, fmt.Errorf("snapshot: compression tier %d out of range [0,%d]", cfg.Compression, MaxCompressionTier)
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	if cfg.RetentionCount == 0 {
		cfg.RetentionCount = DefaultRetentionCount
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Manager{
		cfg:    cfg,
		cipher: cfg.Cipher,
		logger: cfg.Logger,
	}, nil
}

// RegisterMetrics creates the manager's Prometheus metrics and
// registers them with registry.
//
// This should be called once during initialization.
// Returns the manager for method chaining.
func (m *Manager) RegisterMetrics(registry *prometheus.Registry) *Manager {
	m.metricLastSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "snapset",
		Subsystem: "snapshot",
		Name:      "last_size_bytes",
		Help:      "Size in bytes of the most recently written snapshot",
	})

	m.metricElements = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "snapset",
		Subsystem: "snapshot",
		Name:      "last_elements",
		Help:      "Element count of the most recently written snapshot",
	})

	m.metricCreates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "snapset",
		Subsystem: "snapshot",
		Name:      "creates_total",
		Help:      "Total snapshots created",
	})

	m.metricLoads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "snapset",
		Subsystem: "snapshot",
		Name:      "loads_total",
		Help:      "Total successful snapshot loads",
	})

	m.metricSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "snapset",
		Subsystem: "snapshot",
		Name:      "corrupt_skipped_total",
		Help:      "Total corrupt snapshots skipped during load fallback",
	})

	registry.MustRegister(
		m.metricLastSize,
		m.metricElements,
		m.metricCreates,
		m.metricLoads,
		m.metricSkipped,
	)
	return m
}

// Info contains metadata about a snapshot file.
type Info struct {
	ID          string `json:"id"`
	Elements    int64  `json:"elements"`
	CreatedAt   int64  `json:"created_at"`
	Size        int64  `json:"size"`
	Path        string `json:"path"`
	Checksum    string `json:"checksum"`
	Compression int    `json:"compression"`
	Encrypted   bool   `json:"encrypted"`
}

// Create writes a new snapshot file holding payload.
//
// payload is an opaque snapshot image (typically snapset Encode
// output); elements records the set size for the header and metrics.
func (m *Manager) Create(payload []byte, elements int64) (*Info, error) {
	now := time.Now()
	id := filePrefix + ulid.Make().String()

	tempPath := filepath.Join(m.cfg.Dir, id+".tmp")
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	hash := sha256.New()
	writer := io.MultiWriter(file, hash)

	if _, err := writer.Write(magicBytes); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write magic: %w", err)
	}

	hdr := snapshotHeader{
		Version:     headerVersion,
		CreatedAt:   now.UnixMilli(),
		Elements:    elements,
		Compression: m.cfg.Compression,
		Encrypted:   m.cipher != nil,
	}

	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: marshal header: %w", err)
	}

	var hdrLen [4]byte
	binary.BigEndian.PutUint32(hdrLen[:], uint32(len(hdrJSON)))
	if _, err := writer.Write(hdrLen[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write header length: %w", err)
	}
	if _, err := writer.Write(hdrJSON); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write header: %w", err)
	}

	data := payload
	if m.cfg.Compression > 0 {
		data, err = compress(data, m.cfg.Compression)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("snapshot: compress: %w", err)
		}
	}
	if m.cipher != nil {
		data, err = m.cipher.Encrypt(data, hdrJSON)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("snapshot: encrypt: %w", err)
		}
	}

	var dataLen [4]byte
	binary.BigEndian.PutUint32(dataLen[:], uint32(len(data)))
	if _, err := writer.Write(dataLen[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write data length: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write data: %w", err)
	}

	// Checksum trailer over everything before it.
	sum := hash.Sum(nil)
	if _, err := file.Write(sum); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write checksum: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: close: %w", err)
	}

	stat, err := os.Stat(tempPath)
	if err != nil {
		return nil, err
	}

	finalPath := filepath.Join(m.cfg.Dir, id+fileExtension)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("snapshot: rename: %w", err)
	}

	info := &Info{
		ID:          id,
		Elements:    elements,
		CreatedAt:   now.UnixMilli(),
		Size:        stat.Size(),
		Path:        finalPath,
		Checksum:    hex.EncodeToString(sum),
		Compression: m.cfg.Compression,
		Encrypted:   m.cipher != nil,
	}

	if m.metricCreates != nil {
		m.metricCreates.Inc()
		m.metricLastSize.Set(float64(info.Size))
		m.metricElements.Set(float64(elements))
	}
	m.logger.Debug("snapshot created",
		"id", id,
		"elements", elements,
		"size", info.Size,
		"compression", m.cfg.Compression,
		"encrypted", info.Encrypted)

	return info, nil
}

// Load returns the payload of the latest valid snapshot.
// If the latest snapshot is corrupted, it falls back to older ones.
func (m *Manager) Load() ([]byte, *Info, error) {
	snapshots, err := m.List()
	if err != nil {
		return nil, nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil, ErrNoSnapshots
	}

	for i := len(snapshots) - 1; i >= 0; i-- {
		payload, info, err := m.loadFile(snapshots[i].Path)
		if err == nil {
			if m.metricLoads != nil {
				m.metricLoads.Inc()
			}
			return payload, info, nil
		}
		if errors.Is(err, ErrChecksumMismatch) || errors.Is(err, ErrInvalidMagic) {
			if m.metricSkipped != nil {
				m.metricSkipped.Inc()
			}
			m.logger.Warn("skipping corrupt snapshot",
				"path", snapshots[i].Path,
				"error", err)
			continue
		}
		return nil, nil, err
	}

	return nil, nil, ErrNoSnapshots
}

func (m *Manager) loadFile(path string) ([]byte, *Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if stat.Size() < int64(len(magicBytes))+checksumSize {
		return nil, nil, ErrChecksumMismatch
	}

	// Verify checksum.
	bodyLen := stat.Size() - checksumSize
	expected := make([]byte, checksumSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, bodyLen, checksumSize), expected); err != nil {
		return nil, nil, err
	}
	h := sha256.New()
	if _, err := io.CopyN(h, io.NewSectionReader(f, 0, bodyLen), bodyLen); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(h.Sum(nil), expected) {
		return nil, nil, ErrChecksumMismatch
	}

	br := bufio.NewReader(io.NewSectionReader(f, 0, bodyLen))

	magic := make([]byte, len(magicBytes))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(magic, magicBytes) {
		return nil, nil, ErrInvalidMagic
	}

	var hdrLenBuf [4]byte
	if _, err := io.ReadFull(br, hdrLenBuf[:]); err != nil {
		return nil, nil, err
	}
	hdrLen := binary.BigEndian.Uint32(hdrLenBuf[:])
	if hdrLen == 0 {
		return nil, nil, fmt.Errorf("snapshot: empty header")
	}
	hdrJSON := make([]byte, hdrLen)
	if _, err := io.ReadFull(br, hdrJSON); err != nil {
		return nil, nil, err
	}

	var hdr snapshotHeader
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, nil, fmt.Errorf("snapshot: unmarshal header: %w", err)
	}
	if hdr.Version != headerVersion {
		return nil, nil, fmt.Errorf("snapshot: unsupported header version %d", hdr.Version)
	}

	var dataLenBuf [4]byte
	if _, err := io.ReadFull(br, dataLenBuf[:]); err != nil {
		return nil, nil, err
	}
	data := make([]byte, binary.BigEndian.Uint32(dataLenBuf[:]))
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, nil, err
	}

	if hdr.Encrypted {
		if m.cipher == nil {
			return nil, nil, fmt.Errorf("snapshot: encrypted snapshot requires a cipher")
		}
		data, err = m.cipher.Decrypt(data, hdrJSON)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot: decrypt: %w", err)
		}
	} else if m.cipher != nil {
		return nil, nil, fmt.Errorf("snapshot: expected encrypted snapshot")
	}

	if hdr.Compression > 0 {
		data, err = decompress(data)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot: decompress: %w", err)
		}
	}

	info := &Info{
		ID:          strings.TrimSuffix(filepath.Base(path), fileExtension),
		Elements:    hdr.Elements,
		CreatedAt:   hdr.CreatedAt,
		Size:        stat.Size(),
		Path:        path,
		Checksum:    hex.EncodeToString(expected),
		Compression: hdr.Compression,
		Encrypted:   hdr.Encrypted,
	}

	return data, info, nil
}

// List lists snapshot files (metadata only), oldest first.
//
// Snapshot IDs embed a ULID, so lexical order is creation order.
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExtension) {
			paths = append(paths, filepath.Join(m.cfg.Dir, name))
		}
	}
	sort.Strings(paths)

	var infos []*Info
	for _, p := range paths {
		stat, err := os.Stat(p)
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			ID:   strings.TrimSuffix(filepath.Base(p), fileExtension),
			Path: p,
			Size: stat.Size(),
		})
	}
	return infos, nil
}

// Prune applies the retention policy and deletes old snapshots.
// The newest snapshot is always kept.
func (m *Manager) Prune() error {
	infos, err := m.List()
	if err != nil {
		return err
	}
	if len(infos) <= 1 {
		return nil
	}

	keep := make(map[string]struct{}, len(infos))

	// Keep last RetentionCount.
	if m.cfg.RetentionCount > 0 {
		start := len(infos) - m.cfg.RetentionCount
		if start < 0 {
			start = 0
		}
		for _, info := range infos[start:] {
			keep[info.Path] = struct{}{}
		}
	}

	// Keep those within RetentionDays based on mtime.
	if m.cfg.RetentionDays > 0 {
		cutoff := time.Now().Add(-time.Duration(m.cfg.RetentionDays) * 24 * time.Hour)
		for _, info := range infos {
			st, err := os.Stat(info.Path)
			if err != nil {
				continue
			}
			if st.ModTime().After(cutoff) {
				keep[info.Path] = struct{}{}
			}
		}
	}

	keep[infos[len(infos)-1].Path] = struct{}{}

	for _, info := range infos {
		if _, ok := keep[info.Path]; ok {
			continue
		}
		if err := os.Remove(info.Path); err == nil {
			m.logger.Debug("pruned snapshot", "path", info.Path)
		}
	}
	return nil
}

func compress(src []byte, tier int) ([]byte, error) {
	w, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel(tier)))
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return w.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

func decompress(src []byte) ([]byte, error) {
	r, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.DecodeAll(src, nil)
}

func encoderLevel(tier int) zstd.EncoderLevel {
	switch tier {
	case 1:
		return zstd.SpeedFastest
	case 2:
		return zstd.SpeedDefault
	case 3:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}
