package uploader

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/festa-dev/festa-backend/internal/media/biz"
	"github.com/festa-dev/festa-backend/internal/pkg/logger"
	"github.com/festa-dev/festa-backend/internal/pkg/workerpool"
)

// FileState is one node of the per-file pipeline state machine. Transitions
// are one-way; failed is absorbing and reachable from any non-terminal
// state. A failed file is never retried automatically.
type FileState string

const (
	StateQueued       FileState = "queued"
	StateGranting     FileState = "granting"
	StateTransferring FileState = "transferring"
	StateFinalizing   FileState = "finalizing"
	StateCompleted    FileState = "completed"
	StateFailed       FileState = "failed"
)

// Terminal reports whether the state is absorbing.
func (s FileState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// GrantAPI is the server contract the coordinator drives for each file.
type GrantAPI interface {
	IssueGrant(ctx context.Context, req *biz.GrantRequest) (*biz.UploadGrant, error)
	Finalize(ctx context.Context, mediaID string, req *biz.FinalizeRequest) error
}

// BatchFile is one user-selected file. Open is called at most once, when
// the file's transfer begins.
type BatchFile struct {
	FileName  string
	MimeType  string
	SizeBytes int64
	Caption   string
	Open      func() (io.ReadCloser, error)
}

// FileProgress is a snapshot of one file's pipeline. Key is assigned at
// enqueue time and stays stable for the whole batch, so two selections of
// the same file name never collide.
type FileProgress struct {
	Key        string
	FileName   string
	State      FileState
	SentBytes  int64
	TotalBytes int64
	MediaID    string
	PublicURL  string
	Err        error
}

// BatchResult summarizes a finished batch. Callers get counts, not a
// single pass/fail flag: partial success is the normal case.
type BatchResult struct {
	Completed int
	Failed    int
	Files     []FileProgress
}

// Coordinator schedules a batch of uploads under bounded concurrency,
// driving each file through grant issuance, transport and finalization.
type Coordinator struct {
	api       GrantAPI
	transport *Transport
	profile   DeviceProfile
	maxBytes  int64
	onUpdate  func(FileProgress)
	log       *logger.Logger

	mu       sync.Mutex
	progress map[string]*FileProgress
	order    []string
	inFlight atomic.Int64
}

// NewCoordinator creates a batch coordinator. onUpdate, when non-nil,
// receives a snapshot after every state or progress change.
func NewCoordinator(api GrantAPI, transport *Transport, profile DeviceProfile, maxBytes int64, onUpdate func(FileProgress), log *logger.Logger) *Coordinator {
	return &Coordinator{
		api:       api,
		transport: transport,
		profile:   profile,
		maxBytes:  maxBytes,
		onUpdate:  onUpdate,
		log:       log,
		progress:  make(map[string]*FileProgress),
	}
}

// InFlight returns the number of files not yet in a terminal state. A
// navigation guard should warn while this is non-zero.
func (c *Coordinator) InFlight() int64 {
	return c.inFlight.Load()
}

// Snapshot returns the current progress of every file in enqueue order.
func (c *Coordinator) Snapshot() []FileProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FileProgress, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.progress[key])
	}
	return out
}

// UploadBatch validates and uploads the files, returning when every file
// has reached a terminal state. Validation violations are all surfaced
// before any network activity starts; valid files proceed regardless of
// their siblings' failures.
func (c *Coordinator) UploadBatch(ctx context.Context, files []BatchFile, situationID string) (*BatchResult, error) {
	if len(files) == 0 {
		return &BatchResult{}, nil
	}

	type entry struct {
		key  string
		file BatchFile
	}

	var valid []entry
	var totalSize int64

	c.mu.Lock()
	for i, f := range files {
		// Index-prefixed keys stay unique even when the same file name
		// appears twice in one batch.
		key := fmt.Sprintf("%d:%s", i, f.FileName)
		p := &FileProgress{
			Key:        key,
			FileName:   f.FileName,
			State:      StateQueued,
			TotalBytes: f.SizeBytes,
		}
		c.progress[key] = p
		c.order = append(c.order, key)
		c.inFlight.Add(1)
		valid = append(valid, entry{key: key, file: f})
		totalSize += f.SizeBytes
	}
	c.mu.Unlock()

	// Pre-validate everything locally before touching the network. The
	// server re-validates; this pass exists for fast feedback and to
	// surface every violation at once.
	pending := valid[:0]
	for _, e := range valid {
		if err := c.validate(e.file); err != nil {
			c.fail(e.key, err)
			continue
		}
		pending = append(pending, e)
	}
	if len(pending) == 0 {
		return c.result(), nil
	}

	width := ChooseFanoutWidth(c.profile, totalSize/int64(len(files)))

	var zlog *zap.Logger
	if c.log != nil {
		zlog = c.log.Logger
	}
	pool, err := workerpool.New(&workerpool.Config{Workers: width}, zlog)
	if err != nil {
		for _, e := range pending {
			c.fail(e.key, err)
		}
		return c.result(), nil
	}
	defer pool.Release()

	// Chunks run sequentially; files within a chunk run concurrently.
	// The barrier between chunks bounds peak connections to the width.
	for start := 0; start < len(pending); start += width {
		end := start + width
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]

		var wg sync.WaitGroup
		for _, e := range chunk {
			wg.Add(1)
			e := e
			if err := pool.Submit(func() {
				defer wg.Done()
				c.runFile(ctx, e.key, e.file, situationID)
			}); err != nil {
				wg.Done()
				c.fail(e.key, err)
			}
		}
		wg.Wait()
	}

	return c.result(), nil
}

// runFile drives one file through its pipeline. Steps are strictly
// sequential; no step begins before the prior one succeeds.
func (c *Coordinator) runFile(ctx context.Context, key string, f BatchFile, situationID string) {
	c.setState(key, StateGranting)

	grant, err := c.api.IssueGrant(ctx, &biz.GrantRequest{
		FileName:      f.FileName,
		MimeType:      f.MimeType,
		FileSizeBytes: f.SizeBytes,
		Caption:       f.Caption,
		SituationID:   situationID,
	})
	if err != nil {
		c.fail(key, &UploadError{Kind: KindGrant, Err: err})
		return
	}
	c.setGrant(key, grant)

	c.setState(key, StateTransferring)
	src, err := f.Open()
	if err != nil {
		c.fail(key, &UploadError{Kind: KindTransport, Err: fmt.Errorf("opening source: %w", err)})
		return
	}
	err = c.transport.Upload(ctx, grant, src, f.SizeBytes, func(sent, total int64) {
		c.setProgress(key, sent, total)
	})
	src.Close()
	if err != nil {
		// The placeholder record stays; cleanup is not the transfer
		// path's business.
		c.fail(key, err)
		return
	}

	c.setState(key, StateFinalizing)
	finalize := &biz.FinalizeRequest{}
	if f.Caption != "" {
		caption := f.Caption
		finalize.Caption = &caption
	}
	if situationID != "" {
		sit := situationID
		finalize.SituationID = &sit
	}
	if err := c.api.Finalize(ctx, grant.MediaID, finalize); err != nil {
		// Object is durably stored but the record misses its thumbnail
		// prediction; the reconciliation job repairs this later.
		c.fail(key, &UploadError{Kind: KindTransient, Err: err})
		return
	}

	c.complete(key)
}

func (c *Coordinator) validate(f BatchFile) error {
	if _, err := biz.ValidateContentType(f.MimeType); err != nil {
		return &UploadError{Kind: KindValidation, Err: err}
	}
	if err := biz.ValidateFileSize(f.SizeBytes, c.maxBytes); err != nil {
		return &UploadError{Kind: KindValidation, Err: err}
	}
	return nil
}

func (c *Coordinator) setState(key string, state FileState) {
	c.mu.Lock()
	p := c.progress[key]
	p.State = state
	snapshot := *p
	c.mu.Unlock()
	c.notify(snapshot)
}

func (c *Coordinator) setGrant(key string, grant *biz.UploadGrant) {
	c.mu.Lock()
	p := c.progress[key]
	p.MediaID = grant.MediaID
	p.PublicURL = grant.PublicURL
	c.mu.Unlock()
}

func (c *Coordinator) setProgress(key string, sent, total int64) {
	c.mu.Lock()
	p := c.progress[key]
	// Monotone: the transport already clamps, this guards the map.
	if sent > p.SentBytes {
		p.SentBytes = sent
	}
	p.TotalBytes = total
	snapshot := *p
	c.mu.Unlock()
	c.notify(snapshot)
}

func (c *Coordinator) fail(key string, err error) {
	c.mu.Lock()
	p := c.progress[key]
	p.State = StateFailed
	p.Err = err
	snapshot := *p
	c.mu.Unlock()
	c.inFlight.Add(-1)

	if c.log != nil {
		c.log.Warn("file upload failed",
			zap.String("key", key),
			zap.String("kind", string(Kind(err))),
			zap.Error(err))
	}
	c.notify(snapshot)
}

func (c *Coordinator) complete(key string) {
	c.mu.Lock()
	p := c.progress[key]
	p.State = StateCompleted
	p.SentBytes = p.TotalBytes
	snapshot := *p
	c.mu.Unlock()
	c.inFlight.Add(-1)
	c.notify(snapshot)
}

func (c *Coordinator) notify(p FileProgress) {
	if c.onUpdate != nil {
		c.onUpdate(p)
	}
}

func (c *Coordinator) result() *BatchResult {
	files := c.Snapshot()
	res := &BatchResult{Files: files}
	for _, p := range files {
		switch p.State {
		case StateCompleted:
			res.Completed++
		case StateFailed:
			res.Failed++
		}
	}
	return res
}
