package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"imgharvest/internal/downloader"
	"imgharvest/pkg/archive"
	"imgharvest/pkg/bridge"
	"imgharvest/pkg/discovery"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/fetcher"
	"imgharvest/pkg/logger"
)

const (
	AlertNoImages       = "No images found on this page"
	alertDownloadFailed = "Download failed: "
	alertError          = "Error: "
)

// ErrRunInProgress is returned when Run is called while another run is active
var ErrRunInProgress = errors.New("a run is already in progress")

// ImageSource answers the getImages request, normally a bridge.Client
type ImageSource interface {
	GetImages(ctx context.Context) ([]string, error)
}

// Fetcher retrieves image bytes
type Fetcher interface {
	FetchCORS(ctx context.Context, url, origin string) (*fetcher.Image, error)
	FetchImage(ctx context.Context, url string) (*fetcher.Image, error)
}

// Converter produces target-format bytes
type Converter interface {
	Convert(data []byte, contentType string) ([]byte, error)
	Reencode(data []byte) ([]byte, error)
}

// Saver stores the finished archive
type Saver interface {
	Save(ctx context.Context, blob io.Reader, name string, saveAs bool) (string, error)
}

// Options configures an Orchestrator
type Options struct {
	// PageURL names the archive and supplies the Origin of CORS fetches
	PageURL     string
	Concurrency int
	SaveAs      bool
	Reporter    Reporter
	Logger      logger.Logger
	// Now returns the run start time, time.Now when nil
	Now func() time.Time
}

// Stats counts candidate outcomes of a run
type Stats struct {
	Found      int `json:"found"`
	Downloaded int `json:"downloaded"`
	Converted  int `json:"converted"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Result describes a finished run
type Result struct {
	State       State         `json:"state"`
	ArchiveName string        `json:"archive_name,omitempty"`
	Path        string        `json:"path,omitempty"`
	Entries     []string      `json:"entries,omitempty"`
	// Size is the archive size in bytes
	Size        int64         `json:"size,omitempty"`
	Stats       Stats         `json:"stats"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	// Archive keeps the built archive when saving it failed
	Archive     *bytes.Buffer `json:"-"`
}

// ScanResult is the outcome of Scan
type ScanResult struct {
	Images  []string `json:"images"`
	Formats []string `json:"formats"`
}

// Orchestrator turns a page's image URLs into a saved WebP archive
type Orchestrator struct {
	source    ImageSource
	fetcher   Fetcher
	converter Converter
	saver     Saver
	opts      Options
	origin    string
	reporter  Reporter
	logger    logger.Logger

	mu      sync.Mutex
	running bool
	state   State
}

// New creates an Orchestrator
func New(source ImageSource, f Fetcher, c Converter, s Saver, opts Options) *Orchestrator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Reporter == nil {
		opts.Reporter = NopReporter{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	return &Orchestrator{
		source:    source,
		fetcher:   f,
		converter: c,
		saver:     s,
		opts:      opts,
		origin:    fetcher.Origin(opts.PageURL),
		reporter:  opts.Reporter,
		logger:    opts.Logger,
		state:     StateIdle,
	}
}

// State returns the current run state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Running reports whether a run is active
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Scan asks the page for its image URLs without downloading anything
func (o *Orchestrator) Scan(ctx context.Context) (*ScanResult, error) {
	images, err := o.getImages(ctx)
	if err != nil {
		return nil, err
	}
	return &ScanResult{Images: images, Formats: discovery.DetectFormats(images)}, nil
}

// Run performs one complete harvest. Alerts go to the reporter; the returned
// error is nil for a successful or empty run.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrRunInProgress
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	start := o.opts.Now()
	result := &Result{StartedAt: start}
	defer func() {
		result.Duration = time.Since(start)
		result.State = o.State()
	}()

	o.setState(StateScanning)
	urls, err := o.getImages(ctx)
	if err != nil {
		return result, o.fail(err, alertError)
	}

	if len(urls) == 0 {
		o.reporter.OnAlert(AlertNoImages)
		o.setState(StateEmpty)
		return result, nil
	}
	result.Stats.Found = len(urls)

	o.logger.InfoWithFields("Starting download", map[string]interface{}{
		"page":        o.opts.PageURL,
		"candidates":  len(urls),
		"concurrency": o.opts.Concurrency,
	})

	o.setState(StateDownloading)
	builder := archive.NewBuilder()
	if err := o.download(ctx, urls, builder, result); err != nil {
		return result, o.fail(err, alertError)
	}
	result.Entries = builder.Names()

	o.setState(StateArchiving)
	blob, err := builder.Finalize()
	if err != nil {
		return result, o.fail(err, alertError)
	}
	result.Size = int64(blob.Len())

	o.setState(StateSaving)
	result.ArchiveName = archive.ArchiveName(o.opts.PageURL, start)
	path, err := o.saver.Save(ctx, bytes.NewReader(blob.Bytes()), result.ArchiveName, o.opts.SaveAs)
	if err != nil {
		result.Archive = blob
		return result, o.fail(err, alertDownloadFailed)
	}
	result.Path = path

	o.setState(StateIdle)
	o.logger.InfoWithFields("Run complete", map[string]interface{}{
		"path":      path,
		"entries":   len(result.Entries),
		"skipped":   result.Stats.Skipped,
		"failed":    result.Stats.Failed,
		"found":     result.Stats.Found,
		"converted": result.Stats.Converted,
	})
	return result, nil
}

func (o *Orchestrator) getImages(ctx context.Context) ([]string, error) {
	if o.source == nil {
		return nil, bridge.ErrUnavailable
	}
	return o.source.GetImages(ctx)
}

// download processes every candidate and inserts successes into builder in
// index order, whatever the concurrency.
func (o *Orchestrator) download(ctx context.Context, urls []string, builder *archive.Builder, result *Result) error {
	jobs := make([]downloader.Job, len(urls))
	for i, u := range urls {
		jobs[i] = downloader.Job{Index: i, URL: u}
	}

	if o.opts.Concurrency == 1 {
		for _, job := range jobs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := o.record(o.process(ctx, job), len(jobs), builder, result); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := downloader.NewWorkerPool(o.opts.Concurrency, downloader.ProcessorFunc(o.process), o.logger)
	seq := downloader.NewSequencer(0)
	done := 0
	for r := range pool.Run(ctx, jobs) {
		for _, ready := range seq.Push(r) {
			if err := o.record(ready, len(jobs), builder, result); err != nil {
				return err
			}
			done++
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if done != len(jobs) {
		return fmt.Errorf("worker pool stopped after %d of %d candidates", done, len(jobs))
	}
	return nil
}

// record applies one result in order: archive insert, stats, progress
func (o *Orchestrator) record(r downloader.Result, total int, builder *archive.Builder, result *Result) error {
	ev := ItemEvent{Index: r.Job.Index, Total: total, URL: r.Job.URL, Fallback: r.Fallback}

	if r.Fetched {
		result.Stats.Downloaded++
	}

	switch {
	case r.Skipped:
		result.Stats.Skipped++
		ev.Status = ItemSkipped
	case r.Err != nil:
		result.Stats.Failed++
		ev.Status = ItemFailed
		ev.Err = r.Err
		logger.LogCandidateFailure(o.logger, r.Job.Index, r.Job.URL, r.Err)
	default:
		name, err := builder.Add(archive.FileName(r.Job.URL, r.Job.Index), r.Data)
		if err != nil {
			return err
		}
		result.Stats.Converted++
		ev.Status = ItemConverted
		ev.Name = name
	}

	o.reporter.OnItem(ev)
	o.reporter.OnProgress(Percent(r.Job.Index+1, total))
	return nil
}

// process fetches and converts one candidate: CORS fetch first, then an
// anonymous image load. Candidates are never retried.
func (o *Orchestrator) process(ctx context.Context, job downloader.Job) downloader.Result {
	start := time.Now()
	res := downloader.Result{Job: job}

	if strings.Contains(strings.ToLower(job.URL), ".svg") {
		res.Skipped = true
		o.logger.DebugWithFields("Skipping vector image", map[string]interface{}{
			"index": job.Index,
			"url":   job.URL,
		})
		return res
	}

	data, fetched, err := o.primary(ctx, job.URL)
	if err == nil {
		res.Data, res.Fetched = data, true
		res.Duration = time.Since(start)
		return res
	}
	res.Fetched = fetched

	o.logger.DebugWithFields("Primary fetch failed, loading as image", map[string]interface{}{
		"index": job.Index,
		"url":   job.URL,
		"error": err.Error(),
	})

	res.Fallback = true
	data, fetched, fbErr := o.fallback(ctx, job.URL)
	res.Fetched = res.Fetched || fetched
	if fbErr != nil {
		res.Err = fmt.Errorf("%w (primary: %v)", fbErr, err)
	} else {
		res.Data = data
	}
	res.Duration = time.Since(start)
	return res
}

func (o *Orchestrator) primary(ctx context.Context, url string) ([]byte, bool, error) {
	img, err := o.fetcher.FetchCORS(ctx, url, o.origin)
	if err != nil {
		return nil, false, err
	}
	data, err := o.converter.Convert(img.Data, img.ContentType)
	return data, true, err
}

func (o *Orchestrator) fallback(ctx context.Context, url string) ([]byte, bool, error) {
	img, err := o.fetcher.FetchImage(ctx, url)
	if err != nil {
		return nil, false, err
	}
	data, err := o.converter.Reencode(img.Data)
	return data, true, err
}

// fail moves the run to the error state and alerts the user
func (o *Orchestrator) fail(err error, prefix string) error {
	o.reporter.OnAlert(prefix + alertMessage(err))
	o.setState(StateError)
	o.logger.ErrorWithFields("Run failed", map[string]interface{}{
		"error": err.Error(),
		"type":  string(errs.TypeOf(err)),
	})
	return err
}

// alertMessage returns the user-facing text of err: a typed error's message,
// otherwise the error string.
func alertMessage(err error) string {
	var e *errs.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

func (o *Orchestrator) setState(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()

	if !CanTransition(from, to) {
		o.logger.WarnWithFields("Unexpected state transition", map[string]interface{}{
			"from": string(from),
			"to":   string(to),
		})
	}

	logger.LogStage(o.logger, string(from), string(to))
	o.reporter.OnState(from, to)
}
