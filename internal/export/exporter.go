// Package export runs the PDF export pipeline: content assembly,
// pagination, page templating, rasterization, assembly and distribution.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/edupress/edupress/internal/blocks"
	"github.com/edupress/edupress/internal/content"
	"github.com/edupress/edupress/internal/delivery"
	"github.com/edupress/edupress/internal/measure"
	"github.com/edupress/edupress/internal/paginate"
	"github.com/edupress/edupress/internal/pagetmpl"
	"github.com/edupress/edupress/internal/pdfdoc"
	"github.com/edupress/edupress/internal/raster"
)

var (
	// ErrNoContent fails an export fast, before any staging work.
	ErrNoContent = errors.New("no content available to export")
	// ErrEmailRequired rejects a non-privileged export with no recipient.
	// The caller collects an address and re-submits; the job never leaves
	// idle.
	ErrEmailRequired = errors.New("recipient email required")
)

// ContentSource is the hierarchy/content collaborator.
type ContentSource interface {
	ListItems(ctx context.Context, lessonID string, rt content.ResourceType) ([]content.Item, error)
	GetHierarchy(ctx context.Context, lessonID string) (*content.Hierarchy, error)
	IncrementDownloads(ctx context.Context, lessonID string, rt content.ResourceType) error
	FetchLogo(ctx context.Context, logoURL string) ([]byte, error)
}

// Deliverer is the remote delivery collaborator.
type Deliverer interface {
	Send(ctx context.Context, sub delivery.Submission) (*delivery.Ack, error)
}

// Config carries the export-level settings.
type Config struct {
	LogoURL        string
	SenderName     string
	SupportContact string
}

// Request describes one export invocation.
type Request struct {
	LessonID     string
	ResourceType content.ResourceType
	Caller       content.Caller
}

// Mode distinguishes local download from remote delivery.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// Result is the single terminal outcome of a job.
type Result struct {
	JobID     string
	Status    Status
	Mode      Mode
	Filename  string
	PDF       []byte // local mode only
	Recipient string // remote mode only
	PageCount int
	Message   string
	// SupportContact is surfaced on failure to non-privileged callers.
	SupportContact string
}

// Exporter runs export jobs against the shared staging surface.
type Exporter struct {
	source  ContentSource
	deliver Deliverer
	staging *Staging
	log     *slog.Logger
	cfg     Config
}

func NewExporter(source ContentSource, deliver Deliverer, staging *Staging, log *slog.Logger, cfg Config) *Exporter {
	return &Exporter{
		source:  source,
		deliver: deliver,
		staging: staging,
		log:     log,
		cfg:     cfg,
	}
}

// Run executes one export job end to end and returns its terminal result.
// Pre-flight rejections (ErrNoContent, ErrEmailRequired, ErrBusy) and
// pipeline failures are returned as errors; the Result then carries the
// human-readable reason and, for non-privileged callers, the support
// contact.
func (e *Exporter) Run(ctx context.Context, req Request) (*Result, error) {
	privileged := req.Caller.Privileged()
	if !privileged && req.Caller.Email == "" {
		return nil, ErrEmailRequired
	}

	items, err := e.source.ListItems(ctx, req.LessonID, req.ResourceType)
	if err != nil {
		return nil, fmt.Errorf("fetch contents: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoContent
	}

	job := NewJob(req.LessonID, req.ResourceType)
	log := e.log.With("job_id", job.ID, "lesson_id", req.LessonID, "resource_type", req.ResourceType)
	job.SetStatus(StatusGenerating)

	// Hierarchy metadata degrades to blank header fields on failure.
	hier := content.Hierarchy{}
	if h, err := e.source.GetHierarchy(ctx, req.LessonID); err != nil {
		log.Warn("hierarchy fetch failed, proceeding with blank header", "error", err)
	} else {
		hier = *h
	}

	// Logo fetch degrades to a header without a logo.
	var logo []byte
	if e.cfg.LogoURL != "" {
		if data, err := e.source.FetchLogo(ctx, e.cfg.LogoURL); err != nil {
			log.Warn("logo fetch failed, proceeding without logo", "error", err)
		} else {
			logo = data
		}
	}

	lessonName := hier.LessonName
	if lessonName == "" {
		lessonName = req.LessonID
	}
	title := lessonName + " - " + req.ResourceType.Label()
	filename := Filename(lessonName, req.ResourceType.Label(), time.Now())

	var pdf []byte
	var pageCount int
	err = e.staging.With(job.ID, func(engine *measure.Engine) error {
		bs := blocks.FromItems(items, req.ResourceType)
		pages, err := paginate.New(engine).Paginate(bs)
		if err != nil {
			return fmt.Errorf("paginate: %w", err)
		}
		docs := pagetmpl.Render(pages, hier)

		// Rasterization is strictly sequential: pages share the staging
		// surface, so page i completes before page i+1 begins.
		ras := raster.New(engine, logo)
		images := make([]image.Image, 0, len(docs))
		for _, doc := range docs {
			img, err := ras.RenderPage(doc)
			if err != nil {
				return fmt.Errorf("rasterize page %d: %w", doc.Index, err)
			}
			images = append(images, img)
		}

		out, err := pdfdoc.Assemble(images, title)
		if err != nil {
			return fmt.Errorf("assemble document: %w", err)
		}
		pdf = out
		pageCount = len(images)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrBusy) {
			// Another job holds the staging surface; this request is
			// rejected without failing the running job.
			return nil, err
		}
		job.Fail(err.Error())
		log.Error("export failed", "error", err)
		return e.failedResult(job, privileged, err.Error()), err
	}
	log.Info("document generated", "pages", pageCount, "bytes", len(pdf))

	if privileged {
		return e.distributeLocal(ctx, job, log, pdf, filename, pageCount)
	}
	return e.distributeRemote(ctx, job, log, req, pdf, filename, title, pageCount)
}

func (e *Exporter) distributeLocal(ctx context.Context, job *Job, log *slog.Logger, pdf []byte, filename string, pageCount int) (*Result, error) {
	job.SetStatus(StatusDeliveringLocal)
	if err := e.source.IncrementDownloads(ctx, job.LessonID, job.ResourceType); err != nil {
		log.Error("download counter increment failed", "error", err)
	}
	job.SetStatus(StatusSucceeded)
	log.Info("export delivered locally", "filename", filename)
	return &Result{
		JobID:     job.ID,
		Status:    StatusSucceeded,
		Mode:      ModeLocal,
		Filename:  filename,
		PDF:       pdf,
		PageCount: pageCount,
		Message:   fmt.Sprintf("saved as %s", filename),
	}, nil
}

func (e *Exporter) distributeRemote(ctx context.Context, job *Job, log *slog.Logger, req Request, pdf []byte, filename, title string, pageCount int) (*Result, error) {
	job.SetStatus(StatusDeliveringRemote)
	ack, err := e.deliver.Send(ctx, delivery.Submission{
		PDF:          pdf,
		Filename:     filename,
		Recipient:    req.Caller.Email,
		Title:        title,
		LessonID:     req.LessonID,
		ResourceType: string(req.ResourceType),
		SenderName:   e.cfg.SenderName,
	})
	if err != nil {
		job.Fail(err.Error())
		log.Error("delivery submission failed", "error", err)
		return e.failedResult(job, false, "could not send the document"), fmt.Errorf("deliver: %w", err)
	}
	if !ack.Success {
		reason := ack.Message
		if reason == "" {
			reason = "delivery channel rejected the document"
		}
		job.Fail(reason)
		log.Error("delivery rejected", "message", ack.Message)
		return e.failedResult(job, false, "could not send the document"), fmt.Errorf("deliver: %s", reason)
	}

	// The counter increments only after the channel confirms acceptance.
	if err := e.source.IncrementDownloads(ctx, job.LessonID, job.ResourceType); err != nil {
		log.Error("download counter increment failed", "error", err)
	}
	job.SetStatus(StatusSucceeded)
	log.Info("export delivered remotely", "recipient", req.Caller.Email)
	return &Result{
		JobID:     job.ID,
		Status:    StatusSucceeded,
		Mode:      ModeRemote,
		Filename:  filename,
		Recipient: req.Caller.Email,
		PageCount: pageCount,
		Message:   fmt.Sprintf("sent to %s", req.Caller.Email),
	}, nil
}

// failedResult builds the terminal failure outcome. Privileged callers see
// the raw reason; everyone else gets a friendly message plus the support
// contact.
func (e *Exporter) failedResult(job *Job, privileged bool, message string) *Result {
	r := &Result{
		JobID:   job.ID,
		Status:  StatusFailed,
		Message: message,
	}
	if !privileged {
		r.SupportContact = e.cfg.SupportContact
	}
	return r
}
