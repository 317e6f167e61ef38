package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/edupress/edupress/internal/content"
	"github.com/edupress/edupress/internal/delivery"
	"github.com/edupress/edupress/internal/measure"
)

type fakeSource struct {
	items    []content.Item
	itemsErr error
	hier     *content.Hierarchy
	hierErr  error
	logo     []byte
	logoErr  error

	incrCalls int
	incrErr   error
}

func (f *fakeSource) ListItems(ctx context.Context, lessonID string, rt content.ResourceType) ([]content.Item, error) {
	return f.items, f.itemsErr
}

func (f *fakeSource) GetHierarchy(ctx context.Context, lessonID string) (*content.Hierarchy, error) {
	return f.hier, f.hierErr
}

func (f *fakeSource) IncrementDownloads(ctx context.Context, lessonID string, rt content.ResourceType) error {
	f.incrCalls++
	return f.incrErr
}

func (f *fakeSource) FetchLogo(ctx context.Context, logoURL string) ([]byte, error) {
	return f.logo, f.logoErr
}

type fakeDeliverer struct {
	subs []delivery.Submission
	ack  *delivery.Ack
	err  error
}

func (f *fakeDeliverer) Send(ctx context.Context, sub delivery.Submission) (*delivery.Ack, error) {
	f.subs = append(f.subs, sub)
	if f.err != nil {
		return nil, f.err
	}
	return f.ack, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExporter(t *testing.T, source *fakeSource, deliver *fakeDeliverer, cfg Config) *Exporter {
	t.Helper()
	engine, err := measure.NewEngine()
	if err != nil {
		t.Fatalf("engine init: %v", err)
	}
	return NewExporter(source, deliver, NewStaging(engine), testLogger(), cfg)
}

func sampleItems() []content.Item {
	return []content.Item{
		{Title: "Photosynthesis", Body: "<p>Plants convert light into energy.</p>", IsPublished: true},
		{Title: "Respiration", Body: "<p>Cells release stored energy.</p>", IsPublished: true},
	}
}

func sampleHierarchy() *content.Hierarchy {
	return &content.Hierarchy{
		ClassName:   "Grade 8",
		SubjectName: "Science",
		LessonName:  "Energy in Cells",
	}
}

func TestRun_NoContent(t *testing.T) {
	source := &fakeSource{}
	deliver := &fakeDeliverer{}
	exp := newTestExporter(t, source, deliver, Config{})

	_, err := exp.Run(context.Background(), Request{
		LessonID:     "lesson-1",
		ResourceType: content.ResourceNotes,
		Caller:       content.Caller{Role: "admin"},
	})
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
	if source.incrCalls != 0 {
		t.Errorf("counter must not move for an empty export, got %d calls", source.incrCalls)
	}
}

func TestRun_EmailRequiredBeforeAnyWork(t *testing.T) {
	source := &fakeSource{items: sampleItems()}
	deliver := &fakeDeliverer{}
	exp := newTestExporter(t, source, deliver, Config{})

	_, err := exp.Run(context.Background(), Request{
		LessonID:     "lesson-1",
		ResourceType: content.ResourceNotes,
		Caller:       content.Caller{Role: "student"},
	})
	if !errors.Is(err, ErrEmailRequired) {
		t.Fatalf("expected ErrEmailRequired, got %v", err)
	}
	if len(deliver.subs) != 0 {
		t.Errorf("no delivery may be attempted without a recipient, got %d", len(deliver.subs))
	}
}

func TestRun_PrivilegedLocalDownload(t *testing.T) {
	source := &fakeSource{items: sampleItems(), hier: sampleHierarchy()}
	deliver := &fakeDeliverer{}
	exp := newTestExporter(t, source, deliver, Config{})

	res, err := exp.Run(context.Background(), Request{
		LessonID:     "lesson-1",
		ResourceType: content.ResourceNotes,
		Caller:       content.Caller{Role: "teacher", CanEdit: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Mode != ModeLocal {
		t.Errorf("expected local mode, got %s", res.Mode)
	}
	if res.Status != StatusSucceeded {
		t.Errorf("expected succeeded, got %s", res.Status)
	}
	if !bytes.HasPrefix(res.PDF, []byte("%PDF")) {
		t.Error("expected result to carry the PDF bytes")
	}
	if res.PageCount < 1 {
		t.Errorf("expected at least one page, got %d", res.PageCount)
	}
	if source.incrCalls != 1 {
		t.Errorf("expected counter incremented exactly once, got %d", source.incrCalls)
	}
	if len(deliver.subs) != 0 {
		t.Errorf("privileged export must not go through delivery, got %d submissions", len(deliver.subs))
	}
}

func TestRun_RemoteDelivery(t *testing.T) {
	source := &fakeSource{items: sampleItems(), hier: sampleHierarchy()}
	deliver := &fakeDeliverer{ack: &delivery.Ack{Success: true}}
	exp := newTestExporter(t, source, deliver, Config{SenderName: "Edupress"})

	res, err := exp.Run(context.Background(), Request{
		LessonID:     "lesson-1",
		ResourceType: content.ResourceWorksheet,
		Caller:       content.Caller{Role: "student", Email: "amina@example.org"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Mode != ModeRemote {
		t.Errorf("expected remote mode, got %s", res.Mode)
	}
	if res.Recipient != "amina@example.org" {
		t.Errorf("unexpected recipient %q", res.Recipient)
	}
	if len(res.PDF) != 0 {
		t.Error("remote result must not carry the PDF bytes")
	}
	if len(deliver.subs) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(deliver.subs))
	}
	sub := deliver.subs[0]
	if sub.Recipient != "amina@example.org" {
		t.Errorf("submission recipient %q", sub.Recipient)
	}
	if sub.SenderName != "Edupress" {
		t.Errorf("submission sender %q", sub.SenderName)
	}
	if !bytes.HasPrefix(sub.PDF, []byte("%PDF")) {
		t.Error("submission must carry the PDF bytes")
	}
	if source.incrCalls != 1 {
		t.Errorf("expected counter incremented once after acceptance, got %d", source.incrCalls)
	}
}

func TestRun_DeliveryRejected(t *testing.T) {
	source := &fakeSource{items: sampleItems(), hier: sampleHierarchy()}
	deliver := &fakeDeliverer{ack: &delivery.Ack{Success: false, Message: "mailbox full"}}
	exp := newTestExporter(t, source, deliver, Config{SupportContact: "help@edupress.example"})

	res, err := exp.Run(context.Background(), Request{
		LessonID:     "lesson-1",
		ResourceType: content.ResourceNotes,
		Caller:       content.Caller{Role: "student", Email: "amina@example.org"},
	})
	if err == nil {
		t.Fatal("expected an error on rejected delivery")
	}
	if res == nil || res.Status != StatusFailed {
		t.Fatalf("expected a failed result, got %+v", res)
	}
	if res.SupportContact != "help@edupress.example" {
		t.Errorf("expected support contact surfaced, got %q", res.SupportContact)
	}
	if source.incrCalls != 0 {
		t.Errorf("counter must not move on rejected delivery, got %d", source.incrCalls)
	}
}

func TestRun_DeliveryTransportFailure(t *testing.T) {
	source := &fakeSource{items: sampleItems(), hier: sampleHierarchy()}
	deliver := &fakeDeliverer{err: errors.New("connection reset")}
	exp := newTestExporter(t, source, deliver, Config{SupportContact: "help@edupress.example"})

	res, err := exp.Run(context.Background(), Request{
		LessonID:     "lesson-1",
		ResourceType: content.ResourceNotes,
		Caller:       content.Caller{Role: "student", Email: "amina@example.org"},
	})
	if err == nil {
		t.Fatal("expected an error on failed delivery")
	}
	if res.Status != StatusFailed {
		t.Errorf("expected failed status, got %s", res.Status)
	}
	if source.incrCalls != 0 {
		t.Errorf("counter must not move on failed delivery, got %d", source.incrCalls)
	}
}

func TestRun_HierarchyFailureDegrades(t *testing.T) {
	source := &fakeSource{items: sampleItems(), hierErr: errors.New("upstream down")}
	deliver := &fakeDeliverer{}
	exp := newTestExporter(t, source, deliver, Config{})

	res, err := exp.Run(context.Background(), Request{
		LessonID:     "lesson-1",
		ResourceType: content.ResourceNotes,
		Caller:       content.Caller{Role: "admin"},
	})
	if err != nil {
		t.Fatalf("hierarchy failure must not fail the export: %v", err)
	}
	if res.Status != StatusSucceeded {
		t.Errorf("expected succeeded, got %s", res.Status)
	}
}

func TestRun_LogoFailureDegrades(t *testing.T) {
	source := &fakeSource{items: sampleItems(), hier: sampleHierarchy(), logoErr: errors.New("404")}
	deliver := &fakeDeliverer{}
	exp := newTestExporter(t, source, deliver, Config{LogoURL: "https://cdn.example/logo.png"})

	res, err := exp.Run(context.Background(), Request{
		LessonID:     "lesson-1",
		ResourceType: content.ResourceNotes,
		Caller:       content.Caller{Role: "admin"},
	})
	if err != nil {
		t.Fatalf("logo failure must not fail the export: %v", err)
	}
	if res.Status != StatusSucceeded {
		t.Errorf("expected succeeded, got %s", res.Status)
	}
}

func TestRun_CounterFailureIsNotFatal(t *testing.T) {
	source := &fakeSource{items: sampleItems(), hier: sampleHierarchy(), incrErr: errors.New("counter down")}
	deliver := &fakeDeliverer{}
	exp := newTestExporter(t, source, deliver, Config{})

	res, err := exp.Run(context.Background(), Request{
		LessonID:     "lesson-1",
		ResourceType: content.ResourceNotes,
		Caller:       content.Caller{Role: "admin"},
	})
	if err != nil {
		t.Fatalf("counter failure must not fail the export: %v", err)
	}
	if res.Status != StatusSucceeded {
		t.Errorf("expected succeeded, got %s", res.Status)
	}
}

func TestRun_BusyStagingRejectsSecondJob(t *testing.T) {
	engine, err := measure.NewEngine()
	if err != nil {
		t.Fatalf("engine init: %v", err)
	}
	staging := NewStaging(engine)
	source := &fakeSource{items: sampleItems(), hier: sampleHierarchy()}
	exp := NewExporter(source, &fakeDeliverer{}, staging, testLogger(), Config{})

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- staging.With("other-job", func(*measure.Engine) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	_, err = exp.Run(context.Background(), Request{
		LessonID:     "lesson-1",
		ResourceType: content.ResourceNotes,
		Caller:       content.Caller{Role: "admin"},
	})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy while the surface is held, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("holder job failed: %v", err)
	}

	// The surface is free again; the same request now runs to completion.
	res, err := exp.Run(context.Background(), Request{
		LessonID:     "lesson-1",
		ResourceType: content.ResourceNotes,
		Caller:       content.Caller{Role: "admin"},
	})
	if err != nil {
		t.Fatalf("unexpected error after release: %v", err)
	}
	if res.Status != StatusSucceeded {
		t.Errorf("expected succeeded, got %s", res.Status)
	}
}
