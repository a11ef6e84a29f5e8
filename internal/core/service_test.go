package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/vizboard/internal/chart"
	"github.com/JonMunkholm/vizboard/internal/dataset"
	"github.com/JonMunkholm/vizboard/internal/panel"
)

const salesCSV = "city,revenue\nA,10\nA,20\nB,30\n"

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(Config{
		MaxConcurrentUploads: 2,
		MaxUploadWait:        time.Second,
		PreviewRows:          2,
		ChartWidth:           200,
		ChartHeight:          150,
	}, chart.NewRenderer(chart.Options{Width: 200, Height: 150}), nil)
}

func TestEnsureSession(t *testing.T) {
	svc := newTestService(t)

	a := svc.EnsureSession("")
	if a.ID == "" {
		t.Fatal("EnsureSession(\"\") should assign an id")
	}
	if b := svc.EnsureSession(a.ID); b != a {
		t.Error("EnsureSession(existing) returned a different session")
	}
	if c := svc.EnsureSession("unknown"); c.ID == "unknown" || c == a {
		t.Error("EnsureSession(unknown) should create a fresh session with a new id")
	}
	if got := svc.SessionCount(); got != 2 {
		t.Errorf("SessionCount = %d, want 2", got)
	}
}

func TestLoadDataset_InstallsBoard(t *testing.T) {
	svc := newTestService(t)
	sess := svc.EnsureSession("")

	rec, err := svc.LoadDataset(context.Background(), sess.ID, "sales.csv", strings.NewReader(salesCSV))
	if err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
	if rec.Status != UploadSucceeded || rec.Rows != 3 || rec.Columns != 2 {
		t.Errorf("record = %+v", rec)
	}

	v, err := svc.View(sess.ID)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if v.Dataset == nil || v.Dataset.Name != "sales.csv" {
		t.Fatalf("View().Dataset = %+v", v.Dataset)
	}
	if len(v.Dataset.Preview.Rows) != 2 {
		t.Errorf("preview rows = %d, want 2", len(v.Dataset.Preview.Rows))
	}
	if len(v.Panels) != panel.Count {
		t.Fatalf("len(Panels) = %d, want %d", len(v.Panels), panel.Count)
	}
	if v.Panels[0].Kind != chart.Histogram || v.Panels[0].Columns[0] != "revenue" {
		t.Errorf("panel 0 = %+v, want histogram of revenue", v.Panels[0])
	}
}

func TestLoadDataset_FailureKeepsPreviousDataset(t *testing.T) {
	svc := newTestService(t)
	sess := svc.EnsureSession("")
	ctx := context.Background()

	if _, err := svc.LoadDataset(ctx, sess.ID, "sales.csv", strings.NewReader(salesCSV)); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdatePanel(sess.ID, 0, panel.Selection{Kind: chart.Barplot}); err != nil {
		t.Fatal(err)
	}

	rec, err := svc.LoadDataset(ctx, sess.ID, "broken.xlsx", strings.NewReader("definitely not a zip"))
	if !errors.Is(err, dataset.ErrInvalidFormat) {
		t.Fatalf("LoadDataset() error = %v, want ErrInvalidFormat", err)
	}
	if rec.Status != UploadFailed || rec.ErrorCode != "FILE002" {
		t.Errorf("record = %+v, want failed FILE002", rec)
	}

	v, _ := svc.View(sess.ID)
	if v.Dataset == nil || v.Dataset.Name != "sales.csv" {
		t.Fatalf("dataset replaced by failed upload: %+v", v.Dataset)
	}
	if v.Panels[0].Kind != chart.Barplot {
		t.Errorf("panel 0 kind = %v, want barplot to survive failed upload", v.Panels[0].Kind)
	}
}

func TestLoadDataset_ReuploadResetsPanels(t *testing.T) {
	svc := newTestService(t)
	sess := svc.EnsureSession("")
	ctx := context.Background()

	if _, err := svc.LoadDataset(ctx, sess.ID, "sales.csv", strings.NewReader(salesCSV)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < panel.Count; i++ {
		if err := svc.UpdatePanel(sess.ID, i, panel.Selection{Kind: chart.PieChart}); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := svc.LoadDataset(ctx, sess.ID, "scores.csv", strings.NewReader("name,score,age\nx,1,30\ny,2,40\n")); err != nil {
		t.Fatal(err)
	}

	v, _ := svc.View(sess.ID)
	if v.Dataset.Name != "scores.csv" {
		t.Errorf("dataset = %q, want scores.csv", v.Dataset.Name)
	}
	if got := v.Dataset.Preview.Header; len(got) != 3 || got[0] != "name" {
		t.Errorf("preview header = %v, want the new dataset's columns", got)
	}
	for _, p := range v.Panels {
		if p.Kind != chart.Histogram || p.Columns[0] != "score" {
			t.Errorf("panel %d = %v %v, want histogram of score", p.Index, p.Kind, p.Columns)
		}
	}
}

func TestLoadDataset_UnknownSession(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.LoadDataset(context.Background(), "missing", "a.csv", strings.NewReader(salesCSV))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("LoadDataset() error = %v, want ErrSessionNotFound", err)
	}
}

func TestLoadDataset_RecordsHistory(t *testing.T) {
	svc := newTestService(t)
	sess := svc.EnsureSession("")
	ctx := context.Background()

	svc.LoadDataset(ctx, sess.ID, "good.csv", strings.NewReader(salesCSV))
	svc.LoadDataset(ctx, sess.ID, "empty.csv", strings.NewReader(""))

	recs, err := svc.RecentUploads(ctx, 10)
	if err != nil {
		t.Fatalf("RecentUploads() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(RecentUploads) = %d, want 2", len(recs))
	}
	if recs[0].FileName != "empty.csv" || recs[0].Status != UploadFailed || recs[0].ErrorCode != "FILE005" {
		t.Errorf("newest record = %+v", recs[0])
	}
	if recs[1].FileName != "good.csv" || recs[1].Status != UploadSucceeded {
		t.Errorf("oldest record = %+v", recs[1])
	}
}

func TestLoadDataset_RejectedWhenBusy(t *testing.T) {
	svc := NewService(Config{MaxConcurrentUploads: 1, MaxUploadWait: 20 * time.Millisecond},
		chart.NewRenderer(chart.Options{}), nil)
	sess := svc.EnsureSession("")

	if !svc.Limiter().TryAcquire() {
		t.Fatal("could not occupy the only upload slot")
	}
	defer svc.Limiter().Release()

	rec, err := svc.LoadDataset(context.Background(), sess.ID, "a.csv", strings.NewReader(salesCSV))
	if !errors.Is(err, ErrTooManyUploads) {
		t.Fatalf("LoadDataset() error = %v, want ErrTooManyUploads", err)
	}
	if rec.Status != UploadRejected {
		t.Errorf("Status = %q, want rejected", rec.Status)
	}
	if sess.HasDataset() {
		t.Error("rejected upload installed a dataset")
	}
}

func TestPanelOperations_RequireDataset(t *testing.T) {
	svc := newTestService(t)
	sess := svc.EnsureSession("")

	if err := svc.UpdatePanel(sess.ID, 0, panel.Selection{Kind: chart.Countplot}); !errors.Is(err, ErrNoDataset) {
		t.Errorf("UpdatePanel() error = %v, want ErrNoDataset", err)
	}
	if _, err := svc.RenderPanel(sess.ID, 0); !errors.Is(err, ErrNoDataset) {
		t.Errorf("RenderPanel() error = %v, want ErrNoDataset", err)
	}

	v, err := svc.View(sess.ID)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if v.Dataset != nil || len(v.Panels) != 0 {
		t.Errorf("View() before upload = %+v, want no dataset or panels", v)
	}
}

func TestRenderPanel_Barplot(t *testing.T) {
	svc := newTestService(t)
	sess := svc.EnsureSession("")
	if _, err := svc.LoadDataset(context.Background(), sess.ID, "sales.csv", strings.NewReader(salesCSV)); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdatePanel(sess.ID, 4, panel.Selection{Kind: chart.Barplot}); err != nil {
		t.Fatal(err)
	}

	res, err := svc.RenderPanel(sess.ID, 4)
	if err != nil {
		t.Fatalf("RenderPanel() error = %v", err)
	}
	if res.Chart == nil || len(res.Chart.Bars) != 2 {
		t.Fatalf("RenderPanel() = %+v", res)
	}
	if res.Chart.Bars[0].Value != 15 || res.Chart.Bars[1].Value != 30 {
		t.Errorf("bars = %+v, want A=15 B=30", res.Chart.Bars)
	}
}

func TestPanelImage_PlaceholderWithoutNumericalColumns(t *testing.T) {
	svc := newTestService(t)
	sess := svc.EnsureSession("")
	if _, err := svc.LoadDataset(context.Background(), sess.ID, "names.csv", strings.NewReader("first,last\nada,lovelace\n")); err != nil {
		t.Fatal(err)
	}

	res, err := svc.RenderPanel(sess.ID, 0)
	if err != nil {
		t.Fatalf("RenderPanel() error = %v", err)
	}
	if res.Chart != nil || res.Message == "" {
		t.Errorf("RenderPanel() = %+v, want message and no chart", res)
	}

	img, err := svc.PanelImage(sess.ID, 0)
	if err != nil {
		t.Fatalf("PanelImage() error = %v", err)
	}
	if !bytes.HasPrefix(img, []byte("\x89PNG")) {
		t.Error("PanelImage() did not return a PNG")
	}

	v, _ := svc.View(sess.ID)
	if v.Panels[0].Message == "" {
		t.Error("panel view should carry the no-eligible-columns message")
	}
	for _, k := range v.Panels[0].Kinds {
		wantEnabled := k.Kind == chart.Countplot || k.Kind == chart.PieChart
		if k.Enabled != wantEnabled {
			t.Errorf("kind %s Enabled = %v, want %v", k.Kind, k.Enabled, wantEnabled)
		}
	}

	if _, err := svc.PanelImage(sess.ID, panel.Count); !errors.Is(err, panel.ErrPanelIndex) {
		t.Errorf("PanelImage(out of range) error = %v, want ErrPanelIndex", err)
	}
}

func TestClearSession(t *testing.T) {
	svc := newTestService(t)
	sess := svc.EnsureSession("")
	if _, err := svc.LoadDataset(context.Background(), sess.ID, "sales.csv", strings.NewReader(salesCSV)); err != nil {
		t.Fatal(err)
	}

	if err := svc.ClearSession(sess.ID); err != nil {
		t.Fatalf("ClearSession() error = %v", err)
	}
	if sess.HasDataset() {
		t.Error("dataset still loaded after ClearSession")
	}
	if err := svc.ClearSession("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ClearSession(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func TestSweepSessions(t *testing.T) {
	svc := newTestService(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	old := svc.EnsureSession("")
	now = now.Add(90 * time.Minute)
	fresh := svc.EnsureSession("")
	now = now.Add(45 * time.Minute)

	if removed := svc.SweepSessions(time.Hour); removed != 1 {
		t.Errorf("SweepSessions() removed %d, want 1", removed)
	}
	if _, err := svc.Session(old.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("idle session survived the sweep")
	}
	if _, err := svc.Session(fresh.ID); err != nil {
		t.Errorf("recent session was swept: %v", err)
	}
}

func TestStartSessionSweeper_StopsOnCancel(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartSessionSweeper(ctx, 10*time.Millisecond, time.Hour)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("sweeper did not stop after cancellation")
	}
}

func TestSessionUploads_ScopedToSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := svc.EnsureSession("")
	b := svc.EnsureSession("")

	svc.LoadDataset(ctx, a.ID, "a1.csv", strings.NewReader(salesCSV))
	svc.LoadDataset(ctx, b.ID, "b1.csv", strings.NewReader(salesCSV))
	svc.LoadDataset(ctx, a.ID, "a2.csv", strings.NewReader(salesCSV))

	recs, err := svc.SessionUploads(ctx, a.ID, 0)
	if err != nil {
		t.Fatalf("SessionUploads() error = %v", err)
	}
	if len(recs) != 2 || recs[0].FileName != "a2.csv" || recs[1].FileName != "a1.csv" {
		t.Errorf("SessionUploads() = %+v, want a2.csv then a1.csv", recs)
	}

	recs, _ = svc.SessionUploads(ctx, a.ID, 1)
	if len(recs) != 1 {
		t.Errorf("SessionUploads(limit 1) len = %d, want 1", len(recs))
	}
}
