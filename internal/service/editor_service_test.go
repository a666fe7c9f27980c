package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/floorplan/internal/db"
	"github.com/vbonduro/floorplan/internal/domain"
	"github.com/vbonduro/floorplan/internal/editor"
	"github.com/vbonduro/floorplan/internal/geometry"
	"github.com/vbonduro/floorplan/internal/layout"
	"github.com/vbonduro/floorplan/internal/snapshotstore"
	"github.com/vbonduro/floorplan/internal/store"
)

var testStage = editor.Stage{Width: 800, Height: 600}

// stubDirectory is an in-memory tableDirectory that records every call.
type stubDirectory struct {
	tables     []domain.TableRecord
	listErr    error
	replaceErr error
	listCalls  int
	replaced   [][]domain.TableAssignment
}

func (s *stubDirectory) ListTables(_ context.Context, _ int64) ([]domain.TableRecord, error) {
	s.listCalls++
	return s.tables, s.listErr
}

func (s *stubDirectory) ReplaceTables(_ context.Context, _ int64, tables []domain.TableAssignment) ([]domain.ConfirmedCode, error) {
	s.replaced = append(s.replaced, tables)
	if s.replaceErr != nil {
		return nil, s.replaceErr
	}
	codes := make([]domain.ConfirmedCode, 0, len(tables))
	for i, t := range tables {
		codes = append(codes, domain.ConfirmedCode{ClientID: t.ClientID, Code: fmt.Sprintf("T%d", i+1)})
	}
	return codes, nil
}

type storedLayout struct {
	status domain.LayoutStatus
	doc    *layout.Document
}

// stubLayouts is an in-memory layoutPersistence.
type stubLayouts struct {
	versions layout.Versions
	getErr   error
	putErr   error
	puts     []storedLayout
}

func (s *stubLayouts) GetLayout(_ context.Context, _ int64) (layout.Versions, error) {
	return s.versions, s.getErr
}

func (s *stubLayouts) PutLayout(_ context.Context, _ int64, status domain.LayoutStatus, doc *layout.Document) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.puts = append(s.puts, storedLayout{status: status, doc: doc})
	return nil
}

// stubSnapshots is a minimal in-memory snapshotstore.SnapshotStore for tests.
type stubSnapshots struct {
	saved map[string][]byte
}

func newStubSnapshots() *stubSnapshots {
	return &stubSnapshots{saved: make(map[string][]byte)}
}

func (s *stubSnapshots) Put(_ context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.saved[name] = data
	return nil
}

func (s *stubSnapshots) Open(_ context.Context, name string) (io.ReadCloser, error) {
	data, ok := s.saved[name]
	if !ok {
		return nil, snapshotstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *stubSnapshots) Delete(_ context.Context, name string) error {
	if _, ok := s.saved[name]; !ok {
		return snapshotstore.ErrNotFound
	}
	delete(s.saved, name)
	return nil
}

type editorFixture struct {
	svc       *EditorService
	areaID    int64
	directory *stubDirectory
	layouts   *stubLayouts
	snapshots *stubSnapshots
}

func newEditorFixture(t *testing.T, opts Options) *editorFixture {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })

	areas := store.NewAreaStore(d)
	area, err := areas.Create(context.Background(), "Main Room")
	require.NoError(t, err)

	f := &editorFixture{
		areaID:    area.ID,
		directory: &stubDirectory{},
		layouts:   &stubLayouts{},
		snapshots: newStubSnapshots(),
	}
	f.svc = NewEditorService(areas, f.directory, f.layouts, f.snapshots, opts, slog.Default())
	return f
}

func (f *editorFixture) open(t *testing.T, cb editor.Callbacks) *editor.Session {
	t.Helper()
	sess, err := f.svc.Open(context.Background(), f.areaID, testStage, cb)
	require.NoError(t, err)
	return sess
}

func addTable(t *testing.T, sess *editor.Session, name string, at geometry.Point) layout.Item {
	t.Helper()
	it, err := sess.Controller().AddItem(layout.KindRoundTable, at, layout.Defaults{})
	require.NoError(t, err)
	it, err = sess.Controller().UpdateItem(it.ID, layout.Patch{Name: &name})
	require.NoError(t, err)
	return it
}

func TestEditorOpenEmptyArea(t *testing.T) {
	f := newEditorFixture(t, Options{GridSize: 25, DefaultSeats: 6})

	sess := f.open(t, editor.Callbacks{})
	doc := sess.Document()

	assert.Empty(t, doc.Items)
	assert.Equal(t, layout.Canvas{Width: 800, Height: 600}, doc.Canvas)
	assert.Equal(t, 25.0, doc.GridSize)
	assert.Equal(t, 6, doc.DefaultSeats())
	assert.Equal(t, 1, f.directory.listCalls)
}

func TestEditorOpenAreaNotFound(t *testing.T) {
	f := newEditorFixture(t, Options{})

	sess, err := f.svc.Open(context.Background(), f.areaID+100, testStage, editor.Callbacks{})
	assert.ErrorIs(t, err, ErrAreaNotFound)
	assert.Nil(t, sess)
}

func TestEditorOpenReconcilesDirectory(t *testing.T) {
	f := newEditorFixture(t, Options{})
	stored := layout.New(800, 600)
	stored.Items = []layout.Item{{
		ID: "a", Kind: layout.KindRoundTable, X: 300, Y: 300, Width: 80, Height: 80,
		Name: "Window", Code: " t1 ",
	}}
	f.layouts.versions = layout.Versions{Published: stored}
	f.directory.tables = []domain.TableRecord{
		{Code: "T1", Seats: 4, Status: domain.TableStatusAvailable},
		{Code: "T2", Seats: 6, Status: domain.TableStatusAvailable},
	}

	doc := f.open(t, editor.Callbacks{}).Document()

	require.Len(t, doc.Items, 2)
	require.NotNil(t, doc.Items[0].Seats)
	assert.Equal(t, 4, *doc.Items[0].Seats, "seats back-filled")
	assert.Equal(t, "Window", doc.Items[0].Name)
	assert.Equal(t, "T2", doc.Items[1].Code)
	assert.Equal(t, layout.KindRoundTable, doc.Items[1].Kind)
	assert.Nil(t, stored.Items[0].Seats, "stored document is not mutated")
}

func TestEditorOpenPrefersDraft(t *testing.T) {
	f := newEditorFixture(t, Options{})
	published := layout.New(800, 600)
	draft := layout.New(800, 600)
	_, err := draft.AddItem(layout.KindWall, geometry.Point{X: 100, Y: 100}, layout.Defaults{})
	require.NoError(t, err)
	f.layouts.versions = layout.Versions{Draft: draft, Published: published}

	doc := f.open(t, editor.Callbacks{}).Document()

	require.Len(t, doc.Items, 1)
	assert.Equal(t, layout.KindWall, doc.Items[0].Kind)
}

func TestEditorOpenScalesToStage(t *testing.T) {
	f := newEditorFixture(t, Options{})
	stored := layout.New(400, 300)
	_, err := stored.AddItem(layout.KindChair, geometry.Point{X: 100, Y: 100}, layout.Defaults{})
	require.NoError(t, err)
	f.layouts.versions = layout.Versions{Published: stored}

	doc := f.open(t, editor.Callbacks{}).Document()

	require.Len(t, doc.Items, 1)
	assert.Equal(t, 200.0, doc.Items[0].X)
	assert.Equal(t, 200.0, doc.Items[0].Y)
	assert.Equal(t, 64.0, doc.Items[0].Width)
	assert.Equal(t, layout.Canvas{Width: 800, Height: 600}, doc.Canvas)
}

func TestEditorOpenLoadFailureStillReturnsSession(t *testing.T) {
	f := newEditorFixture(t, Options{})
	f.directory.listErr = errors.New("directory down")

	sess, err := f.svc.Open(context.Background(), f.areaID, testStage, editor.Callbacks{})

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, f.areaID, loadErr.AreaID)
	require.NotNil(t, sess)
	assert.Empty(t, sess.Document().Items)
}

func TestEditorPublishRejectsLayoutWithoutTables(t *testing.T) {
	f := newEditorFixture(t, Options{})
	sess := f.open(t, editor.Callbacks{})
	_, err := sess.Controller().AddItem(layout.KindChair, geometry.Point{X: 50, Y: 50}, layout.Defaults{})
	require.NoError(t, err)

	err = f.svc.Publish(context.Background(), sess)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "tables", verr.Field)
	assert.ErrorIs(t, err, ErrNoTables)
	assert.Empty(t, f.directory.replaced, "no directory call")
	assert.Empty(t, f.layouts.puts, "no layout call")
}

func TestEditorPublishRejectsUnnamedTable(t *testing.T) {
	f := newEditorFixture(t, Options{})
	saved := 0
	sess := f.open(t, editor.Callbacks{OnSaved: func() { saved++ }})
	addTable(t, sess, "1", geometry.Point{X: 100, Y: 100})
	blank := addTable(t, sess, "  ", geometry.Point{X: 300, Y: 100})

	err := f.svc.Publish(context.Background(), sess)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
	assert.Equal(t, StepNaming, verr.Step)
	assert.Equal(t, blank.ID, verr.ItemID)
	assert.Empty(t, f.directory.replaced)
	assert.Empty(t, f.layouts.puts)
	assert.Zero(t, saved)
}

func TestEditorPublishMergesCodesAndStoresLayout(t *testing.T) {
	f := newEditorFixture(t, Options{DefaultSeats: 4})
	saved := 0
	sess := f.open(t, editor.Callbacks{OnSaved: func() { saved++ }})
	first := addTable(t, sess, "Window", geometry.Point{X: 100, Y: 100})
	second := addTable(t, sess, "Bar", geometry.Point{X: 300, Y: 100})
	seats := 8
	_, err := sess.Controller().UpdateItem(second.ID, layout.Patch{Seats: &seats})
	require.NoError(t, err)

	require.NoError(t, f.svc.Publish(context.Background(), sess))

	require.Len(t, f.directory.replaced, 1)
	assert.Equal(t, []domain.TableAssignment{
		{ClientID: first.ID, Name: "Window", Seats: 4},
		{ClientID: second.ID, Name: "Bar", Seats: 8},
	}, f.directory.replaced[0])

	got, _ := sess.Document().Find(first.ID)
	assert.Equal(t, "T1", got.Code)
	got, _ = sess.Document().Find(second.ID)
	assert.Equal(t, "T2", got.Code)

	require.Len(t, f.layouts.puts, 1)
	put := f.layouts.puts[0]
	assert.Equal(t, domain.LayoutPublished, put.status)
	assert.Equal(t, "T1", put.doc.Items[0].Code)
	assert.Equal(t, layout.Canvas{Width: 800, Height: 600}, put.doc.Canvas)

	assert.Equal(t, 1, saved)
	assert.Contains(t, f.snapshots.saved, SnapshotName(f.areaID))
}

func TestEditorPublishDirectoryFailure(t *testing.T) {
	f := newEditorFixture(t, Options{})
	sess := f.open(t, editor.Callbacks{})
	addTable(t, sess, "1", geometry.Point{X: 100, Y: 100})
	f.directory.replaceErr = errors.New("503")

	err := f.svc.Publish(context.Background(), sess)

	var perr *PublishError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PhaseDirectory, perr.Phase)
	assert.True(t, perr.Consistent)
	assert.Empty(t, f.layouts.puts, "layout is not stored after a directory failure")
}

func TestEditorPublishLayoutFailureLeavesDirectoryUpdated(t *testing.T) {
	f := newEditorFixture(t, Options{})
	saved := 0
	sess := f.open(t, editor.Callbacks{OnSaved: func() { saved++ }})
	table := addTable(t, sess, "1", geometry.Point{X: 100, Y: 100})
	f.layouts.putErr = errors.New("disk full")

	err := f.svc.Publish(context.Background(), sess)

	var perr *PublishError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PhaseLayout, perr.Phase)
	assert.False(t, perr.Consistent)
	assert.Len(t, f.directory.replaced, 1, "directory write is not rolled back")

	got, _ := sess.Document().Find(table.ID)
	assert.Equal(t, "T1", got.Code, "confirmed codes stay on the session for a retry")
	assert.Zero(t, saved)
	assert.Empty(t, f.snapshots.saved)
}

func TestEditorPublishScalesToCanonicalCanvas(t *testing.T) {
	f := newEditorFixture(t, Options{Canonical: editor.Stage{Width: 400, Height: 300}})
	sess := f.open(t, editor.Callbacks{})
	addTable(t, sess, "1", geometry.Point{X: 200, Y: 200})

	require.NoError(t, f.svc.Publish(context.Background(), sess))

	require.Len(t, f.layouts.puts, 1)
	doc := f.layouts.puts[0].doc
	assert.Equal(t, layout.Canvas{Width: 400, Height: 300}, doc.Canvas)
	assert.Equal(t, 100.0, doc.Items[0].X)
	assert.Equal(t, 200.0, sess.Document().Items[0].X, "session keeps stage coordinates")
}

func TestEditorSaveDraft(t *testing.T) {
	f := newEditorFixture(t, Options{})
	sess := f.open(t, editor.Callbacks{})
	_, err := sess.Controller().AddItem(layout.KindLabel, geometry.Point{X: 60, Y: 60}, layout.Defaults{Label: "Kitchen"})
	require.NoError(t, err)

	require.NoError(t, f.svc.SaveDraft(context.Background(), sess))

	require.Len(t, f.layouts.puts, 1)
	assert.Equal(t, domain.LayoutDraft, f.layouts.puts[0].status)
	assert.Empty(t, f.directory.replaced, "drafts never reach the directory")
}

func TestEditorCloseDiscardsSession(t *testing.T) {
	f := newEditorFixture(t, Options{})
	closed := 0
	sess := f.open(t, editor.Callbacks{OnClose: func() { closed++ }})
	addTable(t, sess, "1", geometry.Point{X: 100, Y: 100})

	f.svc.Close(sess)
	f.svc.Close(sess)

	assert.Equal(t, 1, closed)
	assert.ErrorIs(t, f.svc.Publish(context.Background(), sess), ErrSessionClosed)
	assert.ErrorIs(t, f.svc.SaveDraft(context.Background(), sess), ErrSessionClosed)
	assert.Empty(t, f.directory.replaced)
}

func TestEditorExport(t *testing.T) {
	f := newEditorFixture(t, Options{PixelRatio: 1})
	sess := f.open(t, editor.Callbacks{})
	addTable(t, sess, "1", geometry.Point{X: 100, Y: 100})

	var buf bytes.Buffer
	require.NoError(t, f.svc.Export(sess, &buf, false))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
	r, _, _, _ := img.At(0, 590).RGBA()
	assert.Equal(t, uint32(255), r>>8, "no grid unless asked for")

	buf.Reset()
	require.NoError(t, f.svc.Export(sess, &buf, true))
	img, err = png.Decode(&buf)
	require.NoError(t, err)
	r, _, _, _ = img.At(0, 590).RGBA()
	assert.Equal(t, uint32(238), r>>8, "grid line at x=0")
}

func TestEditorOpenSnapshot(t *testing.T) {
	f := newEditorFixture(t, Options{PixelRatio: 1})
	ctx := context.Background()

	_, err := f.svc.OpenSnapshot(ctx, f.areaID)
	assert.ErrorIs(t, err, snapshotstore.ErrNotFound)

	sess := f.open(t, editor.Callbacks{})
	addTable(t, sess, "1", geometry.Point{X: 100, Y: 100})
	require.NoError(t, f.svc.Publish(ctx, sess))

	rc, err := f.svc.OpenSnapshot(ctx, f.areaID)
	require.NoError(t, err)
	defer rc.Close()
	_, err = png.Decode(rc)
	assert.NoError(t, err)
}
