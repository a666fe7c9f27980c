package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/floorplan/internal/domain"
	"github.com/vbonduro/floorplan/internal/editor"
	"github.com/vbonduro/floorplan/internal/export"
	"github.com/vbonduro/floorplan/internal/layout"
	"github.com/vbonduro/floorplan/internal/reconcile"
	"github.com/vbonduro/floorplan/internal/snapshotstore"
)

// areaLookup is the subset of store.AreaStore that EditorService requires.
type areaLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Area, error)
	Touch(ctx context.Context, id int64) error
}

// tableDirectory is the authoritative list of table codes used by order-taking.
type tableDirectory interface {
	ListTables(ctx context.Context, areaID int64) ([]domain.TableRecord, error)
	ReplaceTables(ctx context.Context, areaID int64, tables []domain.TableAssignment) ([]domain.ConfirmedCode, error)
}

// layoutPersistence stores draft and published floor-plan documents.
type layoutPersistence interface {
	GetLayout(ctx context.Context, areaID int64) (layout.Versions, error)
	PutLayout(ctx context.Context, areaID int64, status domain.LayoutStatus, doc *layout.Document) error
}

type Options struct {
	Snap         bool
	GridSize     float64
	DefaultSeats int
	PixelRatio   float64
	// Canonical, when set, is the canvas size published documents are scaled
	// to. Otherwise they keep the live stage size.
	Canonical editor.Stage
}

type EditorService struct {
	areaStore areaLookup
	directory tableDirectory
	layouts   layoutPersistence
	snapshots snapshotstore.SnapshotStore
	opts      Options
	logger    *slog.Logger
}

// NewEditorService wires the editor to its collaborators. snapshots may be nil.
func NewEditorService(
	areaStore areaLookup,
	directory tableDirectory,
	layouts layoutPersistence,
	snapshots snapshotstore.SnapshotStore,
	opts Options,
	logger *slog.Logger,
) *EditorService {
	return &EditorService{
		areaStore: areaStore,
		directory: directory,
		layouts:   layouts,
		snapshots: snapshots,
		opts:      opts,
		logger:    logger,
	}
}

func (s *EditorService) newDocument(stage editor.Stage) *layout.Document {
	doc := layout.New(stage.Width, stage.Height)
	if s.opts.GridSize > 0 {
		doc.GridSize = s.opts.GridSize
	}
	if s.opts.DefaultSeats > 0 {
		doc.Meta.DefaultSeats = s.opts.DefaultSeats
	}
	return doc
}

// Open starts an editing session on an area. The table list and the stored
// layout are fetched concurrently and both must arrive before anything is
// merged. If either fetch fails the session is still returned, holding an
// empty document, together with a *LoadError.
func (s *EditorService) Open(ctx context.Context, areaID int64, stage editor.Stage, callbacks editor.Callbacks) (*editor.Session, error) {
	area, err := s.areaStore.GetByID(ctx, areaID)
	if err != nil {
		return nil, fmt.Errorf("failed to get area: %w", err)
	}
	if area == nil {
		return nil, ErrAreaNotFound
	}

	var (
		tables   []domain.TableRecord
		versions layout.Versions
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		tables, err = s.directory.ListTables(ctx, areaID)
		if err != nil {
			return fmt.Errorf("failed to list tables: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		versions, err = s.layouts.GetLayout(ctx, areaID)
		if err != nil {
			return fmt.Errorf("failed to get layout: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("editor load failed", "area_id", areaID, "error", err)
		sess := editor.NewSession(areaID, s.newDocument(stage), stage, s.opts.Snap, callbacks, s.logger)
		return sess, &LoadError{AreaID: areaID, Err: err}
	}

	doc := versions.Latest()
	if doc == nil {
		doc = s.newDocument(stage)
	} else {
		doc = s.prepare(doc, stage)
	}
	doc.Items = reconcile.Merge(doc.Items, tables, reconcile.Placement{CanvasWidth: stage.Width})

	s.logger.Info("editor opened", "area_id", areaID, "items", len(doc.Items), "directory_tables", len(tables))
	return editor.NewSession(areaID, doc, stage, s.opts.Snap, callbacks, s.logger), nil
}

// prepare fills fields older documents may lack and scales the stored
// document to the live stage.
func (s *EditorService) prepare(stored *layout.Document, stage editor.Stage) *layout.Document {
	doc := layout.ScaleTo(stored, stage.Width, stage.Height)
	if doc.Version == 0 {
		doc.Version = layout.FormatVersion
	}
	if doc.GridSize <= 0 {
		doc.GridSize = s.newDocument(stage).GridSize
	}
	if doc.Canvas.Width <= 0 || doc.Canvas.Height <= 0 {
		doc.Canvas = layout.Canvas{Width: stage.Width, Height: stage.Height}
	}
	if doc.Items == nil {
		doc.Items = []layout.Item{}
	}
	return doc
}

// Validate checks that the session's document can be published.
func Validate(doc *layout.Document) error {
	tables := doc.Tables()
	if len(tables) == 0 {
		return &ValidationError{Field: "tables", Step: StepLayout, Err: ErrNoTables}
	}
	for _, t := range tables {
		if strings.TrimSpace(t.Name) == "" {
			return &ValidationError{Field: "name", Step: StepNaming, ItemID: t.ID, Err: ErrMissingName}
		}
	}
	return nil
}

// flatten turns the table items into the rows sent to the directory.
func flatten(doc *layout.Document) []domain.TableAssignment {
	tables := doc.Tables()
	out := make([]domain.TableAssignment, 0, len(tables))
	for _, t := range tables {
		seats := doc.DefaultSeats()
		if t.Seats != nil {
			seats = *t.Seats
		}
		out = append(out, domain.TableAssignment{
			ClientID: t.ID,
			Name:     strings.TrimSpace(t.Name),
			Seats:    seats,
		})
	}
	return out
}

// outgoing is the document as it is written to Layout Persistence.
func (s *EditorService) outgoing(sess *editor.Session) *layout.Document {
	doc := sess.Document().Clone()
	doc.Canvas = layout.Canvas{Width: sess.Stage.Width, Height: sess.Stage.Height}
	if c := s.opts.Canonical; c.Width > 0 && c.Height > 0 {
		doc = layout.ScaleTo(doc, c.Width, c.Height)
	}
	return doc
}

// Publish validates the layout, replaces the area's tables in the directory,
// merges the confirmed codes into the session and stores the published
// document. The two writes are not atomic: when the second one fails the
// directory keeps the new tables and a *PublishError with Consistent=false is
// returned.
func (s *EditorService) Publish(ctx context.Context, sess *editor.Session) error {
	if sess.Closed() {
		return ErrSessionClosed
	}
	doc := sess.Document()
	if err := Validate(doc); err != nil {
		s.logger.Warn("publish rejected", "area_id", sess.AreaID, "error", err)
		return err
	}

	assignments := flatten(doc)
	codes, err := s.directory.ReplaceTables(ctx, sess.AreaID, assignments)
	if err != nil {
		s.logger.Error("publish failed", "area_id", sess.AreaID, "phase", PhaseDirectory, "error", err)
		return &PublishError{Phase: PhaseDirectory, Consistent: true, Err: err}
	}
	s.mergeCodes(sess, codes)

	out := s.outgoing(sess)
	if err := s.layouts.PutLayout(ctx, sess.AreaID, domain.LayoutPublished, out); err != nil {
		s.logger.Error("publish failed, directory and layout out of sync",
			"area_id", sess.AreaID, "phase", PhaseLayout, "error", err)
		return &PublishError{Phase: PhaseLayout, Consistent: false, Err: err}
	}

	if err := s.areaStore.Touch(ctx, sess.AreaID); err != nil {
		s.logger.Error("failed to touch area", "area_id", sess.AreaID, "error", err)
	}
	s.storeSnapshot(ctx, sess.AreaID, out)

	s.logger.Info("layout published", "area_id", sess.AreaID, "tables", len(assignments), "items", len(out.Items))
	sess.NotifySaved()
	return nil
}

func (s *EditorService) mergeCodes(sess *editor.Session, codes []domain.ConfirmedCode) {
	doc := sess.Document()
	for _, c := range codes {
		code := c.Code
		if _, err := doc.UpdateItem(c.ClientID, layout.Patch{Code: &code}); err != nil {
			s.logger.Warn("directory confirmed unknown table", "area_id", sess.AreaID, "client_id", c.ClientID)
		}
	}
}

// SaveDraft stores the session's document as the area's draft without
// touching the directory.
func (s *EditorService) SaveDraft(ctx context.Context, sess *editor.Session) error {
	if sess.Closed() {
		return ErrSessionClosed
	}
	if err := s.layouts.PutLayout(ctx, sess.AreaID, domain.LayoutDraft, s.outgoing(sess)); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	s.logger.Info("draft saved", "area_id", sess.AreaID)
	return nil
}

// Close discards the session and everything it did not publish.
func (s *EditorService) Close(sess *editor.Session) {
	sess.Close()
	s.logger.Info("editor closed", "area_id", sess.AreaID, "session_id", sess.ID)
}

// Export writes a PNG snapshot of the session's current document, optionally
// over the snapping grid.
func (s *EditorService) Export(sess *editor.Session, w io.Writer, grid bool) error {
	return export.EncodePNG(w, sess.Document(), export.Options{PixelRatio: s.opts.PixelRatio, Grid: grid})
}

func SnapshotName(areaID int64) string {
	return fmt.Sprintf("area_%d", areaID)
}

// OpenSnapshot returns the preview of the area's last published layout.
func (s *EditorService) OpenSnapshot(ctx context.Context, areaID int64) (io.ReadCloser, error) {
	if s.snapshots == nil {
		return nil, snapshotstore.ErrNotFound
	}
	return s.snapshots.Open(ctx, SnapshotName(areaID))
}

// storeSnapshot keeps a preview of a published layout. Failures are logged
// only: the layout itself is already stored.
func (s *EditorService) storeSnapshot(ctx context.Context, areaID int64, doc *layout.Document) {
	if s.snapshots == nil {
		return
	}
	var buf bytes.Buffer
	if err := export.EncodePNG(&buf, doc, export.Options{PixelRatio: s.opts.PixelRatio}); err != nil {
		s.logger.Error("failed to render snapshot", "area_id", areaID, "error", err)
		return
	}
	if err := s.snapshots.Put(ctx, SnapshotName(areaID), &buf); err != nil {
		s.logger.Error("failed to store snapshot", "area_id", areaID, "error", err)
	}
}
