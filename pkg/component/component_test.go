package component

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/persist"
	"github.com/goliatone/go-resumekit/pkg/render"
	"github.com/goliatone/go-resumekit/pkg/resolver"
	"github.com/goliatone/go-resumekit/pkg/testsupport"
)

// textRenderer prints the parts of the view state tests assert on.
type textRenderer struct{ name string }

func (r textRenderer) Name() string        { return r.name }
func (r textRenderer) ContentType() string { return "text/plain" }
func (r textRenderer) Render(_ context.Context, doc model.Document, opts render.RenderOptions) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "template=%s name=%s skills=%d", r.name, doc.FullName, len(doc.Skills))
	if opts.Editing != nil {
		fmt.Fprintf(&b, " editing=%s:%q", opts.Editing.Path, opts.Editing.Value)
	}
	for path, messages := range opts.Errors {
		fmt.Fprintf(&b, " error[%s]=%s", path, strings.Join(messages, ";"))
	}
	if opts.Flash != "" {
		fmt.Fprintf(&b, " flash=%q", opts.Flash)
	}
	return []byte(b.String()), nil
}

func newResolver() *resolver.Resolver {
	r := resolver.New()
	for _, name := range []string{"ModernResume", "ClassicResume"} {
		name := name
		r.MustRegister(name, func(context.Context) (render.Renderer, error) {
			return textRenderer{name: name}, nil
		})
	}
	return r
}

func newComponent(t *testing.T, options ...Option) *Component {
	t.Helper()
	options = append([]Option{WithResolver(newResolver())}, options...)
	return New(context.Background(), testsupport.SampleDocument(), "ModernResume", options...)
}

func dispatch(t *testing.T, c *Component, actions ...Action) {
	t.Helper()
	for _, action := range actions {
		if err := c.Dispatch(context.Background(), action); err != nil {
			t.Fatalf("dispatch %s: %v", ActionName(action), err)
		}
	}
}

func view(t *testing.T, c *Component) string {
	t.Helper()
	out, _, err := c.View(context.Background())
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	return string(out)
}

func skillNames(doc model.Document) []string {
	names := make([]string, 0, len(doc.Skills))
	for _, skill := range doc.Skills {
		names = append(names, skill.Name)
	}
	return names
}

func TestCommit_TrimsAndReturnsToViewing(t *testing.T) {
	c := newComponent(t)

	dispatch(t, c,
		Activate{Path: model.Scalar(model.FieldFullName)},
		Input{Value: "  Ada Lovelace  "},
		Commit{},
	)

	if got := c.Document().FullName; got != "Ada Lovelace" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if _, editing := c.Session(); editing {
		t.Fatal("expected Viewing state after commit")
	}
	if strings.Contains(view(t, c), "editing=") {
		t.Fatal("view still shows an input")
	}
}

func TestActivate_PrefillsCurrentValue(t *testing.T) {
	c := newComponent(t)
	dispatch(t, c, Activate{Path: model.Scalar(model.FieldEmail)})

	session, ok := c.Session()
	if !ok {
		t.Fatal("expected an edit session")
	}
	if session.Original != "ada@example.com" || session.Live != "ada@example.com" {
		t.Fatalf("unexpected session %+v", session)
	}
	testsupport.AssertContains(t, view(t, c), `editing=email:"ada@example.com"`)
}

func TestCommit_InvalidInputKeepsEditing(t *testing.T) {
	c := newComponent(t)
	dispatch(t, c, Activate{Path: model.Scalar(model.FieldEmail)}, Input{Value: "not-an-email"})

	err := c.Dispatch(context.Background(), Commit{})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if got := c.Document().Email; got != "ada@example.com" {
		t.Fatalf("invalid value reached the store: %q", got)
	}
	session, ok := c.Session()
	if !ok || session.Live != "not-an-email" {
		t.Fatalf("expected session kept with offending value, got %+v ok=%v", session, ok)
	}
	testsupport.AssertContains(t, view(t, c), `editing=email:"not-an-email"`, "error[email]=email address is not valid")

	dispatch(t, c, Input{Value: "ada@lovelace.dev"}, Commit{})
	if got := c.Document().Email; got != "ada@lovelace.dev" {
		t.Fatalf("expected corrected email, got %q", got)
	}
}

func TestActivate_SecondFieldCommitsFirst(t *testing.T) {
	c := newComponent(t)
	dispatch(t, c,
		Activate{Path: model.Scalar(model.FieldFullName)},
		Input{Value: " Augusta Ada King "},
		Activate{Path: model.Scalar(model.FieldSummary)},
	)

	if got := c.Document().FullName; got != "Augusta Ada King" {
		t.Fatalf("expected blur commit, got %q", got)
	}
	session, _ := c.Session()
	if session.Target != model.Scalar(model.FieldSummary) {
		t.Fatalf("expected summary session, got %+v", session)
	}
}

func TestActivate_BlockedByInvalidOpenSession(t *testing.T) {
	c := newComponent(t)
	dispatch(t, c, Activate{Path: model.Scalar(model.FieldFullName)}, Input{Value: "   "})

	if err := c.Dispatch(context.Background(), Activate{Path: model.Scalar(model.FieldEmail)}); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	session, _ := c.Session()
	if session.Target != model.Scalar(model.FieldFullName) {
		t.Fatalf("expected the invalid session to stay open, got %+v", session)
	}
}

func TestCommit_ListSubfieldLeavesSiblingsAlone(t *testing.T) {
	c := newComponent(t)
	doc := c.Document()
	doc.Experiences = append(doc.Experiences, model.Experience{ID: "exp-3", Name: "Third", Summary: "third summary"})
	c.Mount(context.Background(), doc, "ModernResume")
	before := c.Document()

	dispatch(t, c,
		Activate{Path: model.Item(model.CollectionExperiences, 1, model.KeyURL)},
		Input{Value: " https://example.com/new "},
		Commit{},
	)

	after := c.Document()
	if after.Experiences[1].URL != "https://example.com/new" {
		t.Fatalf("url not written: %+v", after.Experiences[1])
	}
	if diff := cmp.Diff(before.Experiences[0], after.Experiences[0]); diff != "" {
		t.Fatalf("experience 0 changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before.Experiences[2], after.Experiences[2]); diff != "" {
		t.Fatalf("experience 2 changed (-want +got):\n%s", diff)
	}
	if after.Experiences[1].Name != before.Experiences[1].Name || after.Experiences[1].Summary != before.Experiences[1].Summary {
		t.Fatalf("other subfields of experience 1 changed: %+v", after.Experiences[1])
	}
}

func TestStructuralActionsCommitOpenSession(t *testing.T) {
	c := newComponent(t)
	dispatch(t, c,
		Activate{Path: model.Item(model.CollectionSkills, 2, "")},
		Input{Value: "Mechanical engineering"},
		Delete{Collection: model.CollectionSkills, Index: 0},
	)

	if diff := cmp.Diff([]string{"Poetry", "Mechanical engineering"}, skillNames(c.Document())); diff != "" {
		t.Fatalf("skills mismatch (-want +got):\n%s", diff)
	}
	if _, editing := c.Session(); editing {
		t.Fatal("expected session closed by the structural action")
	}
}

func TestAddDelete_LengthAndOrder(t *testing.T) {
	c := New(context.Background(), model.Document{}, "ModernResume", WithResolver(newResolver()))

	var want []string
	adds, deletes := 0, 0
	steps := []struct {
		add   bool
		index int
	}{
		{add: true}, {add: true}, {add: true},
		{index: 1},
		{index: 5},
		{index: -1},
		{add: true},
		{index: 0},
		{index: 3},
	}

	for _, step := range steps {
		if step.add {
			adds++
			name := fmt.Sprintf("skill-%d", adds)
			if err := c.list.AddItem(model.CollectionSkills, model.Skill{Name: name}); err != nil {
				t.Fatalf("add: %v", err)
			}
			want = append(want, name)
			continue
		}
		if c.list.DeleteItem(model.CollectionSkills, step.index) {
			deletes++
			want = append(want[:step.index:step.index], want[step.index+1:]...)
		}
	}

	got := skillNames(c.Document())
	if len(got) != adds-deletes {
		t.Fatalf("expected %d skills, got %d", adds-deletes, len(got))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDelete_OutOfRangeIsNoop(t *testing.T) {
	c := newComponent(t)
	before := c.Document()
	renders := 0
	c.Subscribe(func() { renders++ })

	for _, index := range []int{-1, 3, 99} {
		dispatch(t, c, Delete{Collection: model.CollectionSkills, Index: index})
	}

	if diff := cmp.Diff(before, c.Document()); diff != "" {
		t.Fatalf("document changed (-want +got):\n%s", diff)
	}
	if renders != 0 {
		t.Fatalf("no-op deletes must not re-render, got %d", renders)
	}
}

func TestAdd_UsesDefaultsAndRespectsLimit(t *testing.T) {
	c := newComponent(t)
	dispatch(t, c, Add{Collection: model.CollectionExperiences}, Add{Collection: model.CollectionSkills})

	doc := c.Document()
	if diff := cmp.Diff(DefaultExperience(), doc.Experiences[len(doc.Experiences)-1]); diff != "" {
		t.Fatalf("unexpected default experience (-want +got):\n%s", diff)
	}
	if got := doc.Skills[len(doc.Skills)-1].Name; got != "New skill" {
		t.Fatalf("unexpected default skill %q", got)
	}

	full := model.Document{Skills: make([]model.Skill, model.MaxItems)}
	c.Mount(context.Background(), full, "ModernResume")
	err := c.Dispatch(context.Background(), Add{Collection: model.CollectionSkills})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected limit error, got %v", err)
	}
	if len(c.Document().Skills) != model.MaxItems {
		t.Fatalf("limit exceeded: %d", len(c.Document().Skills))
	}
	testsupport.AssertContains(t, view(t, c), "flash=")
}

func TestEditController_StaleIndexCommitIsNoop(t *testing.T) {
	c := newComponent(t)
	edit, list := c.edit, c.list

	if err := edit.Activate(model.Item(model.CollectionSkills, 2, "")); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := edit.Input("resurrected"); err != nil {
		t.Fatalf("input: %v", err)
	}
	list.DeleteItem(model.CollectionSkills, 2)
	before := c.Document()

	if err := edit.Commit(); err != nil {
		t.Fatalf("stale commit must not fail, got %v", err)
	}
	if diff := cmp.Diff(before, c.Document()); diff != "" {
		t.Fatalf("stale commit changed the document (-want +got):\n%s", diff)
	}
	if _, ok := edit.Session(); ok {
		t.Fatal("expected session closed")
	}
}

func TestEditController_ShiftedItemCommitIsNoop(t *testing.T) {
	c := newComponent(t)
	edit, list := c.edit, c.list

	if err := edit.Activate(model.Item(model.CollectionSkills, 1, "")); err != nil {
		t.Fatalf("activate: %v", err)
	}
	_ = edit.Input("Verse")
	list.DeleteItem(model.CollectionSkills, 0)

	if err := edit.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if diff := cmp.Diff([]string{"Poetry", "Engineering"}, skillNames(c.Document())); diff != "" {
		t.Fatalf("commit landed on a neighbour (-want +got):\n%s", diff)
	}
}

func TestInputAndCommitWithoutSession(t *testing.T) {
	c := newComponent(t)
	if err := c.Dispatch(context.Background(), Input{Value: "x"}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := c.Dispatch(context.Background(), Commit{}); err != nil {
		t.Fatalf("commit without session should be ignored, got %v", err)
	}
}

func TestRendersOncePerSet(t *testing.T) {
	c := newComponent(t)
	renders := 0
	c.Subscribe(func() { renders++ })

	dispatch(t, c, Activate{Path: model.Scalar(model.FieldFullName)}) // view-only change
	dispatch(t, c, Input{Value: "Ada L."})                            // no render
	dispatch(t, c, Commit{})                                          // one set
	dispatch(t, c, Add{Collection: model.CollectionSkills})           // one set

	if renders != 3 {
		t.Fatalf("expected 3 renders, got %d", renders)
	}
}

func TestResolveUnknownTemplate_FallbackLeavesDocument(t *testing.T) {
	before := testsupport.SampleDocument()
	c := New(context.Background(), before, "DoesNotExist", WithResolver(newResolver()))

	if !resolver.IsFallback(c.Renderer()) {
		t.Fatalf("expected fallback renderer, got %s", c.Renderer().Name())
	}
	testsupport.AssertContains(t, view(t, c), `Could not load template &#34;DoesNotExist&#34;`)
	if diff := cmp.Diff(before, c.Document()); diff != "" {
		t.Fatalf("document changed (-want +got):\n%s", diff)
	}

	dispatch(t, c, Activate{Path: model.Scalar(model.FieldFullName)}, Input{Value: "Still editable"}, Commit{})
	if c.Document().FullName != "Still editable" {
		t.Fatal("component must stay interactive after a load failure")
	}
}

func TestNew_EmptyNameUsesDocumentTemplate(t *testing.T) {
	c := New(context.Background(), testsupport.SampleDocument(), "", WithResolver(newResolver()))
	if c.Renderer().Name() != "ModernResume" {
		t.Fatalf("expected template from document, got %s", c.Renderer().Name())
	}

	blank := New(context.Background(), model.Document{}, "", WithResolver(newResolver()))
	if !resolver.IsFallback(blank.Renderer()) {
		t.Fatal("expected fallback for an absent template name")
	}
}

func TestSwitchTemplate_PreservesDocument(t *testing.T) {
	catalog := []model.TemplateRef{{ID: "1", ComponentName: "ModernResume"}, {ID: "2", ComponentName: "ClassicResume"}}
	store := persist.NewMemoryStore(catalog...)
	if err := store.Put(context.Background(), testsupport.SampleDocument()); err != nil {
		t.Fatalf("put: %v", err)
	}
	c := newComponent(t, WithCatalog(catalog), WithTemplateSelector(store))
	before := c.Document()

	dispatch(t, c, SwitchTemplate{Name: "ClassicResume"})

	if c.Renderer().Name() != "ClassicResume" {
		t.Fatalf("expected ClassicResume, got %s", c.Renderer().Name())
	}
	after := c.Document()
	if after.FullName != before.FullName || after.Email != before.Email || after.Summary != before.Summary {
		t.Fatalf("scalar fields changed: %+v", after)
	}
	if diff := cmp.Diff(before.Experiences, after.Experiences); diff != "" {
		t.Fatalf("experiences changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before.Skills, after.Skills); diff != "" {
		t.Fatalf("skills changed (-want +got):\n%s", diff)
	}
	if after.TemplateSelected != catalog[1] {
		t.Fatalf("expected template_selected updated, got %+v", after.TemplateSelected)
	}
	stored, _ := store.Load(context.Background(), "resume-1")
	if stored.TemplateSelected != catalog[1] {
		t.Fatalf("choice not recorded: %+v", stored.TemplateSelected)
	}
}

func TestSave_SuccessAndFailure(t *testing.T) {
	var calls []persist.Snapshot
	fail := true
	saver := persist.SaverFunc(func(_ context.Context, snapshot persist.Snapshot) error {
		calls = append(calls, snapshot)
		if fail {
			return &persist.StatusError{
				Code:   http.StatusUnprocessableEntity,
				Fields: map[string][]string{"/email": {"already taken"}, "detail": {"rejected"}},
			}
		}
		return nil
	})
	c := newComponent(t, WithSaver(saver))
	before := c.Document()

	err := c.Dispatch(context.Background(), Save{})
	if !errors.Is(err, persist.ErrRejected) {
		t.Fatalf("expected rejected save, got %v", err)
	}
	if diff := cmp.Diff(before, c.Document()); diff != "" {
		t.Fatalf("failed save changed local state (-want +got):\n%s", diff)
	}
	out := view(t, c)
	testsupport.AssertContains(t, out, "error[email]=already taken", "Could not save the resume")

	fail = false
	dispatch(t, c, Save{})
	testsupport.AssertContains(t, view(t, c), `flash="Saved"`)
	testsupport.AssertNotContains(t, view(t, c), "error[email]")

	if len(calls) != 2 || calls[1].TemplateSelected != "1" || calls[1].FullName != "Ada Lovelace" {
		t.Fatalf("unexpected snapshots %+v", calls)
	}
}

func TestSave_CommitsOpenSessionFirst(t *testing.T) {
	var saved persist.Snapshot
	c := newComponent(t, WithSaver(persist.SaverFunc(func(_ context.Context, s persist.Snapshot) error {
		saved = s
		return nil
	})))

	dispatch(t, c, Activate{Path: model.Scalar(model.FieldSummary)}, Input{Value: " Draft "}, Save{})
	if saved.Summary != "Draft" {
		t.Fatalf("expected committed summary in snapshot, got %q", saved.Summary)
	}
}

func TestReadOnly_RejectsEdits(t *testing.T) {
	c := newComponent(t, ReadOnly())
	if err := c.Dispatch(context.Background(), Add{Collection: model.CollectionSkills}); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	dispatch(t, c, SwitchTemplate{Name: "ClassicResume"})
	if c.Renderer().Name() != "ClassicResume" {
		t.Fatal("read-only components still switch templates")
	}
}

func TestLoop_LastResolutionWinsThroughComponent(t *testing.T) {
	gates := map[string]chan struct{}{"ModernResume": make(chan struct{}), "ClassicResume": make(chan struct{})}
	r := resolver.New()
	for name, gate := range gates {
		name, gate := name, gate
		r.MustRegister(name, func(ctx context.Context) (render.Renderer, error) {
			<-gate
			return textRenderer{name: name}, nil
		})
	}
	r.MustRegister("Initial", func(context.Context) (render.Renderer, error) {
		return textRenderer{name: "Initial"}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := NewLoop()
	go func() { _ = loop.Run(ctx) }()

	var c *Component
	settled := make(chan string, 4)
	err := loop.Call(ctx, func() error {
		c = New(ctx, testsupport.SampleDocument(), "Initial", WithResolver(r), WithPoster(loop))
		c.Subscribe(func() { settled <- c.Renderer().Name() })
		if err := c.Dispatch(ctx, SwitchTemplate{Name: "ModernResume"}); err != nil {
			return err
		}
		return c.Dispatch(ctx, SwitchTemplate{Name: "ClassicResume"})
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	close(gates["ClassicResume"])
	select {
	case name := <-settled:
		if name != "ClassicResume" {
			t.Fatalf("expected ClassicResume, got %s", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ClassicResume")
	}

	close(gates["ModernResume"])
	// Flush the loop so the superseded completion has been processed.
	time.Sleep(50 * time.Millisecond)
	var active string
	if err := loop.Call(ctx, func() error {
		active = c.Renderer().Name()
		return nil
	}); err != nil {
		t.Fatalf("call: %v", err)
	}
	if active != "ClassicResume" {
		t.Fatalf("superseded load won: %s", active)
	}
	select {
	case name := <-settled:
		t.Fatalf("unexpected re-render for %s", name)
	default:
	}
}

func TestMount_DiscardsPendingSwitch(t *testing.T) {
	gate := make(chan struct{})
	r := resolver.New()
	r.MustRegister("Slow", func(context.Context) (render.Renderer, error) {
		<-gate
		return textRenderer{name: "Slow"}, nil
	})
	for _, name := range []string{"Initial", "Mounted"} {
		name := name
		r.MustRegister(name, func(context.Context) (render.Renderer, error) {
			return textRenderer{name: name}, nil
		})
	}

	posted := make(chan func(), 4)
	poster := resolver.PosterFunc(func(fn func()) bool {
		posted <- fn
		return true
	})

	ctx := context.Background()
	c := New(ctx, testsupport.SampleDocument(), "Initial", WithResolver(r), WithPoster(poster))
	dispatch(t, c, SwitchTemplate{Name: "Slow"})

	next := testsupport.SampleDocument()
	next.FullName = "Grace Hopper"
	c.Mount(ctx, next, "Mounted")
	if c.Renderer().Name() != "Mounted" {
		t.Fatalf("expected Mounted after mount, got %s", c.Renderer().Name())
	}

	close(gate)
	select {
	case fn := <-posted:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the slow load to settle")
	}

	if c.Renderer().Name() != "Mounted" || c.TemplateName() != "Mounted" {
		t.Fatalf("pending switch overrode the mounted template: %s", c.Renderer().Name())
	}
	if c.Document().FullName != "Grace Hopper" {
		t.Fatalf("unexpected document %q", c.Document().FullName)
	}
}
