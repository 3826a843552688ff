package live

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/goliatone/go-resumekit/pkg/component"
	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/persist"
	"github.com/goliatone/go-resumekit/pkg/renderers/html"
	"github.com/goliatone/go-resumekit/pkg/resolver"
	"github.com/goliatone/go-resumekit/pkg/testsupport"
)

var catalog = []model.TemplateRef{
	{ID: "1", ComponentName: html.ModernName},
	{ID: "2", ComponentName: html.ClassicName},
}

func newResolver(t *testing.T) *resolver.Resolver {
	t.Helper()
	r := resolver.New()
	modern, err := html.NewModern()
	if err != nil {
		t.Fatalf("modern: %v", err)
	}
	classic, err := html.NewClassic()
	if err != nil {
		t.Fatalf("classic: %v", err)
	}
	if err := r.RegisterRenderer(modern); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.RegisterRenderer(classic); err != nil {
		t.Fatalf("register: %v", err)
	}
	return r
}

func newStore(t *testing.T) *persist.MemoryStore {
	t.Helper()
	store := persist.NewMemoryStore(catalog...)
	if err := store.Put(context.Background(), testsupport.SampleDocument()); err != nil {
		t.Fatalf("put: %v", err)
	}
	return store
}

func newTestServer(t *testing.T, store *persist.MemoryStore, options ...Option) *httptest.Server {
	t.Helper()
	srv, err := NewServer(store, newResolver(t), options...)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	router := mux.NewRouter()
	if _, err := srv.RegisterRoutes(router, ""); err != nil {
		t.Fatalf("routes: %v", err)
	}
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/resumes/" + id + "/live"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

// waitFrame reads frames until match accepts one.
func waitFrame(ws *websocket.Conn, match func(Frame) bool) (Frame, error) {
	deadline := time.Now().Add(3 * time.Second)
	for {
		if err := ws.SetReadDeadline(deadline); err != nil {
			return Frame{}, err
		}
		var frame Frame
		if err := ws.ReadJSON(&frame); err != nil {
			return Frame{}, err
		}
		if match(frame) {
			return frame, nil
		}
	}
}

func send(ws *websocket.Conn, raw string) error {
	return ws.WriteMessage(websocket.TextMessage, []byte(raw))
}

func TestSession(t *testing.T) {
	Convey("Given a live session", t, func() {
		store := newStore(t)
		srv, err := NewServer(store, newResolver(t))
		So(err, ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		session, err := srv.Open(ctx, "resume-1")
		So(err, ShouldBeNil)
		defer session.Close()
		So(session.ID(), ShouldEqual, "resume-1")

		frames := session.Frames(ctx)

		Convey("The first frame renders the stored resume", func() {
			var frame Frame
			So(receive(frames, &frame), ShouldBeTrue)
			So(frame.Type, ShouldEqual, FrameRender)
			So(frame.Template, ShouldEqual, html.ModernName)
			So(frame.HTML, ShouldContainSubstring, "Ada Lovelace")
		})

		Convey("Committed edits produce a new frame", func() {
			var frame Frame
			So(receive(frames, &frame), ShouldBeTrue)

			So(session.Dispatch(ctx, component.Activate{Path: model.Scalar(model.FieldFullName)}), ShouldBeNil)
			So(session.Dispatch(ctx, component.Input{Value: "  Augusta Ada King  "}), ShouldBeNil)
			So(session.Dispatch(ctx, component.Commit{}), ShouldBeNil)

			found := false
			for i := 0; i < 5 && !found; i++ {
				if !receive(frames, &frame) {
					break
				}
				found = strings.Contains(frame.HTML, "Augusta Ada King")
			}
			So(found, ShouldBeTrue)
			So(frame.HTML, ShouldNotContainSubstring, "  Augusta")
		})

		Convey("Invalid input is rejected and stays visible", func() {
			So(session.Dispatch(ctx, component.Activate{Path: model.Scalar(model.FieldEmail)}), ShouldBeNil)
			So(session.Dispatch(ctx, component.Input{Value: "nope"}), ShouldBeNil)
			So(session.Dispatch(ctx, component.Commit{}), ShouldNotBeNil)

			frame, err := session.Render(ctx)
			So(err, ShouldBeNil)
			So(frame.HTML, ShouldContainSubstring, `value="nope"`)
		})

		Convey("Saves reach the store and flash", func() {
			So(session.Dispatch(ctx, component.Add{Collection: model.CollectionSkills}), ShouldBeNil)
			So(session.Dispatch(ctx, component.Save{}), ShouldBeNil)

			deadline := time.Now().Add(2 * time.Second)
			for store.Saves() == 0 && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}
			So(store.Saves(), ShouldEqual, 1)
			saved, err := store.Load(ctx, "resume-1")
			So(err, ShouldBeNil)
			So(len(saved.Skills), ShouldEqual, 4)
		})
	})

	Convey("Opening an unknown resume fails", t, func() {
		srv, err := NewServer(newStore(t), newResolver(t))
		So(err, ShouldBeNil)
		_, err = srv.Open(context.Background(), "missing")
		So(err, ShouldWrap, persist.ErrNotFound)
	})
}

func receive(frames <-chan Frame, out *Frame) bool {
	select {
	case frame, ok := <-frames:
		if !ok {
			return false
		}
		*out = frame
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

func TestWebsocket(t *testing.T) {
	Convey("Given a connected browser", t, func() {
		store := newStore(t)
		server := newTestServer(t, store)
		ws := dial(t, server, "resume-1")

		frame, err := waitFrame(ws, func(f Frame) bool { return f.Type == FrameRender })
		So(err, ShouldBeNil)
		So(frame.HTML, ShouldContainSubstring, `data-action="activate"`)

		Convey("Actions sent as JSON edit the resume", func() {
			So(send(ws, `{"action":"activate","path":"skills.1"}`), ShouldBeNil)
			So(send(ws, `{"action":"input","value":" Verse "}`), ShouldBeNil)
			So(send(ws, `{"action":"commit"}`), ShouldBeNil)

			frame, err := waitFrame(ws, func(f Frame) bool {
				return f.Type == FrameRender && strings.Contains(f.HTML, ">Verse<")
			})
			So(err, ShouldBeNil)
			So(frame.HTML, ShouldContainSubstring, "Mathematics")
			So(frame.HTML, ShouldContainSubstring, "Engineering")
		})

		Convey("Switching templates keeps the document", func() {
			So(send(ws, `{"action":"switch-template","name":"ClassicResume"}`), ShouldBeNil)

			frame, err := waitFrame(ws, func(f Frame) bool { return f.Template == html.ClassicName })
			So(err, ShouldBeNil)
			So(frame.HTML, ShouldContainSubstring, "Ada Lovelace")

			// The choice is recorded off the loop.
			var stored model.Document
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				stored, err = store.Load(context.Background(), "resume-1")
				if err != nil || stored.TemplateSelected.ComponentName == html.ClassicName {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			So(err, ShouldBeNil)
			So(stored.TemplateSelected.ComponentName, ShouldEqual, html.ClassicName)
		})

		Convey("Malformed messages are reported without closing the socket", func() {
			So(send(ws, `{"action":"cancel"}`), ShouldBeNil)
			frame, err := waitFrame(ws, func(f Frame) bool { return f.Type == FrameError })
			So(err, ShouldBeNil)
			So(frame.Error, ShouldContainSubstring, "unknown action")

			So(send(ws, `{"action":"delete","path":"skills.0"}`), ShouldBeNil)
			_, err = waitFrame(ws, func(f Frame) bool {
				return f.Type == FrameRender && !strings.Contains(f.HTML, "Mathematics")
			})
			So(err, ShouldBeNil)
		})
	})
}

func TestPage(t *testing.T) {
	Convey("Given the page routes", t, func() {
		server := newTestServer(t, newStore(t))

		Convey("The page embeds the current view and the live bootstrap", func() {
			resp, err := http.Get(server.URL + "/resumes/resume-1")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(body), ShouldContainSubstring, `data-live="/resumes/resume-1/live"`)
			So(string(body), ShouldContainSubstring, "new WebSocket")
			So(string(body), ShouldContainSubstring, `href="/assets/resumekit.css"`)
			So(string(body), ShouldContainSubstring, "<title>Ada Lovelace</title>")
		})

		Convey("Unknown resumes are 404", func() {
			resp, err := http.Get(server.URL + "/resumes/missing")
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("The stylesheet is served", func() {
			resp, err := http.Get(server.URL + "/assets/" + html.StylesheetName)
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})

	Convey("Read-only servers have no live endpoint", t, func() {
		server := newTestServer(t, newStore(t), ReadOnly())

		resp, err := http.Get(server.URL + "/resumes/resume-1")
		So(err, ShouldBeNil)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		So(string(body), ShouldNotContainSubstring, "new WebSocket")
		So(string(body), ShouldNotContainSubstring, `data-action="activate"`)

		resp, err = http.Get(server.URL + "/resumes/resume-1/live")
		So(err, ShouldBeNil)
		resp.Body.Close()
		So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
	})
}

func TestFrameJSON(t *testing.T) {
	Convey("Frames use snake_case keys", t, func() {
		data, err := json.Marshal(Frame{Type: FrameRender, Seq: 3, ContentType: "text/html"})
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, `{"type":"render","seq":3,"content_type":"text/html"}`)
	})
}
