package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/melodeck/melodeck/assistant"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/filesystem"
	"github.com/melodeck/melodeck/history"
	"github.com/melodeck/melodeck/key"
	"github.com/melodeck/melodeck/playback"
	"github.com/melodeck/melodeck/track"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

type call struct {
	action string
	args   []any
}

type fakePlayer struct {
	mu    sync.Mutex
	calls []call
	err   error
	// block makes Play wait for the channel to close
	block chan struct{}
}

func (f *fakePlayer) record(action string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{action: action, args: args})
}

func (f *fakePlayer) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return call{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakePlayer) Play(ctx context.Context, input string) (playback.PlayResult, error) {
	f.record(ActionPlay, input)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return playback.PlayResult{}, f.err
	}
	return playback.PlayResult{
		Snapshot: playback.Snapshot{Status: playback.Playing, URL: mo.Some("https://cdn/" + input)},
		Backend:  mo.Some("mpv+yt-dlp"),
	}, nil
}

func (f *fakePlayer) Pause(context.Context) (playback.Snapshot, error) {
	f.record(ActionPause)
	return playback.Snapshot{Status: playback.Paused}, f.err
}

func (f *fakePlayer) Resume(context.Context) (playback.Snapshot, error) {
	f.record(ActionResume)
	return playback.Snapshot{Status: playback.Playing}, f.err
}

func (f *fakePlayer) Stop(context.Context) (playback.Snapshot, error) {
	f.record(ActionStop)
	return playback.Snapshot{Status: playback.Idle}, f.err
}

func (f *fakePlayer) Seek(_ context.Context, position float64) (playback.SeekResult, error) {
	f.record(ActionSeek, position)
	return playback.SeekResult{Snapshot: playback.Snapshot{Status: playback.Playing}, Position: position}, f.err
}

func (f *fakePlayer) SetVolume(_ context.Context, level float64) (playback.VolumeResult, error) {
	f.record(ActionVolume, level)
	return playback.VolumeResult{Snapshot: playback.Snapshot{Status: playback.Playing}, Volume: level}, f.err
}

func (f *fakePlayer) Status(context.Context) (playback.StatusResult, error) {
	f.record(ActionStatus)
	return playback.StatusResult{Snapshot: playback.Snapshot{Status: playback.Idle}}, f.err
}

func (f *fakePlayer) Search(_ context.Context, query string, limit int) ([]track.Summary, error) {
	f.record(ActionSearch, query, limit)
	if f.err != nil {
		return nil, f.err
	}
	return []track.Summary{{ID: "a", Title: query + " one"}, {ID: "b", Title: query + " two"}}, nil
}

func (f *fakePlayer) Related(_ context.Context, title, uploader string, limit int) ([]track.Summary, error) {
	f.record(ActionRelated, title, uploader, limit)
	return []track.Summary{{ID: "r", Title: "Other"}}, f.err
}

type fakeChatter struct {
	recent []history.Entry
}

func (f *fakeChatter) Chat(_ context.Context, message string, recent []history.Entry) (assistant.Reply, error) {
	f.recent = recent
	return assistant.Reply{
		Message:     "Try these: " + message,
		Suggestions: []assistant.Suggestion{{Query: "lofi beats", Reason: "calm"}},
	}, nil
}

func TestDispatch(t *testing.T) {
	Convey("Given a service", t, func() {
		player := &fakePlayer{}
		svc := &Service{Player: player}
		ctx := context.Background()

		Convey("Volume accepts numeric strings", func() {
			result, err := svc.Dispatch(ctx, "volume", Args{Level: "42"})
			So(err, ShouldBeNil)
			So(result.(playback.VolumeResult).Volume, ShouldEqual, float64(42))
		})

		Convey("Seek rejects values that are not numbers", func() {
			_, err := svc.Dispatch(ctx, "seek", Args{Position: "soon"})
			So(fault.KindOf(err), ShouldEqual, fault.ValidationError)
			So(player.calls, ShouldBeEmpty)
		})

		Convey("Search falls back to the configured limit", func() {
			viper.Set(key.SearchDefaultLimit, 30)
			_, err := svc.Dispatch(ctx, "search", Args{Query: "jazz"})
			So(err, ShouldBeNil)
			So(player.last().args[1], ShouldEqual, 30)
		})

		Convey("Action names are case insensitive", func() {
			_, err := svc.Dispatch(ctx, " PAUSE ", Args{})
			So(err, ShouldBeNil)
			So(player.last().action, ShouldEqual, ActionPause)
		})

		Convey("Unknown actions are rejected", func() {
			_, err := svc.Dispatch(ctx, "rewind", Args{})
			So(fault.KindOf(err), ShouldEqual, fault.ValidationError)
			So(fault.Message(err), ShouldContainSubstring, "rewind")
		})

		Convey("Chat without an assistant reports a missing dependency", func() {
			_, err := svc.Dispatch(ctx, "chat", Args{Message: "hi"})
			So(fault.KindOf(err), ShouldEqual, fault.MissingDependency)
		})

		Convey("Chat passes recent history to the assistant", func() {
			So(history.Clear(), ShouldBeNil)
			So(history.Record(track.Meta{ID: "h", Title: "Heard"}), ShouldBeNil)

			chatter := &fakeChatter{}
			svc.Chatter = chatter

			result, err := svc.Dispatch(ctx, "chat", Args{Message: "something calm"})
			So(err, ShouldBeNil)
			So(result.(assistant.Reply).Suggestions, ShouldHaveLength, 1)
			So(chatter.recent, ShouldHaveLength, 1)
			So(chatter.recent[0].Title, ShouldEqual, "Heard")
		})
	})
}

func readLines(t *testing.T, r io.Reader) []map[string]any {
	t.Helper()

	var lines []map[string]any
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("invalid output line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, m)
	}
	return lines
}

func TestServeStdio(t *testing.T) {
	Convey("Given a stdio session", t, func() {
		player := &fakePlayer{}
		svc := &Service{Player: player}

		Convey("It announces itself and answers each line", func() {
			in := strings.NewReader(strings.Join([]string{
				`{"id":1,"action":"status"}`,
				``,
				`{"action":"volume","args":{"level":55}}`,
				`not json`,
				`{"action":"pause"}`,
			}, "\n"))
			var out strings.Builder

			So(svc.ServeStdio(context.Background(), in, &out), ShouldBeNil)

			lines := readLines(t, strings.NewReader(out.String()))
			So(lines, ShouldHaveLength, 5)
			So(lines[0]["ready"], ShouldEqual, true)
			So(lines[0]["commands"], ShouldContain, "play")

			var invalid, withID, volume int
			for _, line := range lines[1:] {
				switch {
				case line["error"] == "Invalid JSON":
					invalid++
					So(line["ok"], ShouldEqual, false)
				case line["id"] != nil:
					withID++
					So(line["id"], ShouldEqual, float64(1))
					So(line["ok"], ShouldEqual, true)
				case line["result"] != nil && line["result"].(map[string]any)["volume"] != nil:
					volume++
					So(line["result"].(map[string]any)["volume"], ShouldEqual, float64(55))
				}
			}
			So(invalid, ShouldEqual, 1)
			So(withID, ShouldEqual, 1)
			So(volume, ShouldEqual, 1)
		})

		Convey("Failures are reported with their message", func() {
			player.err = fault.New(fault.NoActiveSession, "playback.pause", "no active playback session")
			var out strings.Builder

			So(svc.ServeStdio(context.Background(), strings.NewReader(`{"action":"pause"}`), &out), ShouldBeNil)

			lines := readLines(t, strings.NewReader(out.String()))
			So(lines, ShouldHaveLength, 2)
			So(lines[1]["ok"], ShouldEqual, false)
			So(lines[1]["error"], ShouldEqual, "no active playback session")
		})

		Convey("A slow play does not hold up later requests", func() {
			player.block = make(chan struct{})
			inR, inW := io.Pipe()
			outR, outW := io.Pipe()

			done := make(chan error, 1)
			go func() {
				done <- svc.ServeStdio(context.Background(), inR, outW)
				_ = outW.Close()
			}()

			responses := bufio.NewScanner(outR)
			So(responses.Scan(), ShouldBeTrue) // ready

			_, _ = io.WriteString(inW, `{"id":"p","action":"play","args":{"query":"slow"}}`+"\n")
			_, _ = io.WriteString(inW, `{"id":"s","action":"status"}`+"\n")

			So(responses.Scan(), ShouldBeTrue)
			var first Response
			So(json.Unmarshal(responses.Bytes(), &first), ShouldBeNil)
			So(first.ID, ShouldEqual, "s")

			close(player.block)
			So(responses.Scan(), ShouldBeTrue)
			var second Response
			So(json.Unmarshal(responses.Bytes(), &second), ShouldBeNil)
			So(second.ID, ShouldEqual, "p")

			_ = inW.Close()
			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(2 * time.Second):
				t.Fatal("stdio server did not finish")
			}
		})
	})
}

func TestSchema(t *testing.T) {
	Convey("The request schema describes the action field", t, func() {
		data, err := json.Marshal(Schema())
		So(err, ShouldBeNil)
		So(string(data), ShouldContainSubstring, `"action"`)
		So(string(data), ShouldContainSubstring, `"related"`)
	})
}

func doRequest(h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var m map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &m)
	return rec, m
}

func TestHTTP(t *testing.T) {
	Convey("Given the HTTP API", t, func() {
		player := &fakePlayer{}
		svc := &Service{Player: player, Chatter: &fakeChatter{}}
		h := svc.Handler()

		Convey("Status reports the session", func() {
			rec, body := doRequest(h, http.MethodGet, "/api/status", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(body["ok"], ShouldEqual, true)
			So(body["result"].(map[string]any)["status"], ShouldEqual, "idle")
		})

		Convey("Search requires q and clamps the limit", func() {
			rec, _ := doRequest(h, http.MethodGet, "/api/search", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)

			rec, body := doRequest(h, http.MethodGet, "/api/search?q=ambient&limit=3", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(body["results"], ShouldHaveLength, 2)
			So(player.last().args[1], ShouldEqual, 10)

			doRequest(h, http.MethodGet, "/api/search?q=ambient&limit=500", "")
			So(player.last().args[1], ShouldEqual, 50)
		})

		Convey("Play turns an id into a watch URL", func() {
			rec, body := doRequest(h, http.MethodPost, "/api/play", `{"id":"abc123"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(body["result"].(map[string]any)["status"], ShouldEqual, "playing")
			So(player.last().args[0], ShouldEqual, "https://www.youtube.com/watch?v=abc123")
		})

		Convey("Play without a target is a bad request", func() {
			rec, body := doRequest(h, http.MethodPost, "/api/play", `{}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(body["ok"], ShouldEqual, false)
			So(player.calls, ShouldBeEmpty)
		})

		Convey("Volume requires a level", func() {
			rec, _ := doRequest(h, http.MethodPost, "/api/volume", `{}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)

			rec, body := doRequest(h, http.MethodPost, "/api/volume", `{"level":"70"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(body["result"].(map[string]any)["volume"], ShouldEqual, float64(70))
		})

		Convey("Errors map to status codes", func() {
			player.err = fault.New(fault.NoActiveSession, "playback.seek", "no active playback session")
			rec, body := doRequest(h, http.MethodPost, "/api/seek", `{"position":12}`)
			So(rec.Code, ShouldEqual, http.StatusConflict)
			So(body["error"], ShouldEqual, "no active playback session")

			player.err = errors.New("boom")
			rec, _ = doRequest(h, http.MethodPost, "/api/stop", "")
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("Chat returns the message and suggestions", func() {
			rec, body := doRequest(h, http.MethodPost, "/api/chat", `{"message":"rainy day"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(body["message"], ShouldEqual, "Try these: rainy day")
			So(body["suggestions"], ShouldHaveLength, 1)
		})

		Convey("Playlists can be managed", func() {
			rec, body := doRequest(h, http.MethodPost, "/api/playlists", `{"name":"Focus"}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			id := body["playlist"].(map[string]any)["id"].(string)

			rec, _ = doRequest(h, http.MethodPost, "/api/playlists/"+id+"/tracks", `{"id":"t1","title":"One"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			rec, _ = doRequest(h, http.MethodPost, "/api/playlists/"+id+"/tracks", `{"id":"t2","title":"Two"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)

			rec, _ = doRequest(h, http.MethodPost, "/api/playlists/"+id+"/tracks", `{"id":"t1","title":"One"}`)
			So(rec.Code, ShouldEqual, http.StatusConflict)

			rec, body = doRequest(h, http.MethodPost, "/api/playlists/"+id+"/tracks/t2/move", `{"index":0}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			tracks := body["playlist"].(map[string]any)["tracks"].([]any)
			So(tracks[0].(map[string]any)["id"], ShouldEqual, "t2")

			rec, body = doRequest(h, http.MethodPatch, "/api/playlists/"+id, `{"name":"Deep Focus"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(body["playlist"].(map[string]any)["name"], ShouldEqual, "Deep Focus")

			rec, _ = doRequest(h, http.MethodDelete, "/api/playlists/"+id+"/tracks/t1", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			rec, _ = doRequest(h, http.MethodDelete, "/api/playlists/"+id, "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			rec, _ = doRequest(h, http.MethodGet, "/api/playlists/"+id, "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func toolText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if text, ok := result.Content[0].(mcp.TextContent); ok {
		return text.Text
	}
	return ""
}

func TestMCP(t *testing.T) {
	Convey("Given the MCP tools", t, func() {
		player := &fakePlayer{}
		svc := &Service{Player: player}
		ctx := context.Background()

		Convey("The server can be built", func() {
			So(svc.MCP(), ShouldNotBeNil)
		})

		Convey("Play forwards the query", func() {
			result, err := svc.toolPlay(ctx, toolRequest(map[string]any{"query": "night drive"}))
			So(err, ShouldBeNil)
			So(result.IsError, ShouldBeFalse)
			So(toolText(result), ShouldContainSubstring, `"status":"playing"`)
			So(player.last().args[0], ShouldEqual, "night drive")
		})

		Convey("Play without a query is a tool error", func() {
			result, err := svc.toolPlay(ctx, toolRequest(map[string]any{}))
			So(err, ShouldBeNil)
			So(result.IsError, ShouldBeTrue)
			So(player.calls, ShouldBeEmpty)
		})

		Convey("Volume passes the level through", func() {
			result, err := svc.toolVolume(ctx, toolRequest(map[string]any{"level": 30.0}))
			So(err, ShouldBeNil)
			So(result.IsError, ShouldBeFalse)
			So(player.last().args[0], ShouldEqual, float64(30))
		})

		Convey("Player failures become tool errors", func() {
			player.err = fault.New(fault.NoActiveSession, "playback.pause", "no active playback session")
			result, err := svc.toolAction(ActionPause)(ctx, toolRequest(nil))
			So(err, ShouldBeNil)
			So(result.IsError, ShouldBeTrue)
			So(toolText(result), ShouldEqual, "no active playback session")
		})

		Convey("The history resource lists recent plays", func() {
			So(history.Clear(), ShouldBeNil)
			So(history.Record(track.Meta{ID: "x", Title: "Listened"}), ShouldBeNil)

			request := mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: HistoryResourceURI}}
			contents, err := historyResource(ctx, request)
			So(err, ShouldBeNil)
			So(contents, ShouldHaveLength, 1)

			text, ok := contents[0].(*mcp.TextResourceContents)
			So(ok, ShouldBeTrue)
			So(text.URI, ShouldEqual, HistoryResourceURI)
			So(text.Text, ShouldContainSubstring, "Listened")
		})
	})
}
